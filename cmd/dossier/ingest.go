package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/dossier/ingest"
)

func init() {
	ingestCmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Merge scraped items into the timeline",
		Long: `Read a JSON array of scraped items (title, content, date, url, source, type)
from a file or stdin, classify each one and add those not yet present to the
timeline. The run is recorded in the scraping log when that table exists.`,
		Args: cobra.MaximumNArgs(1),
		Run:  runIngest,
	}
	ingestCmd.Flags().String("source", "ingest", "Source name recorded in the scraping log")
	ingestCmd.Flags().Bool("posts", false, "Also create a case writeup for every new item")
	RootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	var in io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("ingest", err)
		}
		defer f.Close()
		in = f
	}
	items, err := ingest.Load(in)
	if err != nil {
		exitErr("ingest", err)
	}

	cfg := readConfig()
	db := openDatabase(cmd.Context(), cfg)
	defer db.Close()

	source, _ := cmd.Flags().GetString("source")
	posts, _ := cmd.Flags().GetBool("posts")
	rep, err := ingest.Run(cmd.Context(), contentService(cfg, db), items, ingest.Options{Source: source, Posts: posts})
	if err != nil {
		exitErr("ingest", err)
	}
	printJSON(rep)
}
