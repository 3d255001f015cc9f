package main

import (
	"github.com/spf13/cobra"

	"github.com/eringen/dossier/content"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which features the database has, with counts",
		Run:   runStatus,
	}

	RootCmd.AddCommand(cmd)
}

type status struct {
	Driver       string               `json:"driver"`
	Capabilities content.Capabilities `json:"capabilities"`
	Stats        *content.Stats       `json:"stats,omitempty"`
	StatsError   string               `json:"stats_error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := readConfig()
	db := openDatabase(cmd.Context(), cfg)
	defer db.Close()

	svc := contentService(cfg, db)
	caps, err := svc.Capabilities(cmd.Context())
	if err != nil {
		exitErr("status", err)
	}
	out := status{Driver: cfg.Driver, Capabilities: caps}
	if st, err := svc.Stats(cmd.Context()); err != nil {
		out.StatsError = err.Error()
	} else {
		out.Stats = &st
	}
	printJSON(out)
}
