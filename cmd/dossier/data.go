package main

import (
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/eringen/dossier"
	"github.com/eringen/dossier/content"
	"github.com/eringen/dossier/snapshot"
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the microsite JSON files",
		Long:  "Write blog.json, the chronology file and company-profile.json for the static microsite. Archived posts are left out.",
		Run:   runExport,
	}
	exportCmd.Flags().String("dir", "", "Output directory (default: snapshot_dir from the config)")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load the microsite JSON files into the database",
		Long:  "Load the microsite files. Posts whose slug already exists and timeline entries with the same date and title are skipped.",
		Run:   runImport,
	}
	importCmd.Flags().String("dir", "", "Input directory (default: snapshot_dir from the config)")

	RootCmd.AddCommand(exportCmd, importCmd)
}

func contentService(cfg dossier.SiteConfig, db dossier.Database) *content.Service {
	logger := log.New("dossier")
	logger.SetLevel(log.WARN)
	if cfg.LogLevel == "debug" {
		logger.SetLevel(log.DEBUG)
	}
	return content.NewService(db, content.WithLogger(logger))
}

func snapshotDir(cmd *cobra.Command, cfg dossier.SiteConfig) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.SnapshotDir
}

func runExport(cmd *cobra.Command, args []string) {
	cfg := readConfig()
	db := openDatabase(cmd.Context(), cfg)
	defer db.Close()

	files, err := snapshot.Export(cmd.Context(), contentService(cfg, db), snapshotDir(cmd, cfg))
	if err != nil {
		exitErr("export", err)
	}
	printJSON(map[string][]string{"files": files})
}

func runImport(cmd *cobra.Command, args []string) {
	cfg := readConfig()
	db := openDatabase(cmd.Context(), cfg)
	defer db.Close()

	res, err := snapshot.Import(cmd.Context(), contentService(cfg, db), snapshotDir(cmd, cfg))
	if err != nil {
		exitErr("import", err)
	}
	printJSON(res)
}
