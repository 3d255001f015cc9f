package main

import (
	"github.com/spf13/cobra"

	"github.com/eringen/dossier"
	"github.com/eringen/dossier/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and optional features",
		Long: `Create the base schema and any optional features. Features are
archive, timeline_sources, blog_sources, scraping_log and dashboard_stats.
Without --feature or --all the features named in the config are applied.
Running it again is harmless.`,
		Run: runMigrate,
	}

	cmd.Flags().StringSliceP("feature", "f", nil, "Feature to apply (repeatable)")
	cmd.Flags().Bool("all", false, "Apply every feature")

	RootCmd.AddCommand(cmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := readConfig()
	names, _ := cmd.Flags().GetStringSlice("feature")
	all, _ := cmd.Flags().GetBool("all")

	var features []store.Feature
	switch {
	case all:
		features = store.AllFeatures()
	case len(names) > 0:
		for _, name := range names {
			f, err := store.ParseFeature(name)
			if err != nil {
				exitErr("migrate", err)
			}
			features = append(features, f)
		}
	default:
		var err error
		if features, err = cfg.SchemaFeatures(); err != nil {
			exitErr("config", err)
		}
	}

	db, err := dossier.OpenDatabase(cmd.Context(), cfg)
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(cmd.Context(), features...); err != nil {
		exitErr("migrate", err)
	}
	applied := make([]string, 0, len(features))
	for _, f := range features {
		applied = append(applied, string(f))
	}
	printJSON(map[string]any{"schema": "ok", "features": applied})
}
