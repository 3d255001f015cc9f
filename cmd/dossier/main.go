// Command dossier runs the dossier site and its maintenance tasks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/dossier"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configPath string
	dbPath     string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Professional biography site with cited case writeups",
	Long:  "Serves a biography with case writeups, a career timeline and a profile, and manages its database.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $DOSSIER_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (overrides the config)")

	RootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the dossier version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dossier %s\n", version)
		},
	})
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return os.Getenv("DOSSIER_CONFIG")
}

// readConfig loads the configuration without requiring the server-only
// settings.
func readConfig() dossier.SiteConfig {
	cfg, err := dossier.ReadConfig(getConfigPath())
	if err != nil {
		exitErr("config", err)
	}
	if dbPath != "" {
		cfg.Driver = dossier.DriverSQLite
		cfg.DatabasePath = dbPath
	}
	return cfg
}

// openDatabase opens the configured store with the base schema and the
// configured features in place.
func openDatabase(ctx context.Context, cfg dossier.SiteConfig) dossier.Database {
	db, err := dossier.OpenDatabase(ctx, cfg)
	if err != nil {
		exitErr("open database", err)
	}
	features, err := cfg.SchemaFeatures()
	if err != nil {
		db.Close()
		exitErr("config", err)
	}
	if err := db.EnsureSchema(ctx, features...); err != nil {
		db.Close()
		exitErr("ensure schema", err)
	}
	return db
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
