package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/dossier"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides the config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := readConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		exitErr("config", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := dossier.New(cfg)
	defer app.Close()
	if err := app.Setup(ctx); err != nil {
		exitErr("setup", err)
	}

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		if err != nil {
			exitErr("serve", err)
		}
	case <-ctx.Done():
		app.Echo.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			exitErr("shutdown", err)
		}
	}
}
