package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	canopymcp "github.com/rendis/canopy/pkg/mcp"
)

// runMCP serves the editor tools over stdio. Logs go to stderr so stdout
// stays a clean protocol stream.
func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "dotenv file layered over settings.json")
	cfg, err := parseConfig(fs, envFile, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.openInitial(ctx); err != nil {
		return err
	}
	if err := a.maintenance.Start(ctx); err != nil {
		return err
	}

	srv := canopymcp.NewCanopyServer(canopymcp.CanopyServerDeps{
		Session: a.session,
		Hub:     a.hub,
		Logger:  a.logger,
	})
	return srv.Serve(ctx)
}
