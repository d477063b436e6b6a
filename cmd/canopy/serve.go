package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rendis/canopy/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
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

	root := newHandlerSwitch(a.rootHandler(cfg.Panel))
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := os.WriteFile(pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		a.logger.Warn("cannot write pid file", slog.String("error", err.Error()))
	}
	defer os.Remove(pidPath())

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				a.reload(*envFile, root)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("canopy listening",
			slog.String("addr", cfg.ListenAddr),
			slog.Bool("panel", cfg.Panel),
			slog.String("backend", cfg.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("canopy stopped")
	return nil
}

// reload re-reads settings.json, the dotenv file and env vars. The panel
// toggle and log level apply live; other changes need a restart.
func (a *app) reload(envFile string, root *handlerSwitch) {
	next, err := loadConfig(envFile)
	if err != nil {
		a.logger.Error("config reload failed", slog.String("error", err.Error()))
		return
	}
	diff := diffConfigs(a.cfg, next)
	if diff.LogLevelChanged {
		a.level.Set(logging.ParseLevel(next.LogLevel))
		a.cfg.LogLevel = next.LogLevel
	}
	if diff.PanelChanged {
		root.Swap(a.rootHandler(next.Panel))
		a.cfg.Panel = next.Panel
	}
	if len(diff.RestartNeeded) > 0 {
		a.logger.Warn("config changes need a restart", slog.Any("fields", diff.RestartNeeded))
	}
	a.logger.Info("config reloaded",
		slog.Bool("panel", a.cfg.Panel),
		slog.String("log_level", a.cfg.LogLevel),
	)
}

// parseConfig loads the layered config and applies the flags in args.
func parseConfig(fs *flag.FlagSet, envFile *string, args []string) (Config, error) {
	// The env file flag decides the layers below the other flags, so it is
	// read in a first pass.
	pre := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	preEnv := pre.String("env-file", *envFile, "")
	pre.Usage = func() {}
	var cfgFlags Config
	bindFlags(pre, &cfgFlags)
	_ = pre.Parse(args)
	*envFile = *preEnv

	cfg, err := loadConfig(*envFile)
	if err != nil {
		return cfg, err
	}
	bindFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}
