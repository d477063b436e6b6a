package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rendis/canopy/internal/expressions"
	"github.com/rendis/canopy/internal/logging"
	"github.com/rendis/canopy/internal/persistence"
	"github.com/rendis/canopy/internal/scheduler"
	"github.com/rendis/canopy/internal/session"
	"github.com/rendis/canopy/internal/store"
	"github.com/rendis/canopy/internal/streaming"
	"github.com/rendis/canopy/internal/validation"
)

// app is the wired editor: one session over a cached backend, with the
// local store holding snapshots and the journal.
type app struct {
	cfg         Config
	logger      *slog.Logger
	level       *slog.LevelVar
	store       *store.LibSQLStore
	journal     *store.EventLog
	hub         *streaming.MemoryHub
	session     *session.Session
	maintenance *scheduler.Maintenance
}

// newLogger builds the stderr logger whose level can change on reload.
func newLogger(levelName string) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(logging.ParseLevel(levelName))
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(logging.NewCorrelationHandler(handler)), level
}

func newApp(ctx context.Context, cfg Config) (*app, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger, level := newLogger(cfg.LogLevel)
	a := &app{cfg: cfg, logger: logger, level: level}

	dbPath := strings.TrimPrefix(cfg.DBPath, "file:")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.NewLibSQLStore("file:" + dbPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	a.store = st
	a.journal = store.NewEventLog(st)

	var backend persistence.Backend
	switch cfg.Backend {
	case backendHTTP:
		backend, err = persistence.NewHTTPBackend(persistence.HTTPConfig{
			BaseURL: cfg.BackendURL,
			Token:   cfg.BackendToken,
			Retry:   persistence.DefaultRetryPolicy(),
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	default:
		backend = persistence.NewStoreBackend(st)
	}
	cached, err := persistence.NewCachedBackend(backend, cfg.CacheSize)
	if err != nil {
		a.Close()
		return nil, err
	}

	validator, err := validation.NewDocumentValidator()
	if err != nil {
		a.Close()
		return nil, err
	}
	finder, err := expressions.NewFinder()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.hub = streaming.NewMemoryHub()
	a.session, err = session.New(session.Deps{
		Backend:   cached,
		Store:     st,
		Hub:       a.hub,
		Validator: validator,
		Finder:    finder,
		Logger:    logger,
	}, session.Config{
		AutosaveDelay: time.Duration(cfg.AutosaveDelay),
		HistoryLimit:  cfg.HistoryLimit,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.maintenance, err = scheduler.NewMaintenance(st, cfg.MaintenanceCron, time.Duration(cfg.EventRetention), logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// openInitial opens the configured document, or the last one left in the
// local snapshot when none is configured.
func (a *app) openInitial(ctx context.Context) error {
	err := a.session.Open(ctx, a.cfg.DocumentID)
	if err != nil && a.cfg.DocumentID == "" {
		// Nothing to reopen yet; the client opens a document later.
		a.logger.Info("no document opened on start", slog.String("reason", err.Error()))
		return nil
	}
	return err
}

// Close stops background work and releases the store. A pending autosave
// is dropped.
func (a *app) Close() {
	var errs []error
	if a.maintenance != nil {
		errs = append(errs, a.maintenance.Stop())
	}
	if a.session != nil {
		errs = append(errs, a.session.Close())
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown incomplete", slog.String("error", err.Error()))
	}
}
