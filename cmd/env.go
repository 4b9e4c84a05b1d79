package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/aicache"
	"github.com/sells-group/leads-cli/internal/batch"
	"github.com/sells-group/leads-cli/internal/enrich"
	"github.com/sells-group/leads-cli/internal/export"
	"github.com/sells-group/leads-cli/internal/folder"
	"github.com/sells-group/leads-cli/internal/i18n"
	"github.com/sells-group/leads-cli/internal/notify"
	"github.com/sells-group/leads-cli/internal/ratelimit"
	"github.com/sells-group/leads-cli/internal/store"
	"github.com/sells-group/leads-cli/pkg/gemini"
)

// appEnv holds the initialized store, clients and services the commands
// share.
type appEnv struct {
	Store       store.Store
	Catalog     *i18n.Catalog
	Limiter     *ratelimit.Limiter
	Cache       *aicache.Cache
	Folders     *folder.Manager
	Coordinator *enrich.Coordinator
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the store, wires the Gemini client behind the rate
// limiter and cache, and builds the enrichment coordinator. A stale
// processing status from a crashed run is reset here. Callers should
// defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	catalog, err := i18n.New(cfg.Export.Language)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	limiter := ratelimit.New(st)
	limiter.SyncFromStats(ctx)

	client := gemini.NewClient(cfg.Gemini.Key,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithUsageRecorder(limiter),
	)

	cache := aicache.New(st)
	resolver := batch.NewResolver(client, limiter, cache, catalog, zap.L())

	var notifier notify.Notifier
	if cfg.Notify.Desktop {
		notifier = notify.NewDesktop(zap.L())
	} else {
		notifier = notify.NewLog(zap.L())
	}

	writer := export.NewWriter(catalog)
	coordinator := enrich.NewCoordinator(resolver, writer, st, catalog, notifier, zap.L())

	if reset, err := coordinator.ResetStuckStatus(ctx); err != nil {
		zap.L().Warn("stale status check failed", zap.Error(err))
	} else if reset {
		zap.L().Info("reset stale processing status from a previous run")
	}

	return &appEnv{
		Store:       st,
		Catalog:     catalog,
		Limiter:     limiter,
		Cache:       cache,
		Folders:     folder.NewManager(st),
		Coordinator: coordinator,
	}, nil
}
