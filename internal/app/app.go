// Package app wires the client core together for one process: the shared
// kv store, a tab handle, the session store with its synchronizer, the
// assistant conversation, and the retention scheduler.
package app

import (
	"context"

	"ironwall/internal/retention"
	"ironwall/pkg/chat"
	"ironwall/pkg/client"
	"ironwall/pkg/config"
	"ironwall/pkg/kv"
	"ironwall/pkg/logger"
	"ironwall/pkg/session"
)

// App holds everything one running tab needs.
type App struct {
	cfg config.Config

	db  *kv.DB
	tab *kv.Tab
	api *client.Client

	Session *session.Store
	Sync    *session.Synchronizer
	Conv    *chat.Conversation

	retentionCancel context.CancelFunc
}

// New opens the store and assembles the tab. The caller owns Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := kv.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	tab := db.OpenTab()
	api := client.New(cfg.API.BaseURL)

	st := session.NewStore(tab, api)
	sync := session.NewSynchronizer(st, tab)

	conv := chat.New(tab, api)
	conv.Initialize()

	a := &App{
		cfg:     cfg,
		db:      db,
		tab:     tab,
		api:     api,
		Session: st,
		Sync:    sync,
		Conv:    conv,
	}

	cancel, err := retention.Start(ctx, cfg.Retention, conv)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.retentionCancel = cancel

	logger.Info("app_ready", "api", cfg.API.BaseURL, "db", cfg.Storage.DBPath)
	return a, nil
}

// OpenTab opens another tab handle onto the same store, with its own
// session store and synchronizer. Used by tests and the console's tab
// simulation.
func (a *App) OpenTab() (*kv.Tab, *session.Store, *session.Synchronizer) {
	tab := a.db.OpenTab()
	st := session.NewStore(tab, a.api)
	return tab, st, session.NewSynchronizer(st, tab)
}

// Close tears the tab down and closes the store.
func (a *App) Close() {
	if a.retentionCancel != nil {
		a.retentionCancel()
	}
	if a.Sync != nil {
		a.Sync.Stop()
	}
	if a.tab != nil {
		a.tab.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("kv_close_failed", "error", err)
		}
	}
}
