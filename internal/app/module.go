// Package app composes the application: configuration, storage, state
// holders, assistant, identity and the TUI, tied together with fx.
package app

import (
	"context"
	"os"
	"time"

	"github.com/zxweb/zx/internal/assistant"
	"github.com/zxweb/zx/internal/bus"
	"github.com/zxweb/zx/internal/call"
	"github.com/zxweb/zx/internal/chat"
	"github.com/zxweb/zx/internal/config"
	"github.com/zxweb/zx/internal/identity"
	"github.com/zxweb/zx/internal/lock"
	"github.com/zxweb/zx/internal/logging"
	"github.com/zxweb/zx/internal/persist"
	"github.com/zxweb/zx/internal/profile"
	"github.com/zxweb/zx/internal/roster"
	"github.com/zxweb/zx/internal/tui"
	"github.com/zxweb/zx/internal/tui/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("zx",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideDB,
			provideRoster,
			provideChatStore,
			provideCallMachine,
			provideCallLog,
			provideCallSession,
			provideIdentity,
			provideResponder,
			provideAutoResponder,
			provideViewModel,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() *config.Config {
	return config.LoadOrDefaults(profile.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	// File only; the TUI owns the terminal.
	return logging.NewFileOnly(profile.LogPath(p.Profile), p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideDB(p Params, logger *zap.Logger) (*persist.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := persist.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("snapshot store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRoster(b *bus.Bus) *roster.Roster {
	return roster.New(b)
}

func provideChatStore(b *bus.Bus) *chat.Store {
	return chat.NewStore(b)
}

func provideCallMachine(b *bus.Bus) *call.Machine {
	return call.NewMachine(b)
}

func provideCallLog(b *bus.Bus) *call.Log {
	return call.NewLog(b)
}

func provideCallSession(m *call.Machine, l *call.Log) *call.Session {
	return call.NewSession(m, l)
}

func provideIdentity(cfg *config.Config, b *bus.Bus, logger *zap.Logger) *identity.Manager {
	client := identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.APIKey, logger)
	if client.Simulated() {
		logger.Info("identity provider in simulated mode")
	}
	return identity.NewManager(client, b, logger)
}

func provideResponder(cfg *config.Config, logger *zap.Logger) assistant.Responder {
	apiKey := os.Getenv(cfg.Assistant.APIKeyEnv)
	return assistant.NewClient(cfg.Assistant.BaseURL, cfg.Assistant.Model, apiKey, logger)
}

func provideAutoResponder(store *chat.Store, r *roster.Roster, responder assistant.Responder, b *bus.Bus, logger *zap.Logger) *assistant.AutoResponder {
	return assistant.NewAutoResponder(store, r, responder, b, logger)
}

func provideViewModel(store *chat.Store, r *roster.Roster, mgr *identity.Manager, auto *assistant.AutoResponder, session *call.Session, calls *call.Log) *model.ViewModel {
	return model.NewViewModel(store, r, mgr, auto, session, calls)
}

func provideApp(p Params, vm *model.ViewModel, b *bus.Bus, logger *zap.Logger) *tui.App {
	return tui.NewApp(vm, b, p.Profile, logger)
}

func registerLifecycle(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	db *persist.DB,
	store *chat.Store,
	ros *roster.Roster,
	calls *call.Log,
	mgr *identity.Manager,
	auto *assistant.AutoResponder,
	vm *model.ViewModel,
	ui *tui.App,
	lk *lock.Lock,
	b *bus.Bus,
	cfg *config.Config,
	logger *zap.Logger,
) {
	saver := persist.NewAutosaver(db, func() *persist.Snapshot {
		snap := &persist.Snapshot{
			Contacts: ros.Snapshot(),
			Chats:    store.Snapshot(),
			Theme:    vm.Theme(),
			Calls:    calls.Snapshot(),
		}
		if u, ok := mgr.Current(); ok {
			snap.User = &u
		}
		return snap
	}, b, logger, 500*time.Millisecond)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			snap, err := db.Load()
			if err != nil {
				return err
			}
			restoreSnapshot(snap, vm, ros, store, calls, mgr, cfg.DefaultTheme, logger)

			// A fresh sign-in also gets the default contacts and
			// conversations.
			seedOnFreshLogin(b, ros, store, calls, logger)

			auto.Start(context.Background())
			saver.Start(context.Background())

			go func() {
				if err := ui.Run(); err != nil {
					logger.Error("tui error", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()

			logger.Info("client started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			ui.Stop()
			auto.Stop()
			saver.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing snapshot store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}

// restoreSnapshot installs persisted state. Sections the snapshot lost
// (absent or undecodable rows) stay empty here; when an identity survives,
// the empty sections fall back to their seeded defaults so a partial
// snapshot never strands the user without contacts or conversations.
func restoreSnapshot(
	snap *persist.Snapshot,
	vm *model.ViewModel,
	ros *roster.Roster,
	store *chat.Store,
	calls *call.Log,
	mgr *identity.Manager,
	defaultTheme string,
	logger *zap.Logger,
) {
	if snap.Theme != "" {
		vm.SetTheme(snap.Theme)
	} else {
		vm.SetTheme(defaultTheme)
	}
	if len(snap.Contacts) > 0 {
		ros.Restore(snap.Contacts)
	}
	if len(snap.Chats) > 0 {
		store.Restore(snap.Chats)
	}
	if len(snap.Calls) > 0 {
		calls.Restore(snap.Calls)
	}
	if snap.User == nil {
		return
	}
	if err := mgr.Restore(*snap.User); err != nil {
		logger.Warn("restoring identity failed", zap.Error(err))
		return
	}
	seedDefaults(ros, store, calls, *snap.User, logger)
}

// seedOnFreshLogin populates defaults the first time an identity signs in.
func seedOnFreshLogin(b *bus.Bus, ros *roster.Roster, store *chat.Store, calls *call.Log, logger *zap.Logger) {
	events, unsub := b.Subscribe("auth.signed_in", 8)
	go func() {
		defer unsub()
		for evt := range events {
			change, ok := evt.Payload.(identity.Change)
			if !ok || !change.Fresh {
				continue
			}
			seedDefaults(ros, store, calls, change.User, logger)
		}
	}()
}

// seedDefaults fills whichever state holders are still empty. Populated
// ones are left untouched, so restored state never gets reseeded.
func seedDefaults(ros *roster.Roster, store *chat.Store, calls *call.Log, user roster.User, logger *zap.Logger) {
	ros.Seed()
	self := user
	self.ID = chat.SelfID
	store.Seed(self)
	calls.Seed()
	logger.Info("seeded defaults for empty state", zap.String("user", user.ID))
}
