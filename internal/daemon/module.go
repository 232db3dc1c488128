package daemon

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/auth"
	"github.com/huddlehq/huddle/internal/blob"
	"github.com/huddlehq/huddle/internal/bus"
	"github.com/huddlehq/huddle/internal/config"
	"github.com/huddlehq/huddle/internal/directory"
	"github.com/huddlehq/huddle/internal/httpapi"
	"github.com/huddlehq/huddle/internal/lock"
	"github.com/huddlehq/huddle/internal/logging"
	"github.com/huddlehq/huddle/internal/messaging"
	"github.com/huddlehq/huddle/internal/realtime"
	"github.com/huddlehq/huddle/internal/status"
	"github.com/huddlehq/huddle/internal/store"
)

// Params holds the resolved configuration passed to the fx module.
type Params struct {
	Config *config.Config
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideFeed,
			provideRelay,
			provideAuth,
			provideDirectory,
			provideResolver,
			provideReadState,
			provideStream,
			provideAggregator,
			provideBlobs,
			provideServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(p.Config.LogPath())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring data directory lock", zap.String("dir", p.Config.DataDir))
	l, err := lock.Acquire(p.Config.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data directory lock acquired")
	return l, nil
}

func provideStore(p Params, machine *status.Machine, logger *zap.Logger) (*store.DB, error) {
	_ = machine.Transition(status.Migrating)

	dbPath := p.Config.DBPath()
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		_ = machine.Transition(status.Error)
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

// provideFeed dials NATS. A failed connection is not fatal: the daemon runs
// degraded with websockets disabled and clients polling.
func provideFeed(p Params, logger *zap.Logger) *realtime.Feed {
	feed, err := realtime.Connect(p.Config.NATSURL, logger)
	if err != nil {
		logger.Warn("realtime feed unavailable, running degraded",
			zap.String("url", p.Config.NATSURL), zap.Error(err))
		return nil
	}
	logger.Info("realtime feed connected", zap.String("url", p.Config.NATSURL))
	return feed
}

func provideRelay(feed *realtime.Feed, b *bus.Bus, logger *zap.Logger) *realtime.Relay {
	if feed == nil {
		return nil
	}
	return realtime.NewRelay(feed, b, logger)
}

func provideAuth(p Params, db *store.DB) *auth.Service {
	return auth.NewService(db, p.Config.JWTSecret, 24*time.Hour)
}

func provideDirectory(db *store.DB) *directory.Directory {
	return directory.New(db)
}

func provideResolver(db *store.DB, dir *directory.Directory, logger *zap.Logger) *messaging.Resolver {
	return messaging.NewResolver(db, dir, logger)
}

func provideReadState(db *store.DB) *messaging.ReadState {
	return messaging.NewReadState(db)
}

func provideStream(db *store.DB, b *bus.Bus, logger *zap.Logger) *messaging.Stream {
	return messaging.NewStream(db, b, logger)
}

func provideAggregator(db *store.DB, dir *directory.Directory, logger *zap.Logger) *messaging.Aggregator {
	return messaging.NewAggregator(db, dir, logger)
}

func provideBlobs(p Params) (*blob.Store, error) {
	return blob.New(p.Config.UploadDir, p.Config.PublicBaseURL)
}

func provideServer(
	p Params,
	logger *zap.Logger,
	db *store.DB,
	authSvc *auth.Service,
	dir *directory.Directory,
	resolver *messaging.Resolver,
	readState *messaging.ReadState,
	stream *messaging.Stream,
	aggregator *messaging.Aggregator,
	blobs *blob.Store,
	feed *realtime.Feed,
	machine *status.Machine,
) *httpapi.Server {
	return httpapi.NewServer(p.Config.ListenAddr, httpapi.Deps{
		Logger:     logger,
		DB:         db,
		Auth:       authSvc,
		Directory:  dir,
		Resolver:   resolver,
		ReadState:  readState,
		Stream:     stream,
		Aggregator: aggregator,
		Blobs:      blobs,
		Feed:       feed,
		Machine:    machine,
	})
}

func registerLifecycle(lc fx.Lifecycle, srv *httpapi.Server, lk *lock.Lock, feed *realtime.Feed, relay *realtime.Relay, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			_ = machine.Transition(status.Connecting)

			if feed != nil {
				relay.Start(context.Background())
				_ = machine.Transition(status.Ready)
			} else {
				_ = machine.Transition(status.Degraded)
			}

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if relay != nil {
				relay.Stop()
			}
			if err := srv.Stop(ctx); err != nil {
				logger.Warn("error stopping http server", zap.Error(err))
			}
			feed.Close()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
