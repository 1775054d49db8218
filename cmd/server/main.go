package main

import (
	"context"
	"log"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/signalrelay/authgate/api/handler"
	"github.com/signalrelay/authgate/internal/config"
	"github.com/signalrelay/authgate/internal/infrastructure/journal"
	"github.com/signalrelay/authgate/internal/infrastructure/monitor"
	pgInfra "github.com/signalrelay/authgate/internal/infrastructure/postgres"
	redisInfra "github.com/signalrelay/authgate/internal/infrastructure/redis"
	"github.com/signalrelay/authgate/internal/middleware"
	"github.com/signalrelay/authgate/internal/router"
	"github.com/signalrelay/authgate/internal/services"
	"github.com/signalrelay/authgate/internal/services/lifecycle"
	"github.com/signalrelay/authgate/pkg/httpcontext"
	"github.com/signalrelay/authgate/pkg/identity"
	"github.com/signalrelay/authgate/pkg/logger"
	"github.com/signalrelay/authgate/repository"
	boltRepo "github.com/signalrelay/authgate/repository/bolt"
	pgRepo "github.com/signalrelay/authgate/repository/postgres"
	redisRepo "github.com/signalrelay/authgate/repository/redis"
	"github.com/signalrelay/authgate/usecase"
	profileUC "github.com/signalrelay/authgate/usecase/profile"
	signupUC "github.com/signalrelay/authgate/usecase/signup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	var store repository.ProfileStore
	var journalStore *journal.Store

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
		pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.Register("postgres", func(ctx context.Context) error {
			pool.Close()
			return nil
		})
		store = pgRepo.NewProfileStore(pool)

		journalStore, err = journal.Open(cfg.Journal.Path, "journal")
		if err != nil {
			zapLogger.Fatal("failed to open write journal", zap.Error(err))
		}
		manager.Register("journal", func(ctx context.Context) error {
			return journalStore.Close()
		})

	default:
		boltStore, closeStore, err := boltRepo.Open(cfg.Store.BoltPath)
		if err != nil {
			zapLogger.Fatal("failed to open profile store", zap.Error(err))
		}
		manager.Register("profile_store", func(ctx context.Context) error {
			return closeStore()
		})
		store = boltStore
	}

	var redisClient *goRedis.Client
	var identityCache repository.IdentityCache
	if cfg.Redis.Enabled && cfg.Identity.JWTSecret == "" {
		redisClient, err = redisInfra.NewClient(cfg.Redis)
		if err != nil {
			zapLogger.Warn("redis unavailable, token cache disabled", zap.Error(err))
		} else {
			manager.Register("redis", func(ctx context.Context) error {
				return redisClient.Close()
			})
			identityCache = redisRepo.NewIdentityCache(redisClient, cfg.Redis.TokenTTL)
		}
	}

	mon := monitor.New(store, redisClient, journalStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	var writeJournal *services.Writeback
	if journalStore != nil {
		writeJournal = services.NewWriteback(journalStore, mon, store, zapLogger, services.WritebackConfig{
			Interval:   cfg.Journal.SyncInterval,
			BatchSize:  50,
			MaxRetries: cfg.Journal.MaxRetry,
		})
		writeJournal.Start()
		manager.Register("writeback", func(ctx context.Context) error {
			writeJournal.Stop(ctx)
			return nil
		})
	}

	idp := identity.NewClient(cfg.Identity.URL, cfg.Identity.ServiceKey, cfg.Identity.Timeout, zapLogger)

	signupService := signupUC.New(idp, store, journalPort(writeJournal), zapLogger)
	profileService := profileUC.New(store, journalPort(writeJournal), zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Signup:  apiHandler.NewSignupHandler(signupService, ctxAdapter, zapLogger),
		Profile: apiHandler.NewProfileHandler(profileService, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.BearerAuth(idp, identityCache, middleware.Config{
		JWTSecret: cfg.Identity.JWTSecret,
		Timeout:   cfg.Identity.Timeout,
	}, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("store_driver", cfg.Store.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// journalPort avoids handing use cases a non-nil interface around a nil
// *Writeback.
func journalPort(wb *services.Writeback) usecase.WriteJournal {
	if wb == nil {
		return nil
	}
	return wb
}
