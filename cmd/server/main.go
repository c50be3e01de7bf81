package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/skillswap-ratings/internal/config"
	"github.com/Clark-Hu/skillswap-ratings/internal/directory"
	httpserver "github.com/Clark-Hu/skillswap-ratings/internal/http"
	"github.com/Clark-Hu/skillswap-ratings/internal/rating"
	"github.com/Clark-Hu/skillswap-ratings/internal/repository"
	"github.com/Clark-Hu/skillswap-ratings/internal/repository/memory"
	"github.com/Clark-Hu/skillswap-ratings/internal/store"
)

// backend groups what the selected store driver provides.
type backend struct {
	ratings   rating.Store
	directory rating.Directory
	writer    directory.Writer
	health    httpserver.HealthChecker
	close     func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer be.close()

	if cfg.FixturesFile != "" {
		fixtures, err := directory.LoadFixtures(cfg.FixturesFile)
		if err != nil {
			logger.Fatal("load fixtures", zap.Error(err))
		}
		if err := directory.Seed(ctx, be.writer, fixtures); err != nil {
			logger.Fatal("seed fixtures", zap.Error(err))
		}
		logger.Info("fixtures loaded",
			zap.String("file", cfg.FixturesFile),
			zap.Int("users", len(fixtures.Users)),
			zap.Int("listings", len(fixtures.Listings)),
			zap.Int("sessions", len(fixtures.Sessions)),
		)
	}

	dir := be.directory
	var remote *directory.HTTPClient
	if cfg.DirectoryURL != "" {
		remote, err = directory.NewHTTPClient(cfg.DirectoryURL, cfg.DirectoryAPIKey, time.Duration(cfg.DirectoryTimeout)*time.Second, logger)
		if err != nil {
			logger.Fatal("init directory client", zap.Error(err))
		}
		dir = directory.NewMirror(remote, be.writer)
		logger.Info("using remote directory", zap.String("url", cfg.DirectoryURL))
	}

	svc := rating.NewService(be.ratings, dir, rating.Options{Logger: logger})
	server := httpserver.New(cfg, be.health, svc, logger)
	if remote != nil {
		server.AddHealthCheck("directory", remote)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, err
	}
	return zcfg.Build()
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	if cfg.StoreDriver == config.DriverMemory {
		repo := memory.New()
		logger.Warn("using in-memory store; data is lost on restart")
		return backend{ratings: repo, directory: repo, writer: repo, health: repo, close: func() {}}, nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return backend{}, err
	}
	if cfg.DBAutoMigrate {
		if err := st.Migrate(dbCtx); err != nil {
			st.Close()
			return backend{}, err
		}
	}

	repo := repository.New(st)
	return backend{
		ratings:   repo.Ratings,
		directory: repo.Directory,
		writer:    repo.Directory,
		health:    st,
		close:     st.Close,
	}, nil
}
