package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/UkralStul/strings-feed-service/graph"
	"github.com/UkralStul/strings-feed-service/internal/account"
	"github.com/UkralStul/strings-feed-service/internal/auth"
	"github.com/UkralStul/strings-feed-service/internal/cache"
	"github.com/UkralStul/strings-feed-service/internal/config"
	"github.com/UkralStul/strings-feed-service/internal/dataloader"
	"github.com/UkralStul/strings-feed-service/internal/events"
	"github.com/UkralStul/strings-feed-service/internal/feed"
	"github.com/UkralStul/strings-feed-service/internal/storage"
	"github.com/UkralStul/strings-feed-service/internal/storage/inmemory"
	"github.com/UkralStul/strings-feed-service/internal/storage/mongodb"
	"github.com/UkralStul/strings-feed-service/internal/storage/postgres"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config", "error", err)
		os.Exit(1)
	}

	storageType := flag.String("storage", cfg.Storage, "Storage type (in-memory, mongo or postgres)")
	flag.Parse()
	cfg.Storage = *storageType
	if err := cfg.Validate(); err != nil {
		log.ErrorContext(ctx, "Invalid config", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorContext(ctx, "Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.InfoContext(ctx, "Starting server", "storage", cfg.Storage, "cache", cfg.Cache)

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.ErrorContext(ctx, "Failed to close storage", "error", err)
		}
	}()

	feedCache, closeCache, err := initCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	accounts := account.New(store, tokens, log)

	var publisher events.Publisher = events.Nop{}
	var broker *events.NATS
	if cfg.NATSURL != "" {
		broker, err = events.NewNATS(cfg.NATSURL, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := broker.Close(); err != nil {
				log.ErrorContext(ctx, "Failed to close NATS connection", "error", err)
			}
		}()
		publisher = broker
	} else {
		log.WarnContext(ctx, "NATS_URL is missing so post events are not published", "env_var", "NATS_URL")
	}

	feedService := feed.New(store, feedCache, feed.Config{
		TTL:       cfg.FeedCacheTTL,
		Publisher: publisher,
		Logger:    log,
	})

	if broker != nil {
		sub, err := broker.ListenInvalidations(ctx, feedService)
		if err != nil {
			return err
		}
		defer func() { _ = sub.Unsubscribe() }()
		log.InfoContext(ctx, "Listening for feed invalidations", "instance", broker.Origin())
	}

	if cfg.Seed {
		if cfg.Storage != config.StorageInMemory {
			log.WarnContext(ctx, "SEED is only applied to in-memory storage", "storage", cfg.Storage)
		} else if err := fillWithMockData(ctx, accounts, feedService, log); err != nil {
			return err
		}
	}

	resolver := &graph.Resolver{
		Feed:     feedService,
		Accounts: accounts,
		Gate:     auth.NewGate(tokens, store),
		Users:    store,
		Observer: graph.NewCommentObserver(),
	}
	srv := graph.NewServer(resolver, log)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(auth.Middleware)

	router.Handle("/", playground.Handler("GraphQL playground", "/query"))
	router.Handle("/query", dataloader.Middleware(store, srv))
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "Connect to the GraphQL playground", "url", "http://localhost:"+cfg.Port+"/")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "Shutdown signal is received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.InfoContext(shutdownCtx, "Server is stopped")
	return nil
}

func initStorage(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	switch cfg.Storage {
	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return mongodb.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StoragePostgres:
		return postgres.New(cfg.DatabaseURL)
	default:
		return inmemory.New(), nil
	}
}

func initCache(ctx context.Context, cfg config.Config) (cache.Cache, func(), error) {
	if cfg.Cache != config.CacheRedis {
		return cache.NewMemory(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	r, err := cache.NewRedis(connectCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { _ = r.Close() }, nil
}
