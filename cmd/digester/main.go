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

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"newsdigest/internal/api"
	"newsdigest/internal/config"
	"newsdigest/internal/publisher"
	"newsdigest/internal/ratelimit"
	"newsdigest/internal/scheduler"
	"newsdigest/internal/seen"
	"newsdigest/internal/service"
	"newsdigest/internal/source/newsdata"
	mongostore "newsdigest/internal/storage/mongo"
	"newsdigest/internal/storage/postgres"
	"newsdigest/internal/summarizer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "create a single digest and exit")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	// Initialize stores
	articleStore := postgres.NewArticleStore(db)
	digestStore := postgres.NewDigestStore(db, articleStore)
	txManager := postgres.NewTransactionManager(db)

	seenBackend, err := setupSeenStore(ctx, cfg, db)
	if err != nil {
		logger.Error("failed to set up seen store", "backend", cfg.Seen.Backend, "error", err)
		os.Exit(1)
	}
	defer seenBackend.close()
	seenCache := seen.NewCache(seenBackend.store, cfg.Seen.TTL)

	// RabbitMQ is optional; digests are still stored without it.
	var digestPublisher service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		digestPublisher = rabbitMQ
	}

	newsSource := newsdata.New(newsdata.Config{
		BaseURL:        cfg.News.BaseURL,
		APIKey:         cfg.News.APIKey,
		Language:       cfg.News.Language,
		Timeout:        cfg.News.Timeout,
		MaxAttempts:    cfg.News.Retry.MaxAttempts,
		InitialBackoff: cfg.News.Retry.InitialBackoff,
		MaxBackoff:     cfg.News.Retry.MaxBackoff,
	}, logger)

	var enricher summarizer.Enricher
	if cfg.Summarizer.EnrichEmptyBody {
		enricher = summarizer.NewReadabilityEnricher(cfg.Summarizer.EnrichTimeout)
	}

	chat := summarizer.New(summarizer.Config{
		Endpoint:     cfg.LLM.Endpoint,
		APIKey:       cfg.LLM.APIKey,
		Model:        cfg.LLM.Model,
		SystemPrompt: cfg.LLM.SystemPrompt,
		MaxTokens:    cfg.LLM.MaxTokens,
		Temperature:  *cfg.LLM.Temperature,
		Timeout:      cfg.LLM.Timeout,
		MaxBodyChars: cfg.Summarizer.MaxBodyChars,
	}, enricher, logger)

	location := cfg.Digest.Location()

	digestService := service.NewDigestService(
		newsSource,
		chat,
		seenCache,
		articleStore,
		digestStore,
		txManager,
		digestPublisher,
		ratelimit.New(*cfg.Summarizer.MinInterval, ratelimit.RealClock),
		logger,
		location,
	)

	sched, err := scheduler.NewScheduler(digestService, seenBackend.purger, scheduler.Config{
		Cron:        cfg.Schedule.Cron,
		CleanupCron: cfg.Schedule.CleanupCron,
		RunOnStart:  cfg.Schedule.RunOnStart,
		RunTimeout:  cfg.Schedule.RunTimeout,
		Location:    location,
	}, logger)
	if err != nil {
		logger.Error("failed to set up scheduler", "error", err)
		os.Exit(1)
	}

	if *once {
		result := sched.RunDigest(ctx)
		if result.Status != scheduler.StatusSuccess {
			os.Exit(1)
		}
		return
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(digestService, digestStore, articleStore, db, seenBackend.pinger, logger)
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewRouter(handler, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	logger.Info("starting news digester",
		"source", newsSource.Name(),
		"model", cfg.LLM.Model,
		"seen_backend", cfg.Seen.Backend,
		"schedule_enabled", cfg.Schedule.Enabled,
		"timezone", location.String(),
	)

	if cfg.Schedule.Enabled {
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler error", "error", err)
		}
	} else {
		<-ctx.Done()
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}

type seenBackend struct {
	store  seen.Store
	// purger is nil for backends that expire entries on their own.
	purger scheduler.SeenPurger
	// pinger is set for backends reachable outside the main database.
	pinger api.SeenPinger
	close  func()
}

// setupSeenStore picks the seen marker backend.
func setupSeenStore(ctx context.Context, cfg *config.Config, db *sqlx.DB) (seenBackend, error) {
	switch cfg.Seen.Backend {
	case "mongo":
		store, err := mongostore.NewSeenStore(ctx, mongostore.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			return seenBackend{}, err
		}
		return seenBackend{
			store:  store,
			pinger: store,
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = store.Close(closeCtx)
			},
		}, nil
	case "memory":
		return seenBackend{store: seen.NewMemoryStore(time.Now), close: func() {}}, nil
	default:
		store := postgres.NewSeenStore(db)
		return seenBackend{store: store, purger: store, close: func() {}}, nil
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
