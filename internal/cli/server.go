package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quizforge/internal/app"
	"quizforge/internal/config"
	"quizforge/internal/domain"
	"quizforge/internal/generator"
	"quizforge/internal/infra/memory"
	"quizforge/internal/infra/postgres"
	redisinfra "quizforge/internal/infra/redis"
	"quizforge/internal/logger"
	transport "quizforge/internal/transport/http"
)

// backingStore is the durable side of the server: quizzes, results and users.
type backingStore interface {
	app.QuizStore
	app.ResultStore
	app.UserStore
}

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer log.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	checks := map[string]transport.HealthCheck{}

	var store backingStore = memory.NewStoreWithQuizzes(sampleQuizzes())
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
		checks["postgres"] = pool.Ping
		log.Info("using postgres storage")
	} else {
		log.Warn("postgres url not configured, using in-memory storage with a demo quiz")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var denylist app.TokenDenylist
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		quizRepo = redisinfra.NewQuizRepository(redisClient, store, config.TTLDuration(cfg.Redis.TTL, quizTTL), log)
		denylist = redisinfra.NewTokenDenylist(redisClient)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		quizRepo = memory.NewQuizRepository(store, quizTTL)
		denylist = memory.NewTokenDenylist()
	}

	var gen app.Generator
	if cfg.Generation.APIKey != "" {
		gen = generator.NewClient(
			cfg.Generation.Endpoint,
			cfg.Generation.APIKey,
			config.TTLDuration(cfg.Generation.Timeout, 60*time.Second),
			log.Named("generator"),
		)
	} else {
		log.Warn("generation api key not configured, quiz generation disabled")
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("jwt secret not configured, tokens will not survive a restart")
	}
	auth := app.NewAuthService(store, denylist, secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	service := app.NewQuizService(quizRepo, store, store, gen)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.Deps{
			Quizzes:             service,
			Auth:                auth,
			Log:                 log,
			Registry:            registry,
			PublicURL:           cfg.Server.PublicURL,
			GenerationPerMinute: cfg.Generation.PerMinute,
			Checks:              checks,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// sampleQuizzes seeds the in-memory store so a fresh server has something to take.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo": {
			Topic:     "Warm-up",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Questions: []domain.Question{
				{ID: 1, Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5", "22"}, CorrectAnswer: 1},
				{ID: 2, Prompt: "Which planet is closest to the sun?", Options: []string{"Venus", "Earth", "Mercury", "Mars"}, CorrectAnswer: 2},
			},
		},
	}
}
