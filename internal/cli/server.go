package cli

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/config"
	"ai-quiz-service/internal/generator"
	"ai-quiz-service/internal/infra/memory"
	"ai-quiz-service/internal/infra/postgres"
	infraredis "ai-quiz-service/internal/infra/redis"
	"ai-quiz-service/internal/session"
	transport "ai-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

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

// stores is the storage stack picked from config: Postgres as the store of record when
// configured, Redis as cache (or as the store without Postgres), memory otherwise.
type stores struct {
	quizzes  app.QuizRepository
	attempts app.AttemptRepository
	sessions app.SessionRegistry
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildStores(ctx context.Context, cfg config.Config) (*stores, error) {
	st := &stores{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var backing app.QuizRepository
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		backing = postgres.NewQuizStore(pool)

		db := postgres.OpenBun(cfg.Postgres.URL)
		st.closers = append(st.closers, func() { _ = db.Close() })
		st.attempts = postgres.NewAttemptStore(db)
	}

	switch {
	case redisClient != nil:
		st.quizzes = infraredis.NewQuizStore(redisClient, backing, quizTTL)
		st.sessions = infraredis.NewSessionRegistry(redisClient, redisTTL)
		if st.attempts == nil {
			st.attempts = infraredis.NewAttemptStore(redisClient)
		}
	case backing != nil:
		st.quizzes = memory.NewCachedQuizStore(backing, quizTTL)
	default:
		st.quizzes = memory.NewQuizStore()
	}
	if st.sessions == nil {
		st.sessions = memory.NewSessionRegistry()
	}
	if st.attempts == nil {
		st.attempts = memory.NewAttemptStore()
	}
	return st, nil
}

func buildGenerator(cfg config.Config) *generator.Service {
	seed := cfg.Generator.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var provider generator.Provider
	if strings.EqualFold(cfg.Generator.Provider, "openai") && cfg.Generator.APIKey != "" {
		provider = generator.NewOpenAIProvider(cfg.Generator.BaseURL, cfg.Generator.APIKey, cfg.Generator.Model)
	} else {
		slog.Info("no generation provider configured, using template generator")
	}
	timeout := config.TTLDuration(cfg.Generator.Timeout, generator.DefaultProviderTimeout)
	return generator.NewService(provider, rand.New(rand.NewSource(seed)), timeout)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	service := app.NewQuizService(st.quizzes, st.attempts, buildGenerator(cfg),
		app.WithSynthesizeMissing(cfg.Quiz.SynthesizeMissing),
		app.WithDefaultDuration(cfg.Quiz.DefaultDurationMinutes),
	)
	wsHandler := transport.NewWSHandler(service, st.sessions,
		transport.WithSubmitTimeout(config.TTLDuration(cfg.Session.SubmitTimeout, session.DefaultSubmitTimeout)),
	)
	requestTimeout := config.TTLDuration(cfg.Server.RequestTimeout, 15*time.Second)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, st.sessions, wsHandler, requestTimeout),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
