package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/zig365-aanbod/pkg/client"
	"github.com/Sternrassler/zig365-aanbod/pkg/input"
	"github.com/Sternrassler/zig365-aanbod/pkg/logging"
	"github.com/Sternrassler/zig365-aanbod/pkg/metrics"
	"github.com/Sternrassler/zig365-aanbod/pkg/pagination"
	"github.com/Sternrassler/zig365-aanbod/pkg/sink"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type config struct {
	Settings   input.Settings
	Client     client.Config
	Sink       sink.Config
	StatusAddr string
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	logging.Setup(logging.ConfigFromEnv(os.Getenv))
	logger := logging.NewLogger("main")

	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := sink.Open(ctx, cfg.Sink)
	if err != nil {
		logger.Error().Err(err).Str("sink", string(cfg.Sink.Kind)).Msg("Failed to open sink")
		os.Exit(1)
	}

	_, runErr := run(ctx, cfg, out)

	if err := out.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close sink")
	}
	if runErr != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig assembles the run configuration from the environment.
func loadConfig(getenv func(string) string) (config, error) {
	in, err := input.FromEnv(getenv)
	if err != nil {
		return config{}, err
	}
	settings := input.Resolve(in)

	clientCfg := client.DefaultConfig(settings.Limit)
	clientCfg.BaseURL = getEnv(getenv, "AANBOD_BASE_URL", client.DefaultBaseURL)
	clientCfg.UserAgent = getEnv(getenv, "USER_AGENT", clientCfg.UserAgent)

	kind, err := sink.ParseKind(getenv("SINK_KIND"))
	if err != nil {
		return config{}, err
	}

	sinkCfg := sink.DefaultConfig()
	sinkCfg.Kind = kind
	sinkCfg.RunID = uuid.NewString()
	sinkCfg.OutputPath = getEnv(getenv, "OUTPUT_PATH", sinkCfg.OutputPath)
	sinkCfg.RedisURL = getEnv(getenv, "REDIS_URL", "localhost:6379")
	sinkCfg.RedisKey = getEnv(getenv, "REDIS_KEY", sinkCfg.RedisKey)
	sinkCfg.DatabaseURL = getenv("DATABASE_URL")
	sinkCfg.PostgresTable = getEnv(getenv, "POSTGRES_TABLE", sinkCfg.PostgresTable)
	sinkCfg.RabbitMQURL = getenv("RABBITMQ_URL")
	sinkCfg.RabbitMQExchange = getenv("RABBITMQ_EXCHANGE")
	sinkCfg.RabbitMQRoutingKey = getEnv(getenv, "RABBITMQ_ROUTING_KEY", sinkCfg.RabbitMQRoutingKey)
	sinkCfg.FluentHost = getEnv(getenv, "FLUENT_HOST", "localhost")
	sinkCfg.FluentTag = getEnv(getenv, "FLUENT_TAG", sinkCfg.FluentTag)
	if port := getenv("FLUENT_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return config{}, fmt.Errorf("invalid FLUENT_PORT %q: %w", port, err)
		}
		sinkCfg.FluentPort = p
	}

	return config{
		Settings:   settings,
		Client:     clientCfg,
		Sink:       sinkCfg,
		StatusAddr: getenv("STATUS_ADDR"),
	}, nil
}

// run executes one collector run, serving /health and /metrics on
// StatusAddr while it lasts.
func run(ctx context.Context, cfg config, out sink.Sink) (pagination.Result, error) {
	logger := logging.NewLogger("main")

	apiClient, err := client.New(cfg.Client)
	if err != nil {
		return pagination.Result{}, fmt.Errorf("create client: %w", err)
	}

	collector := pagination.NewCollector(apiClient, out, pagination.Config{
		MaxPages: cfg.Settings.MaxPages,
		Limit:    cfg.Settings.Limit,
		RunID:    cfg.Sink.RunID,
	})

	if cfg.StatusAddr != "" {
		server := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           newRouter(collector.State),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.StatusAddr).Msg("Starting status server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn().Err(err).Msg("Status server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("Status server shutdown failed")
			}
		}()
	}

	result, err := collector.Run(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("run_id", result.RunID).
			Int("pages_processed", result.Pages).
			Int("total_records", result.Records).
			Msg("Aanbod run failed")
		return result, err
	}
	return result, nil
}

func newRouter(state func() pagination.State) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/status", statusHandler(state))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func statusHandler(state func() pagination.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"state":%q}`, state())
	}
}

func getEnv(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}
