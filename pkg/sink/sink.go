// Package sink provides the append-only destinations for normalized
// aanbod records.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/zig365-aanbod/pkg/listing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for sink operations.
var (
	sinkPushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aanbod_sink_pushes_total",
		Help: "Total records pushed to the sink by kind and result",
	}, []string{"kind", "result"})
)

// ErrRejected is returned when a sink refuses a record without a more
// specific cause.
var ErrRejected = errors.New("record rejected by sink")

// Sink accepts records one at a time, in order. A Push either stores the
// whole record or returns an error. Sinks never deduplicate.
type Sink interface {
	Push(ctx context.Context, record listing.Record) error
	Close() error
}

// Kind names a sink implementation.
type Kind string

const (
	KindMemory   Kind = "memory"
	KindJSONL    Kind = "jsonl"
	KindCSV      Kind = "csv"
	KindRedis    Kind = "redis"
	KindPostgres Kind = "postgres"
	KindRabbitMQ Kind = "rabbitmq"
	KindFluent   Kind = "fluent"
)

// Config selects and configures a sink.
type Config struct {
	Kind  Kind
	RunID string

	// OutputPath is used by jsonl and csv; empty or "-" means stdout.
	OutputPath string

	RedisURL string
	RedisKey string

	DatabaseURL   string
	PostgresTable string

	RabbitMQURL        string
	RabbitMQExchange   string
	RabbitMQRoutingKey string

	FluentHost string
	FluentPort int
	FluentTag  string
}

// DefaultConfig returns a JSON-lines sink on stdout.
func DefaultConfig() Config {
	return Config{
		Kind:               KindJSONL,
		OutputPath:         "-",
		RedisKey:           "aanbod:listings",
		PostgresTable:      "aanbod_listings",
		RabbitMQRoutingKey: "aanbod.listings",
		FluentPort:         24224,
		FluentTag:          "aanbod.listing",
	}
}

// ParseKind normalizes a sink kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindMemory, KindJSONL, KindCSV, KindRedis, KindPostgres, KindRabbitMQ, KindFluent:
		return k, nil
	case "":
		return KindJSONL, nil
	default:
		return "", fmt.Errorf("unknown sink kind %q", s)
	}
}

// Open builds the sink described by cfg.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	var (
		s   Sink
		err error
	)

	switch cfg.Kind {
	case KindMemory:
		s = NewMemory()
	case KindJSONL, "":
		s, err = OpenJSONLines(cfg.OutputPath)
	case KindCSV:
		s, err = OpenCSV(cfg.OutputPath)
	case KindRedis:
		s, err = OpenRedis(ctx, cfg.RedisURL, cfg.RedisKey)
	case KindPostgres:
		s, err = OpenPostgres(ctx, cfg.DatabaseURL, cfg.PostgresTable, cfg.RunID)
	case KindRabbitMQ:
		s, err = OpenRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQRoutingKey, cfg.RunID)
	case KindFluent:
		s, err = OpenFluent(cfg.FluentHost, cfg.FluentPort, cfg.FluentTag, cfg.RunID)
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s sink: %w", cfg.Kind, err)
	}

	kind := cfg.Kind
	if kind == "" {
		kind = KindJSONL
	}
	return &instrumented{Sink: s, kind: kind}, nil
}

// instrumented counts pushes per kind and result.
type instrumented struct {
	Sink
	kind Kind
}

func (i *instrumented) Push(ctx context.Context, record listing.Record) error {
	if err := i.Sink.Push(ctx, record); err != nil {
		sinkPushesTotal.WithLabelValues(string(i.kind), "error").Inc()
		return err
	}
	sinkPushesTotal.WithLabelValues(string(i.kind), "ok").Inc()
	return nil
}
