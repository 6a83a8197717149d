package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/zig365-aanbod/pkg/client"
	"github.com/Sternrassler/zig365-aanbod/pkg/listing"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for collector runs.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aanbod_pages_fetched_total",
		Help: "Total number of aanbod pages fetched and fully emitted",
	})

	recordsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aanbod_records_emitted_total",
		Help: "Total number of normalized records pushed to the sink",
	})

	recordsMissingFieldsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aanbod_records_missing_fields_total",
		Help: "Records with a missing optional field, by field",
	}, []string{"field"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aanbod_runs_total",
		Help: "Collector runs by terminal state",
	}, []string{"state"})
)

// ErrAlreadyRun is returned when Run is called on a collector that has
// already left the idle state.
var ErrAlreadyRun = errors.New("collector already run")

// PageFetcher fetches a single zero-based page.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (*client.Page, error)
}

// URLBuilder is implemented by fetchers that can report the URL of a page
// for error context.
type URLBuilder interface {
	PageURL(page int) string
}

// Sink receives normalized records in order.
type Sink interface {
	Push(ctx context.Context, record listing.Record) error
}

// Config holds collector configuration.
type Config struct {
	// MaxPages caps the number of pages fetched regardless of the API total.
	MaxPages int

	// Limit is the page size; only logged, the fetcher owns the request.
	Limit int

	// RunID labels log lines. A random id is generated when empty.
	RunID string
}

// Result summarizes a finished run.
type Result struct {
	RunID                  string
	State                  State
	Pages                  int
	Records                int
	RecordsWithMissingData int
	TotalCount             int
	Duration               time.Duration
}

// Collector runs the page loop once.
type Collector struct {
	fetcher PageFetcher
	sink    Sink
	config  Config
	logger  zerolog.Logger

	mu    sync.Mutex
	state State
}

// NewCollector creates a collector in the idle state.
func NewCollector(fetcher PageFetcher, sink Sink, config Config) *Collector {
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}

	return &Collector{
		fetcher: fetcher,
		sink:    sink,
		config:  config,
		logger: log.With().
			Str("component", "collector").
			Str("run_id", config.RunID).
			Logger(),
		state: StateIdle,
	}
}

// State returns the current run state.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RunID returns the identifier used in log lines for this run.
func (c *Collector) RunID() string {
	return c.config.RunID
}

func (c *Collector) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run fetches pages until min(page_count, MaxPages) pages were emitted.
// The first fetch or sink error aborts the run; records of earlier pages
// stay in the sink.
func (c *Collector) Run(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Result{RunID: c.config.RunID, State: c.State()}, ErrAlreadyRun
	}
	c.state = StateRunning
	c.mu.Unlock()

	start := time.Now()
	result := Result{RunID: c.config.RunID}

	c.logger.Info().
		Int("limit", c.config.Limit).
		Int("max_pages", c.config.MaxPages).
		Msg("Starting aanbod fetch")

	page := 0
	totalPages := 1

	for page < totalPages && page < c.config.MaxPages {
		c.logger.Info().
			Int("page", page).
			Int("total_pages", totalPages).
			Str("url", c.pageURL(page)).
			Msg("Fetching page")

		resp, err := c.fetcher.FetchPage(ctx, page)
		if err != nil {
			c.logFetchError(page, err)
			return c.fail(result, start), fmt.Errorf("fetch page %d: %w", page, err)
		}

		totalPages = resp.Metadata.PageCount
		result.TotalCount = resp.Metadata.TotalCount

		for _, item := range resp.Data {
			record := listing.Normalize(item)

			c.logger.Info().
				Str("id", record.ID.String()).
				Interface("stad", record.City).
				Interface("huur", record.Rent).
				Interface("reacties", record.Reactions).
				Msg("Listing found")

			if missing := record.MissingFields(); len(missing) > 0 {
				result.RecordsWithMissingData++
				for _, field := range missing {
					recordsMissingFieldsTotal.WithLabelValues(field).Inc()
				}
				c.logger.Debug().
					Str("id", record.ID.String()).
					Strs("missing_fields", missing).
					Msg("Listing has missing fields")
			}

			if err := c.sink.Push(ctx, record); err != nil {
				c.logger.Error().
					Err(err).
					Int("page", page).
					Str("id", record.ID.String()).
					Msg("Sink rejected record")
				return c.fail(result, start), fmt.Errorf("push record %s: %w", record.ID, err)
			}

			result.Records++
			recordsEmittedTotal.Inc()
		}

		page++
		result.Pages = page
		pagesFetchedTotal.Inc()
	}

	c.setState(StateCompleted)
	runsTotal.WithLabelValues(string(StateCompleted)).Inc()
	result.State = StateCompleted
	result.Duration = time.Since(start)

	c.logger.Info().
		Int("total_records", result.Records).
		Int("pages_processed", result.Pages).
		Int("records_with_missing_data", result.RecordsWithMissingData).
		Dur("duration", result.Duration).
		Msg("Finished fetching aanbod")

	return result, nil
}

func (c *Collector) fail(result Result, start time.Time) Result {
	c.setState(StateFailed)
	runsTotal.WithLabelValues(string(StateFailed)).Inc()
	result.State = StateFailed
	result.Duration = time.Since(start)
	return result
}

func (c *Collector) pageURL(page int) string {
	if b, ok := c.fetcher.(URLBuilder); ok {
		return b.PageURL(page)
	}
	return ""
}

// logFetchError logs a page failure with status and body when available.
func (c *Collector) logFetchError(page int, err error) {
	event := c.logger.Error().
		Err(err).
		Int("page", page).
		Str("url", c.pageURL(page))

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		event = event.Str("error_class", string(apiErr.ErrorClass))
		if apiErr.StatusCode != 0 {
			event = event.
				Int("status", apiErr.StatusCode).
				Str("status_text", apiErr.Status).
				Str("body", apiErr.Body)
		}
	}

	event.Msg("Failed to fetch page")
}
