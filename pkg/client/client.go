// Package client provides the HTTP client for the Zig365 "actueel aanbod"
// listing API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/zig365-aanbod/pkg/listing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for aanbod API requests.
var (
	aanbodRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aanbod_requests_total",
		Help: "Total aanbod API requests by status",
	}, []string{"status"})

	aanbodRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aanbod_request_duration_seconds",
		Help:    "Aanbod API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	aanbodErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aanbod_errors_total",
		Help: "Total aanbod API errors by class",
	}, []string{"class"})
)

// Defaults for the public Zig365 aanbod API.
const (
	DefaultBaseURL = "https://wooniezie-aanbodapi.zig365.nl/api/v1/actueel-aanbod"
	DefaultLocale  = "nl_NL"
	DefaultSort    = "+reactionData.aangepasteTotaleHuurprijs"
	DefaultTimeout = 30 * time.Second
)

// maxErrorBody caps how much of a failed response body is kept for logging.
const maxErrorBody = 4096

// Page is one decoded page of the aanbod API.
type Page struct {
	Data     []listing.Item `json:"data"`
	Metadata Metadata       `json:"_metadata"`
}

// Metadata is the "_metadata" block of a page response.
type Metadata struct {
	Page       int `json:"page"`
	PageCount  int `json:"page_count"`
	TotalCount int `json:"total_count"`
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the aanbod endpoint without query string.
	BaseURL string

	// Limit is the number of items requested per page.
	Limit int

	// Locale and Sort are sent verbatim on every request.
	Locale string
	Sort   string

	// Timeout bounds a single page request.
	Timeout time.Duration

	// UserAgent is optional; the Go default is used when empty.
	UserAgent string
}

// DefaultConfig returns the configuration for the public API with the
// given page size.
func DefaultConfig(limit int) Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Limit:   limit,
		Locale:  DefaultLocale,
		Sort:    DefaultSort,
		Timeout: DefaultTimeout,
	}
}

// Client fetches aanbod pages.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new aanbod client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "aanbod-client").Logger(),
	}, nil
}

// PageURL builds the request URL for a zero-based page index.
func (c *Client) PageURL(page int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.config.Limit))
	q.Set("locale", c.config.Locale)
	q.Set("page", strconv.Itoa(page))
	q.Set("sort", c.config.Sort)

	base := c.config.BaseURL
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	return base + "?" + q.Encode()
}

// FetchPage requests and decodes one page. Every failure is returned as
// an *APIError carrying the page index and URL.
func (c *Client) FetchPage(ctx context.Context, page int) (*Page, error) {
	pageURL := c.PageURL(page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Int("page", page).
		Str("url", pageURL).
		Msg("Executing aanbod request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	aanbodRequestDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		aanbodErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		aanbodRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Page:       page,
			URL:        pageURL,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	aanbodRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errClass := classifyStatus(resp.StatusCode)
		aanbodErrorsTotal.WithLabelValues(string(errClass)).Inc()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
			ErrorClass: errClass,
			Page:       page,
			URL:        pageURL,
			Message:    "unexpected status",
		}
	}

	result, err := decodePage(resp.Body)
	if err != nil {
		aanbodErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			ErrorClass: ErrorClassDecode,
			Page:       page,
			URL:        pageURL,
			Message:    "decode response",
			Err:        err,
		}
	}

	return result, nil
}

// rawPage mirrors Page with presence tracking for the required blocks.
type rawPage struct {
	Data     *[]listing.Item `json:"data"`
	Metadata *struct {
		Page       listing.Count `json:"page"`
		PageCount  listing.Count `json:"page_count"`
		TotalCount listing.Count `json:"total_count"`
	} `json:"_metadata"`
}

// decodePage decodes a page body. A missing "data" array or "_metadata"
// object is reported as ErrMalformedResponse. A missing or non-integral
// page_count reads as zero.
func decodePage(r io.Reader) (*Page, error) {
	var raw rawPage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if raw.Metadata == nil {
		return nil, fmt.Errorf("%w: missing _metadata", ErrMalformedResponse)
	}

	return &Page{
		Data: *raw.Data,
		Metadata: Metadata{
			Page:       raw.Metadata.Page.Int(),
			PageCount:  raw.Metadata.PageCount.Int(),
			TotalCount: raw.Metadata.TotalCount.Int(),
		},
	}, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
