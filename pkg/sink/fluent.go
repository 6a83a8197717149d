package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/zig365-aanbod/pkg/listing"
	"github.com/fluent/fluent-logger-golang/fluent"
)

// fluentPoster is the subset of *fluent.Fluent used by the Fluent sink.
type fluentPoster interface {
	PostWithTime(tag string, tm time.Time, message interface{}) error
	Close() error
}

// Fluent forwards each record as an event to Fluent Bit or fluentd.
type Fluent struct {
	logger fluentPoster
	tag    string
	runID  string
}

// NewFluent posts through an existing fluent client.
func NewFluent(logger fluentPoster, tag, runID string) (*Fluent, error) {
	if logger == nil {
		return nil, fmt.Errorf("fluent client is required")
	}
	if tag == "" {
		return nil, fmt.Errorf("fluent tag is required")
	}
	return &Fluent{logger: logger, tag: tag, runID: runID}, nil
}

// OpenFluent creates a synchronous forward client. Creating the client
// does not connect; the first Push surfaces connection errors.
func OpenFluent(host string, port int, tag, runID string) (*Fluent, error) {
	if host == "" {
		return nil, fmt.Errorf("fluent host is required")
	}

	logger, err := fluent.New(fluent.Config{
		FluentHost: host,
		FluentPort: port,
		Timeout:    30 * time.Second,
		MaxRetry:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("create fluent client: %w", err)
	}
	return NewFluent(logger, tag, runID)
}

// Push posts the record as a map event with the run id attached.
func (f *Fluent) Push(ctx context.Context, record listing.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event, err := recordToMap(record)
	if err != nil {
		return err
	}
	event["run_id"] = f.runID

	if err := f.logger.PostWithTime(f.tag, time.Now(), event); err != nil {
		return fmt.Errorf("post listing %s: %w", record.ID, err)
	}
	return nil
}

// Close flushes and closes the fluent client.
func (f *Fluent) Close() error {
	return f.logger.Close()
}

// recordToMap renders a record with its JSON keys. Numbers keep their
// exact value: integers become int64, everything else float64.
func recordToMap(r listing.Record) (map[string]interface{}, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	for k, v := range m {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			m[k] = i
		} else if f, err := n.Float64(); err == nil {
			m[k] = f
		}
	}
	return m, nil
}
