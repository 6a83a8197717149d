package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/Sternrassler/zig365-aanbod/pkg/listing"
)

// csvColumns is the header row, in record field order.
var csvColumns = []string{
	"id", "urlKey", "straat", "huisnummer", "postcode", "stad", "verhuurder",
	"type", "huur", "beschikbaarVanaf", "publicatieDatum", "sluitingsDatum",
	"reacties", "kanReageren", "huurtoeslag", "lat", "lon",
}

// CSV writes records as rows. Nil fields become empty cells. The header
// is written before the first row when the output is empty.
type CSV struct {
	mu            sync.Mutex
	w             *csv.Writer
	closer        io.Closer
	headerWritten bool
}

// NewCSV writes records to w, starting with a header row.
func NewCSV(w io.Writer) *CSV {
	return &CSV{w: csv.NewWriter(w)}
}

// OpenCSV opens path for appending, or stdout for "" and "-". The header
// is skipped when appending to a non-empty file.
func OpenCSV(path string) (*CSV, error) {
	if path == "" || path == "-" {
		return NewCSV(os.Stdout), nil
	}

	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat output file: %w", err)
	}

	return &CSV{
		w:             csv.NewWriter(f),
		closer:        f,
		headerWritten: info.Size() > 0,
	}, nil
}

// Push writes one row and flushes it.
func (c *CSV) Push(ctx context.Context, record listing.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.headerWritten {
		if err := c.w.Write(csvColumns); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		c.headerWritten = true
	}

	if err := c.w.Write(csvRow(record)); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	return nil
}

// Close flushes and closes the output file if the sink opened it.
func (c *CSV) Close() error {
	c.mu.Lock()
	c.w.Flush()
	c.mu.Unlock()

	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func csvRow(r listing.Record) []string {
	return []string{
		r.ID.String(),
		strOrEmpty(r.URLKey),
		strOrEmpty(r.Street),
		r.HouseNumber,
		strOrEmpty(r.PostalCode),
		strOrEmpty(r.City),
		strOrEmpty(r.Landlord),
		strOrEmpty(r.DwellingType),
		floatOrEmpty(r.Rent),
		strOrEmpty(r.AvailableFrom),
		strOrEmpty(r.PublishedAt),
		strOrEmpty(r.ClosingAt),
		intOrEmpty(r.Reactions),
		boolOrEmpty(r.CanReact),
		boolOrEmpty(r.RentSubsidyEligible),
		floatOrEmpty(r.Latitude),
		floatOrEmpty(r.Longitude),
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func intOrEmpty(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func boolOrEmpty(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
