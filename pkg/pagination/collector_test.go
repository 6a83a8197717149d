package pagination

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/Sternrassler/zig365-aanbod/internal/testutil"
	"github.com/Sternrassler/zig365-aanbod/pkg/client"
	"github.com/Sternrassler/zig365-aanbod/pkg/listing"
	"github.com/Sternrassler/zig365-aanbod/pkg/sink"
)

// scriptedFetcher returns canned pages keyed by page index.
type scriptedFetcher struct {
	pages     map[int]*client.Page
	errs      map[int]error
	requested []int
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, page int) (*client.Page, error) {
	f.requested = append(f.requested, page)
	if err, ok := f.errs[page]; ok {
		return nil, err
	}
	p, ok := f.pages[page]
	if !ok {
		return nil, fmt.Errorf("page %d not scripted", page)
	}
	return p, nil
}

func items(ids ...string) []listing.Item {
	out := make([]listing.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, listing.Item{ID: listing.NewText(id)})
	}
	return out
}

func page(pageCount int, ids ...string) *client.Page {
	return &client.Page{
		Data:     items(ids...),
		Metadata: client.Metadata{PageCount: pageCount, TotalCount: pageCount * len(ids)},
	}
}

func ids(records []listing.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID.String())
	}
	return out
}

func TestRun_FetchCountIsMinOfMaxPagesAndPageCount(t *testing.T) {
	tests := []struct {
		name      string
		maxPages  int
		pageCount int
		expected  int
	}{
		{name: "server bound smaller", maxPages: 5, pageCount: 3, expected: 3},
		{name: "max pages smaller", maxPages: 2, pageCount: 7, expected: 2},
		{name: "equal", maxPages: 4, pageCount: 4, expected: 4},
		{name: "single page", maxPages: 5, pageCount: 1, expected: 1},
		{name: "zero max pages", maxPages: 0, pageCount: 3, expected: 0},
		{name: "negative max pages", maxPages: -2, pageCount: 3, expected: 0},
		{name: "empty result set", maxPages: 5, pageCount: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &scriptedFetcher{pages: map[int]*client.Page{}}
			for p := 0; p < 10; p++ {
				fetcher.pages[p] = page(tt.pageCount, fmt.Sprintf("%d-a", p))
			}
			mem := sink.NewMemory()

			c := NewCollector(fetcher, mem, Config{MaxPages: tt.maxPages, Limit: 15})
			result, err := c.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() failed: %v", err)
			}

			if len(fetcher.requested) != tt.expected {
				t.Errorf("Fetches = %d, want %d", len(fetcher.requested), tt.expected)
			}
			if result.Pages != tt.expected {
				t.Errorf("Result.Pages = %d, want %d", result.Pages, tt.expected)
			}
			if result.State != StateCompleted || c.State() != StateCompleted {
				t.Errorf("State = %q, want completed", c.State())
			}
		})
	}
}

func TestRun_PreservesOrderAcrossPages(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int]*client.Page{
		0: page(3, "a", "b", "c"),
		1: page(3, "d", "e"),
		2: page(3, "f"),
	}}
	mem := sink.NewMemory()

	c := NewCollector(fetcher, mem, Config{MaxPages: 5})
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	want := []string{"a", "b", "c", "d", "e", "f"}
	if got := ids(mem.Records()); !reflect.DeepEqual(got, want) {
		t.Errorf("Record order = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(fetcher.requested, []int{0, 1, 2}) {
		t.Errorf("Requested pages = %v, want [0 1 2]", fetcher.requested)
	}
	if result.Records != 6 {
		t.Errorf("Result.Records = %d, want 6", result.Records)
	}
}

func TestRun_BoundRecomputedFromLatestResponse(t *testing.T) {
	t.Run("bound shrinks", func(t *testing.T) {
		fetcher := &scriptedFetcher{pages: map[int]*client.Page{
			0: page(4, "a"),
			1: page(2, "b"),
			2: page(2, "c"),
		}}

		c := NewCollector(fetcher, sink.NewMemory(), Config{MaxPages: 10})
		if _, err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		if !reflect.DeepEqual(fetcher.requested, []int{0, 1}) {
			t.Errorf("Requested pages = %v, want [0 1]", fetcher.requested)
		}
	})

	t.Run("bound grows", func(t *testing.T) {
		fetcher := &scriptedFetcher{pages: map[int]*client.Page{
			0: page(2, "a"),
			1: page(4, "b"),
			2: page(4, "c"),
			3: page(4, "d"),
		}}

		c := NewCollector(fetcher, sink.NewMemory(), Config{MaxPages: 10})
		if _, err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		if !reflect.DeepEqual(fetcher.requested, []int{0, 1, 2, 3}) {
			t.Errorf("Requested pages = %v, want [0 1 2 3]", fetcher.requested)
		}
	})
}

func TestRun_FetchErrorKeepsEarlierPages(t *testing.T) {
	fetchErr := &client.APIError{
		StatusCode: 500,
		Status:     "500 Internal Server Error",
		ErrorClass: client.ErrorClassServer,
		Page:       2,
		Message:    "unexpected status",
	}
	fetcher := &scriptedFetcher{
		pages: map[int]*client.Page{
			0: page(5, "a", "b"),
			1: page(5, "c"),
			3: page(5, "x"),
		},
		errs: map[int]error{2: fetchErr},
	}
	mem := sink.NewMemory()

	c := NewCollector(fetcher, mem, Config{MaxPages: 5})
	result, err := c.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error")
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Errorf("Error = %v, want wrapped *APIError with status 500", err)
	}
	if got := ids(mem.Records()); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Records = %v, want [a b c]", got)
	}
	if !reflect.DeepEqual(fetcher.requested, []int{0, 1, 2}) {
		t.Errorf("Requested pages = %v, want [0 1 2]", fetcher.requested)
	}
	if c.State() != StateFailed || result.State != StateFailed {
		t.Errorf("State = %q, want failed", c.State())
	}
	if result.Pages != 2 {
		t.Errorf("Result.Pages = %d, want 2", result.Pages)
	}
}

func TestRun_SinkErrorAborts(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int]*client.Page{
		0: page(3, "a", "b"),
		1: page(3, "c", "d"),
		2: page(3, "e"),
	}}
	mem := sink.NewMemory()
	mem.FailAfter = 3

	c := NewCollector(fetcher, mem, Config{MaxPages: 5})
	result, err := c.Run(context.Background())
	if !errors.Is(err, sink.ErrRejected) {
		t.Fatalf("Error = %v, want sink.ErrRejected", err)
	}

	if got := ids(mem.Records()); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Records = %v, want [a b c]", got)
	}
	if !reflect.DeepEqual(fetcher.requested, []int{0, 1}) {
		t.Errorf("Requested pages = %v, want [0 1]", fetcher.requested)
	}
	if result.Pages != 1 {
		t.Errorf("Result.Pages = %d, want 1 (page 1 not fully emitted)", result.Pages)
	}
	if c.State() != StateFailed {
		t.Errorf("State = %q, want failed", c.State())
	}
}

func TestRun_CountsRecordsWithMissingDataOncePerRecord(t *testing.T) {
	x, y := "X", "Y"
	complete := listing.Item{
		ID:           listing.NewText("complete"),
		Corporation:  &listing.Named{Name: &x},
		DwellingType: &listing.DwellingType{LocalizedName: &y},
		ReactionData: &listing.ReactionData{KanReageren: listing.NewFlag(true)},
	}
	cityMissing := complete
	cityMissing.ID = listing.NewText("city-missing")
	cityMissing.City = nil

	fullyComplete := complete
	fullyComplete.ID = listing.NewText("full")
	fullyComplete.City = &listing.Named{Name: &x}

	twoMissing := listing.Item{
		ID:           listing.NewText("two-missing"),
		DwellingType: &listing.DwellingType{LocalizedName: &y},
		ReactionData: &listing.ReactionData{KanReageren: listing.NewFlag(true)},
	}

	fetcher := &scriptedFetcher{pages: map[int]*client.Page{
		0: {
			Data:     []listing.Item{fullyComplete, cityMissing, twoMissing},
			Metadata: client.Metadata{PageCount: 1, TotalCount: 3},
		},
	}}

	c := NewCollector(fetcher, sink.NewMemory(), Config{MaxPages: 5})
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if result.RecordsWithMissingData != 2 {
		t.Errorf("RecordsWithMissingData = %d, want 2", result.RecordsWithMissingData)
	}
	if result.Records != 3 {
		t.Errorf("Records = %d, want 3", result.Records)
	}
	if result.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", result.TotalCount)
	}
}

func TestRun_OnlyOnce(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int]*client.Page{0: page(1, "a")}}

	c := NewCollector(fetcher, sink.NewMemory(), Config{MaxPages: 5})
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("First Run() failed: %v", err)
	}
	if _, err := c.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("Second Run() error = %v, want ErrAlreadyRun", err)
	}
	if len(fetcher.requested) != 1 {
		t.Errorf("Fetches = %d, want 1", len(fetcher.requested))
	}
}

func TestRun_RerunReemitsWithoutDedup(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int]*client.Page{
		0: page(2, "a", "b"),
		1: page(2, "c"),
	}}
	mem := sink.NewMemory()

	for run := 0; run < 2; run++ {
		c := NewCollector(fetcher, mem, Config{MaxPages: 5})
		if _, err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run %d failed: %v", run, err)
		}
	}

	want := []string{"a", "b", "c", "a", "b", "c"}
	if got := ids(mem.Records()); !reflect.DeepEqual(got, want) {
		t.Errorf("Records = %v, want %v", got, want)
	}
}

func TestNewCollector_StateAndRunID(t *testing.T) {
	c := NewCollector(&scriptedFetcher{}, sink.NewMemory(), Config{MaxPages: 1})
	if c.State() != StateIdle {
		t.Errorf("Initial state = %q, want idle", c.State())
	}
	if c.RunID() == "" {
		t.Error("RunID should be generated")
	}

	c2 := NewCollector(&scriptedFetcher{}, sink.NewMemory(), Config{RunID: "fixed"})
	if c2.RunID() != "fixed" {
		t.Errorf("RunID = %q, want fixed", c2.RunID())
	}
}

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateIdle, false},
		{StateRunning, false},
		{StateCompleted, true},
		{StateFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if tt.state.IsTerminal() != tt.expected {
				t.Errorf("IsTerminal() = %v, want %v", tt.state.IsTerminal(), tt.expected)
			}
		})
	}
}

func TestRun_WithHTTPClient(t *testing.T) {
	mock := testutil.NewMockAanbod()
	defer mock.Close()

	mock.SetPage(0, testutil.NewPageResponse(0, 1, 2,
		testutil.MockItem{ID: 1, City: "Groningen", Landlord: "Lefier", Rent: 650},
		testutil.MockItem{ID: 2, City: "", Landlord: "", Rent: 910},
	))
	mock.SetPage(1, testutil.NewPageResponse(1, 1, 2, testutil.MockItem{ID: 99}))

	cfg := client.DefaultConfig(15)
	cfg.BaseURL = mock.URL()
	apiClient, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	mem := sink.NewMemory()
	c := NewCollector(apiClient, mem, Config{MaxPages: 5, Limit: 15})
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("Request count = %d, want 1", mock.GetRequestCount())
	}
	if c.State() != StateCompleted {
		t.Errorf("State = %q, want completed", c.State())
	}
	if got := ids(mem.Records()); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("Records = %v, want [1 2]", got)
	}
	if result.RecordsWithMissingData != 1 {
		t.Errorf("RecordsWithMissingData = %d, want 1", result.RecordsWithMissingData)
	}
}

func TestRun_HTTPErrorOnPageTwoOfFive(t *testing.T) {
	mock := testutil.NewMockAanbod()
	defer mock.Close()

	mock.SetPage(0, testutil.NewPageResponse(0, 5, 10, testutil.MockItem{ID: 1}, testutil.MockItem{ID: 2}))
	mock.SetPage(1, testutil.NewPageResponse(1, 5, 10, testutil.MockItem{ID: 3}, testutil.MockItem{ID: 4}))
	mock.SetPage(2, testutil.NewServerErrorResponse())
	mock.SetPage(3, testutil.NewPageResponse(3, 5, 10, testutil.MockItem{ID: 7}))

	cfg := client.DefaultConfig(2)
	cfg.BaseURL = mock.URL()
	apiClient, _ := client.New(cfg)

	mem := sink.NewMemory()
	c := NewCollector(apiClient, mem, Config{MaxPages: 5})
	if _, err := c.Run(context.Background()); err == nil {
		t.Fatal("Expected error on page 2")
	}

	if got := ids(mem.Records()); !reflect.DeepEqual(got, []string{"1", "2", "3", "4"}) {
		t.Errorf("Records = %v, want [1 2 3 4]", got)
	}
	if got := mock.GetRequestedPages(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("Requested pages = %v, want [0 1 2]", got)
	}
	if c.State() != StateFailed {
		t.Errorf("State = %q, want failed", c.State())
	}
}

func TestRun_MalformedPageKeepsEarlierRecords(t *testing.T) {
	mock := testutil.NewMockAanbod()
	defer mock.Close()

	mock.SetPage(0, testutil.NewPageResponse(0, 3, 5, testutil.MockItem{ID: 1}, testutil.MockItem{ID: 2}))
	mock.SetPage(1, testutil.NewMalformedResponse())
	mock.SetPage(2, testutil.NewPageResponse(2, 3, 5, testutil.MockItem{ID: 5}))

	cfg := client.DefaultConfig(2)
	cfg.BaseURL = mock.URL()
	apiClient, _ := client.New(cfg)

	mem := sink.NewMemory()
	c := NewCollector(apiClient, mem, Config{MaxPages: 5})
	result, err := c.Run(context.Background())
	if !errors.Is(err, client.ErrMalformedResponse) {
		t.Fatalf("Error = %v, want ErrMalformedResponse", err)
	}

	if c.State() != StateFailed || result.State != StateFailed {
		t.Errorf("State = %q, want failed", c.State())
	}
	if got := ids(mem.Records()); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("Records = %v, want [1 2]", got)
	}
	if got := mock.GetRequestedPages(); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("Requested pages = %v, want [0 1]", got)
	}

	// A fresh collector starts again from page 0.
	mock.Reset()
	mock.SetPage(1, testutil.NewPageResponse(1, 3, 5, testutil.MockItem{ID: 3}, testutil.MockItem{ID: 4}))

	retry := NewCollector(apiClient, mem, Config{MaxPages: 5})
	if _, err := retry.Run(context.Background()); err != nil {
		t.Fatalf("Second Run() failed: %v", err)
	}
	if got := mock.GetRequestedPages(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("Requested pages after reset = %v, want [0 1 2]", got)
	}
	if mem.Len() != 7 {
		t.Errorf("Records = %d, want 7", mem.Len())
	}
}
