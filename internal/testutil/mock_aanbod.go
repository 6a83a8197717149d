// Package testutil provides testing utilities for the aanbod collector.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockPageResponse defines the behavior for one mocked page index.
type MockPageResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAanbod is a configurable mock of the aanbod API for testing.
// Pages are keyed by the zero-based "page" query parameter.
type MockAanbod struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[int]MockPageResponse

	// Tracking
	RequestCount      int
	RequestedPages    []int
	LastRequestHeader http.Header
	LastRequestURL    string
}

// NewMockAanbod creates a new mock aanbod server.
func NewMockAanbod() *MockAanbod {
	mock := &MockAanbod{
		pages: make(map[int]MockPageResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			page = -1
		}

		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestedPages = append(mock.RequestedPages, page)
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastRequestURL = r.URL.String()
		resp, exists := mock.pages[page]
		mock.mu.Unlock()

		if !exists {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "page not configured"}`))
			return
		}

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}))

	return mock
}

// URL returns the mock endpoint URL, usable as a client base URL.
func (m *MockAanbod) URL() string {
	return m.server.URL + "/api/v1/actueel-aanbod"
}

// Close shuts down the mock server.
func (m *MockAanbod) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAanbod) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestedPages = nil
	m.LastRequestHeader = nil
	m.LastRequestURL = ""
}

// SetPage configures the response for a page index.
func (m *MockAanbod) SetPage(page int, resp MockPageResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAanbod) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRequestedPages returns the page indices requested, in order.
func (m *MockAanbod) GetRequestedPages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.RequestedPages...)
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockAanbod) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// GetLastRequestURL returns the path and query of the most recent request.
func (m *MockAanbod) GetLastRequestURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestURL
}

// MockItem is a compact description of a raw listing used to build pages.
type MockItem struct {
	ID       int
	City     string
	Landlord string
	Rent     float64
}

// NewPageResponse creates a 200 OK page with the given items and page count.
func NewPageResponse(page, pageCount, totalCount int, items ...MockItem) MockPageResponse {
	data := make([]map[string]any, 0, len(items))
	for _, it := range items {
		data = append(data, rawItem(it))
	}

	body, err := json.Marshal(map[string]any{
		"data": data,
		"_metadata": map[string]any{
			"page":        page,
			"page_count":  pageCount,
			"total_count": totalCount,
		},
	})
	if err != nil {
		panic(fmt.Sprintf("marshal mock page: %v", err))
	}

	return MockPageResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 OK response without a "_metadata" block.
func NewMalformedResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data": []}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// rawItem renders a MockItem in the API's item shape. Empty City or
// Landlord values are sent as null objects.
func rawItem(it MockItem) map[string]any {
	item := map[string]any{
		"id":                                it.ID,
		"urlKey":                            fmt.Sprintf("%d-teststraat", it.ID),
		"street":                            "Teststraat",
		"houseNumber":                       strconv.Itoa(it.ID % 100),
		"houseNumberAddition":               nil,
		"postalcode":                        "9700AA",
		"dwellingType":                      map[string]any{"localizedName": "Appartement"},
		"totalRent":                         it.Rent,
		"availableFromDate":                 "2026-11-01",
		"publicationDate":                   "2026-10-15T09:00:00+02:00",
		"closingDate":                       "2026-10-22T23:59:00+02:00",
		"numberOfReactions":                 it.ID % 50,
		"reactionData":                      map[string]any{"kanReageren": true},
		"huurLigtOpOfOnderHuurtoeslaggrens": it.Rent < 900,
		"latitude":                          53.2194,
		"longitude":                         6.5665,
	}
	if it.City != "" {
		item["city"] = map[string]any{"name": it.City}
	} else {
		item["city"] = nil
	}
	if it.Landlord != "" {
		item["corporation"] = map[string]any{"name": it.Landlord}
	} else {
		item["corporation"] = nil
	}
	return item
}
