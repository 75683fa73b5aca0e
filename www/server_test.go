package www

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/database"
	"github.com/angas/dayahead-go/task"
	"github.com/angas/dayahead-go/types"
)

var start = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

type stubProvider struct {
	series []types.PriceInterval
}

func (p *stubProvider) Name() string                    { return "stub" }
func (p *stubProvider) Market() string                  { return "SE3" }
func (p *stubProvider) Resolution() int                 { return 60 }
func (p *stubProvider) Currency() string                { return "EUR" }
func (p *stubProvider) Fetch(ctx context.Context) error { return nil }
func (p *stubProvider) PriceSeries() []types.PriceInterval {
	return p.series
}

type fakeStore struct {
	minLvl   slog.Level
	page     int
	pageSize int
	entries  []database.LogEntryRow
	runs     []database.FetchRunRow
	err      error
}

func (f *fakeStore) GetLogEntries(ctx context.Context, minLvl slog.Level, page, pageSize int) ([]database.LogEntryRow, error) {
	f.minLvl, f.page, f.pageSize = minLvl, page, pageSize
	return f.entries, f.err
}

func (f *fakeStore) GetFetchRuns(ctx context.Context, limit int) ([]database.FetchRunRow, error) {
	return f.runs, f.err
}

func threeHours() []types.PriceInterval {
	return []types.PriceInterval{
		{StartTime: start, Duration: 60, Price: 0.045},
		{StartTime: start.Add(time.Hour), Duration: 60, Price: 0.052},
		{StartTime: start.Add(2 * time.Hour), Duration: 60, Price: 0.031},
	}
}

// newTestServer returns a server whose prices were filled by one run of the price task.
func newTestServer(t *testing.T, series []types.PriceInterval, store Store, refresh func()) *Server {
	t.Helper()
	provider := &stubProvider{series: series}
	prices := task.NewMarketPrices(provider)
	if series != nil {
		task.NewMarketPriceTask(slog.Default(), nil, provider, prices)()
	}
	if refresh == nil {
		refresh = func() {}
	}
	return NewServer(store, prices, refresh, config.AppConfigApi{Port: 8080}, "1.2.3")
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestPricesHandler(t *testing.T) {
	s := newTestServer(t, threeHours(), &fakeStore{}, nil)

	rec := serve(s, http.MethodGet, "/prices")
	if rec.Code != http.StatusOK {
		t.Fatalf("status expected %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type expected application/json, got %s", ct)
	}

	var payload types.SeriesPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Market != "SE3" {
		t.Errorf("market expected SE3, got %s", payload.Market)
	}
	if payload.Unit != "EUR/kWh" {
		t.Errorf("unit expected EUR/kWh, got %s", payload.Unit)
	}
	if payload.UpdatedAt == nil {
		t.Error("updatedAt expected to be set")
	}
	if len(payload.Prices) != 3 {
		t.Fatalf("prices expected 3, got %d", len(payload.Prices))
	}
	if payload.Prices[1].Price != 0.052 {
		t.Errorf("price expected 0.052, got %v", payload.Prices[1].Price)
	}
	if !payload.Prices[0].End.Equal(start.Add(time.Hour)) {
		t.Errorf("end expected %v, got %v", start.Add(time.Hour), payload.Prices[0].End)
	}
}

func TestPricesHandlerBeforeFirstFetch(t *testing.T) {
	s := newTestServer(t, nil, &fakeStore{}, nil)

	rec := serve(s, http.MethodGet, "/prices")
	if rec.Code != http.StatusOK {
		t.Fatalf("status expected %d, got %d", http.StatusOK, rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"prices":[]`) {
		t.Errorf("expected empty prices array, got %s", body)
	}
	if strings.Contains(body, "updatedAt") {
		t.Errorf("expected no updatedAt, got %s", body)
	}
}

func TestCurrentPriceHandler(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		status   int
		expected float64
	}{
		{"first hour", start.Add(10 * time.Minute), http.StatusOK, 0.045},
		{"interval start belongs to interval", start.Add(time.Hour), http.StatusOK, 0.052},
		{"last hour", start.Add(2*time.Hour + 59*time.Minute), http.StatusOK, 0.031},
		{"after series", start.Add(3 * time.Hour), http.StatusNotFound, 0},
		{"before series", start.Add(-time.Minute), http.StatusNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, threeHours(), &fakeStore{}, nil)
			s.now = func() time.Time { return tt.now }

			rec := serve(s, http.MethodGet, "/prices/current")
			if rec.Code != tt.status {
				t.Fatalf("status expected %d, got %d", tt.status, rec.Code)
			}
			if tt.status != http.StatusOK {
				return
			}
			var payload types.PricePayload
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if payload.Price != tt.expected {
				t.Errorf("price expected %v, got %v", tt.expected, payload.Price)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, threeHours(), &fakeStore{}, nil)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/prices"},
		{http.MethodDelete, "/prices/current"},
		{http.MethodGet, "/refresh"},
		{http.MethodPut, "/log"},
		{http.MethodPost, "/fetch_runs"},
	}

	for _, tt := range tests {
		rec := serve(s, tt.method, tt.target)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s expected %d, got %d", tt.method, tt.target, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}

func TestRefreshHandler(t *testing.T) {
	called := make(chan struct{}, 1)
	s := newTestServer(t, nil, &fakeStore{}, func() { called <- struct{}{} })

	rec := serve(s, http.MethodPost, "/refresh")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status expected %d, got %d", http.StatusAccepted, rec.Code)
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Error("refresh expected to be called")
	}
}

func TestLogHandler(t *testing.T) {
	store := &fakeStore{entries: []database.LogEntryRow{
		{Timestamp: start, Level: int(slog.LevelWarn), Message: "tomorrow not published", Attrs: "market=SE3"},
		{Timestamp: start, Level: int(slog.LevelError), Message: "fetch failed"},
	}}
	s := newTestServer(t, nil, store, nil)

	rec := serve(s, http.MethodGet, "/log?level=warn&page=2&pageSize=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status expected %d, got %d", http.StatusOK, rec.Code)
	}
	if store.minLvl != slog.LevelWarn {
		t.Errorf("level expected %v, got %v", slog.LevelWarn, store.minLvl)
	}
	if store.page != 2 || store.pageSize != 10 {
		t.Errorf("paging expected 2/10, got %d/%d", store.page, store.pageSize)
	}

	var entries []logEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries expected 2, got %d", len(entries))
	}
	if entries[0].Level != "WARN" {
		t.Errorf("level expected WARN, got %s", entries[0].Level)
	}
	if entries[0].Timestamp != "2025-03-10T00:00:00Z" {
		t.Errorf("timestamp expected 2025-03-10T00:00:00Z, got %s", entries[0].Timestamp)
	}
}

func TestLogHandlerDefaults(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(t, nil, store, nil)

	rec := serve(s, http.MethodGet, "/log?page=x")
	if rec.Code != http.StatusOK {
		t.Fatalf("status expected %d, got %d", http.StatusOK, rec.Code)
	}
	if store.minLvl != slog.LevelInfo {
		t.Errorf("level expected %v, got %v", slog.LevelInfo, store.minLvl)
	}
	if store.page != 1 || store.pageSize != 25 {
		t.Errorf("paging expected 1/25, got %d/%d", store.page, store.pageSize)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body expected [], got %s", body)
	}
}

func TestStoreError(t *testing.T) {
	s := newTestServer(t, nil, &fakeStore{err: errors.New("database is locked")}, nil)

	for _, target := range []string{"/log", "/fetch_runs"} {
		rec := serve(s, http.MethodGet, target)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s expected %d, got %d", target, http.StatusInternalServerError, rec.Code)
		}
	}
}

func TestFetchRunsHandler(t *testing.T) {
	store := &fakeStore{runs: []database.FetchRunRow{
		{StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond), Provider: "Nordpool API", Market: "SE3", Resolution: 15, Intervals: 96},
		{StartedAt: start, FinishedAt: start.Add(time.Second), Provider: "Nordpool API", Market: "SE3", Resolution: 15, Error: "HTTP 503"},
	}}
	s := newTestServer(t, nil, store, nil)

	rec := serve(s, http.MethodGet, "/fetch_runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status expected %d, got %d", http.StatusOK, rec.Code)
	}

	var runs []fetchRun
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs expected 2, got %d", len(runs))
	}
	if runs[0].DurationMs != 1500 {
		t.Errorf("duration expected 1500, got %d", runs[0].DurationMs)
	}
	if runs[0].Error != nil {
		t.Errorf("error expected nil, got %v", *runs[0].Error)
	}
	if runs[1].Error == nil || *runs[1].Error != "HTTP 503" {
		t.Errorf("error expected HTTP 503, got %v", runs[1].Error)
	}
}

func TestMetricsHandler(t *testing.T) {
	s := newTestServer(t, threeHours(), &fakeStore{}, nil)

	rec := serve(s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status expected %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dayahead_price_intervals") {
		t.Error("expected dayahead_price_intervals in metrics output")
	}
}

func TestBroadcast(t *testing.T) {
	s := newTestServer(t, nil, &fakeStore{}, nil)
	s.now = func() time.Time { return start }

	s.Broadcast(threeHours())

	select {
	case msg := <-s.hub.Broadcast:
		var payload types.SeriesPayload
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(payload.Prices) != 3 {
			t.Errorf("prices expected 3, got %d", len(payload.Prices))
		}
		if payload.UpdatedAt == nil || !payload.UpdatedAt.Equal(start) {
			t.Errorf("updatedAt expected %v, got %v", start, payload.UpdatedAt)
		}
	default:
		t.Fatal("expected a message on the hub")
	}
}
