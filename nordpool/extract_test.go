package nordpool

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func mustPayload(t *testing.T, raw string) *Payload {
	t.Helper()
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("invalid test payload: %v", err)
	}
	return &p
}

func TestExtractIntervalsPriceAndDuration(t *testing.T) {
	p := mustPayload(t, `{
		"multiIndexEntries": [{
			"deliveryStart": "2024-01-01T00:00:00Z",
			"deliveryEnd": "2024-01-01T01:00:00Z",
			"entryPerArea": {"NL": 45000, "BE": 52000}
		}]
	}`)

	intervals, err := ExtractIntervals(p, "NL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}

	got := intervals[0]
	if got.Price != 45.0 {
		t.Errorf("Price expected 45.0, got %v", got.Price)
	}
	if got.Duration != 60 {
		t.Errorf("Duration expected 60, got %d", got.Duration)
	}
	expectedStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.StartTime.Equal(expectedStart) {
		t.Errorf("StartTime expected %v, got %v", expectedStart, got.StartTime)
	}
	if got.StartTime.Location() != time.UTC {
		t.Errorf("StartTime expected UTC location, got %v", got.StartTime.Location())
	}
}

func TestExtractIntervalsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		payload *Payload
	}{
		{"nil payload", nil},
		{"missing multiIndexEntries", mustPayload(t, `{"market": "DayAhead"}`)},
		{"empty multiIndexEntries", mustPayload(t, `{"multiIndexEntries": []}`)},
		{"market not in entryPerArea", mustPayload(t, `{
			"multiIndexEntries": [{
				"deliveryStart": "2024-01-01T00:00:00Z",
				"deliveryEnd": "2024-01-01T01:00:00Z",
				"entryPerArea": {"BE": 52000}
			}]
		}`)},
		{"entryPerArea missing", mustPayload(t, `{
			"multiIndexEntries": [{
				"deliveryStart": "2024-01-01T00:00:00Z",
				"deliveryEnd": "2024-01-01T01:00:00Z"
			}]
		}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intervals, err := ExtractIntervals(tt.payload, "NL")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if intervals == nil {
				t.Errorf("expected an empty slice, got nil")
			}
			if len(intervals) != 0 {
				t.Errorf("expected no intervals, got %d", len(intervals))
			}
		})
	}
}

func TestExtractIntervalsKeepsPayloadOrder(t *testing.T) {
	p := mustPayload(t, `{
		"multiIndexEntries": [
			{"deliveryStart": "2024-01-01T00:30:00Z", "deliveryEnd": "2024-01-01T00:45:00Z", "entryPerArea": {"SE3": 3000}},
			{"deliveryStart": "2024-01-01T00:00:00Z", "deliveryEnd": "2024-01-01T00:15:00Z", "entryPerArea": {"SE3": 1000}},
			{"deliveryStart": "2024-01-01T00:15:00Z", "deliveryEnd": "2024-01-01T00:30:00Z", "entryPerArea": {"SE4": 9999}},
			{"deliveryStart": "2024-01-01T00:45:00Z", "deliveryEnd": "2024-01-01T01:00:00Z", "entryPerArea": {"SE3": -1500.5}}
		]
	}`)

	intervals, err := ExtractIntervals(p, "SE3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []struct {
		minute int
		price  float64
	}{
		{30, 3.0},
		{0, 1.0},
		{45, -1.5005},
	}
	if len(intervals) != len(expected) {
		t.Fatalf("expected %d intervals, got %d", len(expected), len(intervals))
	}
	for i, e := range expected {
		if intervals[i].StartTime.Minute() != e.minute {
			t.Errorf("interval %d expected start minute %d, got %d", i, e.minute, intervals[i].StartTime.Minute())
		}
		if intervals[i].Price != e.price {
			t.Errorf("interval %d expected price %v, got %v", i, e.price, intervals[i].Price)
		}
		if intervals[i].Duration != 15 {
			t.Errorf("interval %d expected duration 15, got %d", i, intervals[i].Duration)
		}
	}
}

func TestExtractIntervalsOffsetTimestamps(t *testing.T) {
	p := mustPayload(t, `{
		"multiIndexEntries": [{
			"deliveryStart": "2024-03-31T00:00:00+01:00",
			"deliveryEnd": "2024-03-31T00:30:00.000Z",
			"entryPerArea": {"FI": 12340}
		}]
	}`)

	intervals, err := ExtractIntervals(p, "FI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if intervals[0].Duration != 90 {
		t.Errorf("Duration expected 90, got %d", intervals[0].Duration)
	}
	expectedStart := time.Date(2024, 3, 30, 23, 0, 0, 0, time.UTC)
	if !intervals[0].StartTime.Equal(expectedStart) {
		t.Errorf("StartTime expected %v, got %v", expectedStart, intervals[0].StartTime)
	}
}

func areaPrice(market string, price float64) map[string]*float64 {
	return map[string]*float64{market: &price}
}

func TestExtractIntervalsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		area  map[string]*float64
		cause error
	}{
		{"end before start", "2024-01-01T01:00:00Z", "2024-01-01T00:00:00Z", areaPrice("NO1", 1), nil},
		{"end equals start", "2024-01-01T01:00:00Z", "2024-01-01T01:00:00Z", areaPrice("NO1", 1), nil},
		{"less than a minute", "2024-01-01T01:00:00Z", "2024-01-01T01:00:30Z", areaPrice("NO1", 1), nil},
		{"bad start", "yesterday", "2024-01-01T01:00:00Z", areaPrice("NO1", 1), nil},
		{"bad end", "2024-01-01T00:00:00Z", "2024-01-01 01:00", areaPrice("NO1", 1), nil},
		{"empty start", "", "2024-01-01T01:00:00Z", areaPrice("NO1", 1), nil},
		{"null price", "2024-01-01T00:00:00Z", "2024-01-01T01:00:00Z", map[string]*float64{"NO1": nil}, ErrMissingPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Payload{MultiIndexEntries: []multiIndexEntry{
				{DeliveryStart: "2023-12-31T23:00:00Z", DeliveryEnd: "2024-01-01T00:00:00Z", EntryPerArea: areaPrice("NO1", 1)},
				{DeliveryStart: tt.start, DeliveryEnd: tt.end, EntryPerArea: tt.area},
			}}

			intervals, err := ExtractIntervals(p, "NO1")
			if err == nil {
				t.Fatalf("expected an error, got %d intervals", len(intervals))
			}
			var me *MalformedEntryError
			if !errors.As(err, &me) {
				t.Fatalf("expected *MalformedEntryError, got %T: %v", err, err)
			}
			if me.Index != 1 {
				t.Errorf("Index expected 1, got %d", me.Index)
			}
			if me.DeliveryStart != tt.start || me.DeliveryEnd != tt.end {
				t.Errorf("expected entry %q - %q, got %q - %q", tt.start, tt.end, me.DeliveryStart, me.DeliveryEnd)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("expected cause %v, got %v", tt.cause, err)
			}
		})
	}
}

func TestExtractIntervalsNullPriceFromJSON(t *testing.T) {
	p := mustPayload(t, `{
		"multiIndexEntries": [{
			"deliveryStart": "2024-01-01T00:00:00Z",
			"deliveryEnd": "2024-01-01T01:00:00Z",
			"entryPerArea": {"NL": null, "BE": 52000}
		}]
	}`)

	intervals, err := ExtractIntervals(p, "NL")
	if !errors.Is(err, ErrMissingPrice) {
		t.Fatalf("expected ErrMissingPrice, got %v (intervals %v)", err, intervals)
	}

	intervals, err = ExtractIntervals(p, "BE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(intervals) != 1 || intervals[0].Price != 52.0 {
		t.Errorf("expected one BE interval priced 52.0, got %v", intervals)
	}
}

func TestExtractIntervalsIgnoresMalformedEntryForOtherMarket(t *testing.T) {
	p := &Payload{MultiIndexEntries: []multiIndexEntry{
		{DeliveryStart: "garbage", DeliveryEnd: "garbage", EntryPerArea: areaPrice("NO2", 1)},
		{DeliveryStart: "2024-01-01T00:00:00Z", DeliveryEnd: "2024-01-01T01:00:00Z", EntryPerArea: map[string]*float64{"NO2": nil}},
	}}

	intervals, err := ExtractIntervals(p, "NO1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(intervals) != 0 {
		t.Errorf("expected no intervals, got %d", len(intervals))
	}
}
