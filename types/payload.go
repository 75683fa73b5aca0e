package types

import "time"

// PricePayload is the JSON shape of a PriceInterval used by the HTTP API and MQTT.
type PricePayload struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration int       `json:"duration"`
	Price    float64   `json:"price"`
}

type SeriesPayload struct {
	Market     string         `json:"market"`
	Resolution int            `json:"resolution"`
	Currency   string         `json:"currency"`
	Unit       string         `json:"unit"`
	UpdatedAt  *time.Time     `json:"updatedAt,omitempty"`
	Prices     []PricePayload `json:"prices"`
}

func NewPricePayload(p PriceInterval) PricePayload {
	return PricePayload{
		Start:    p.StartTime,
		End:      p.End(),
		Duration: p.Duration,
		Price:    p.Price,
	}
}

func NewSeriesPayload(market string, resolution int, currency string, series []PriceInterval) SeriesPayload {
	prices := make([]PricePayload, len(series))
	for i, s := range series {
		prices[i] = NewPricePayload(s)
	}
	return SeriesPayload{
		Market:     market,
		Resolution: resolution,
		Currency:   currency,
		Unit:       currency + "/kWh",
		Prices:     prices,
	}
}
