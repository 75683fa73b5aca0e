package types

import (
	"context"
	"time"
)

type PriceInterval struct {
	StartTime time.Time // Start of the delivery interval, UTC
	Duration  int       // Length of the delivery interval in minutes
	Price     float64   // Price in EUR per kWh excluding VAT
}

func (p PriceInterval) End() time.Time {
	return p.StartTime.Add(time.Duration(p.Duration) * time.Minute)
}

// Contains reports whether t falls within [StartTime, End).
func (p PriceInterval) Contains(t time.Time) bool {
	return !t.Before(p.StartTime) && t.Before(p.End())
}

type MarketPriceProvider interface {
	Name() string
	Market() string
	Resolution() int
	Currency() string
	Fetch(ctx context.Context) error
	PriceSeries() []PriceInterval
}
