package task

import (
	"slices"
	"sync"
	"time"

	"github.com/angas/dayahead-go/types"
)

// MarketPrices holds the latest successfully fetched series for concurrent readers.
type MarketPrices struct {
	mu         sync.RWMutex
	Market     string
	Resolution int
	Currency   string
	series     []types.PriceInterval
	updatedAt  time.Time
}

func NewMarketPrices(provider types.MarketPriceProvider) *MarketPrices {
	return &MarketPrices{
		Market:     provider.Market(),
		Resolution: provider.Resolution(),
		Currency:   provider.Currency(),
		series:     make([]types.PriceInterval, 0),
	}
}

func (m *MarketPrices) set(series []types.PriceInterval, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series = slices.Clone(series)
	m.updatedAt = at
}

// Get returns a copy of the series and when it was fetched, zero time if never.
func (m *MarketPrices) Get() ([]types.PriceInterval, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.series), m.updatedAt
}

func (m *MarketPrices) Current(now time.Time) (types.PriceInterval, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CurrentInterval(m.series, now)
}

// CurrentInterval finds the interval covering t.
func CurrentInterval(series []types.PriceInterval, t time.Time) (types.PriceInterval, bool) {
	for _, p := range series {
		if p.Contains(t) {
			return p, true
		}
	}
	return types.PriceInterval{}, false
}
