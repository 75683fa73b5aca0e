package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/angas/dayahead-go/database"
	"github.com/angas/dayahead-go/metrics"
	"github.com/angas/dayahead-go/types"
)

type FetchRunSaver interface {
	SaveFetchRun(ctx context.Context, r database.FetchRunRow) error
}

type PriceListener func(series []types.PriceInterval)

// NewMarketPriceTask returns a task refreshing prices from provider. Runs are
// serialized since the provider is not safe for concurrent Fetch calls.
func NewMarketPriceTask(
	logger *slog.Logger,
	db FetchRunSaver,
	provider types.MarketPriceProvider,
	prices *MarketPrices,
	listeners ...PriceListener,
) func() {
	var mu sync.Mutex
	return func() {
		mu.Lock()
		defer mu.Unlock()
		runMarketPriceTask(logger, db, provider, prices, listeners)
	}
}

func runMarketPriceTask(
	logger *slog.Logger,
	db FetchRunSaver,
	provider types.MarketPriceProvider,
	prices *MarketPrices,
	listeners []PriceListener,
) {
	logger.Debug("running market price task...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	market := provider.Market()
	startedAt := time.Now()
	err := provider.Fetch(ctx)
	finishedAt := time.Now()
	metrics.FetchDuration.WithLabelValues(market).Observe(finishedAt.Sub(startedAt).Seconds())

	run := database.FetchRunRow{
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Provider:   provider.Name(),
		Market:     market,
		Resolution: provider.Resolution(),
	}

	if err != nil {
		metrics.FetchesTotal.WithLabelValues(market, "error").Inc()
		logger.Error("market price task error, fetching prices", slog.Any("error", err))
		run.Error = err.Error()
		saveFetchRun(logger, db, run)
		return
	}

	series := provider.PriceSeries()
	run.Intervals = len(series)
	saveFetchRun(logger, db, run)

	prices.set(series, finishedAt)
	metrics.FetchesTotal.WithLabelValues(market, "success").Inc()
	metrics.Intervals.WithLabelValues(market).Set(float64(len(series)))
	metrics.LastSuccess.WithLabelValues(market).Set(float64(finishedAt.Unix()))
	if current, ok := CurrentInterval(series, finishedAt); ok {
		metrics.CurrentPrice.WithLabelValues(market).Set(current.Price)
	} else {
		metrics.CurrentPrice.DeleteLabelValues(market)
	}

	for _, listener := range listeners {
		listener(series)
	}

	logger.Info("market price task done",
		slog.String("market", market),
		slog.Int("noOfIntervals", len(series)))
}

// Saved with its own deadline, the fetch context may already be done.
func saveFetchRun(logger *slog.Logger, db FetchRunSaver, run database.FetchRunRow) {
	if db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.SaveFetchRun(ctx, run); err != nil {
		logger.Warn("could not save fetch run", slog.Any("error", err))
	}
}
