package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/database"
	"github.com/angas/dayahead-go/types"
	"github.com/robfig/cron/v3"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	mu              sync.RWMutex
	listeners       []PriceListener
	Prices          *MarketPrices
	MarketPriceTask func()
	MaintenanceTask func()
}

func NewTasks(db *database.Database, provider types.MarketPriceProvider, cnfg *config.AppConfig) *Tasks {
	logger := slog.Default().With("module", "tasks")
	t := &Tasks{
		cron: cron.New(cron.WithChain(
			cron.Recover(newCronLogger(logger)),
			cron.SkipIfStillRunning(newCronLogger(logger)))),
		cnfg:   cnfg,
		Prices: NewMarketPrices(provider),
	}
	t.MarketPriceTask = NewMarketPriceTask(logger.With(slog.String("task", "market_price")), db, provider, t.Prices, t.notify)
	t.MaintenanceTask = NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg)
	return t
}

// OnPrices registers a listener for every successfully fetched series.
func (t *Tasks) OnPrices(listener PriceListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}

func (t *Tasks) notify(series []types.PriceInterval) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, listener := range t.listeners {
		listener(series)
	}
}

// Run schedules the tasks and refreshes prices right away in the background.
func (t *Tasks) Run() error {
	if _, err := t.cron.AddFunc(t.cnfg.Nordpool.GetRunAt(), t.MarketPriceTask); err != nil {
		return fmt.Errorf("scheduling market price task: %w", err)
	}
	if _, err := t.cron.AddFunc("30 2 * * *", t.MaintenanceTask); err != nil {
		return fmt.Errorf("scheduling maintenance task: %w", err)
	}
	t.cron.Start()
	go t.MarketPriceTask()
	return nil
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
