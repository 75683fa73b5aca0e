package www

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/dayahead-go/task"
	"github.com/angas/dayahead-go/types"
)

func seriesPayload(prices *task.MarketPrices) types.SeriesPayload {
	series, updatedAt := prices.Get()
	payload := types.NewSeriesPayload(prices.Market, prices.Resolution, prices.Currency, series)
	if !updatedAt.IsZero() {
		payload.UpdatedAt = &updatedAt
	}
	return payload
}

func NewPricesHandler(logger *slog.Logger, prices *task.MarketPrices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(logger, w, http.StatusOK, seriesPayload(prices))
	}
}

// NewRefreshHandler starts refresh in the background and answers right away,
// the new series reaches clients over the websocket.
func NewRefreshHandler(refresh func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		go refresh()
		w.WriteHeader(http.StatusAccepted)
	}
}

func NewCurrentPriceHandler(logger *slog.Logger, prices *task.MarketPrices, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		current, ok := prices.Current(now())
		if !ok {
			http.Error(w, "No price for the current interval", http.StatusNotFound)
			return
		}
		writeJSON(logger, w, http.StatusOK, types.NewPricePayload(current))
	}
}
