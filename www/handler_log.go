package www

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/angas/dayahead-go/database"
	"github.com/angas/dayahead-go/logging"
)

type Store interface {
	GetLogEntries(ctx context.Context, minLvl slog.Level, page, pageSize int) ([]database.LogEntryRow, error)
	GetFetchRuns(ctx context.Context, limit int) ([]database.FetchRunRow, error)
}

type logEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Attrs     string `json:"attrs,omitempty"`
}

func NewLogHandler(logger *slog.Logger, db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var level *string
		if l := r.URL.Query().Get("level"); l != "" {
			level = &l
		}
		page := intOrDefault(r.URL, "page", 1)
		pageSize := intOrDefault(r.URL, "pageSize", 25)

		rows, err := db.GetLogEntries(r.Context(), logging.LevelFromString(level), page, pageSize)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		entries := make([]logEntry, len(rows))
		for i, row := range rows {
			entries[i] = logEntry{
				Timestamp: row.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
				Level:     slog.Level(row.Level).String(),
				Message:   row.Message,
				Attrs:     row.Attrs,
			}
		}
		writeJSON(logger, w, http.StatusOK, entries)
	}
}

type fetchRun struct {
	StartedAt  string  `json:"startedAt"`
	DurationMs int64   `json:"durationMs"`
	Provider   string  `json:"provider"`
	Market     string  `json:"market"`
	Resolution int     `json:"resolution"`
	Intervals  int     `json:"intervals"`
	Error      *string `json:"error,omitempty"`
}

func NewFetchRunsHandler(logger *slog.Logger, db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rows, err := db.GetFetchRuns(r.Context(), intOrDefault(r.URL, "limit", 20))
		if err != nil {
			logger.Error("handling fetch_runs request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		runs := make([]fetchRun, len(rows))
		for i, row := range rows {
			runs[i] = fetchRun{
				StartedAt:  row.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
				DurationMs: row.FinishedAt.Sub(row.StartedAt).Milliseconds(),
				Provider:   row.Provider,
				Market:     row.Market,
				Resolution: row.Resolution,
				Intervals:  row.Intervals,
			}
			if row.Error != "" {
				runs[i].Error = &row.Error
			}
		}
		writeJSON(logger, w, http.StatusOK, runs)
	}
}
