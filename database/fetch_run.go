package database

import (
	"context"
	"fmt"
	"time"
)

// FetchRunRow is the outcome of one price refresh, Error is empty on success.
type FetchRunRow struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Provider   string
	Market     string
	Resolution int
	Intervals  int
	Error      string
}

func (d *Database) SaveFetchRun(ctx context.Context, r FetchRunRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO fetch_run (started_at, finished_at, provider, market, resolution, intervals, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.Provider,
		r.Market,
		r.Resolution,
		r.Intervals,
		r.Error)
	if err != nil {
		return fmt.Errorf("saving fetch run: %w", err)
	}
	return nil
}

func (d *Database) GetFetchRuns(ctx context.Context, limit int) ([]FetchRunRow, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := d.read.QueryContext(ctx, `
		SELECT started_at, finished_at, provider, market, resolution, intervals, error
		FROM fetch_run
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching fetch runs: %w", err)
	}
	defer rows.Close()

	var startedAt, finishedAt string
	runs := make([]FetchRunRow, 0)
	for rows.Next() {
		var r FetchRunRow
		if err := rows.Scan(&startedAt, &finishedAt, &r.Provider, &r.Market, &r.Resolution, &r.Intervals, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning fetch run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading fetch run rows: %w", err)
	}

	return runs, nil
}

func (d *Database) PurgeFetchRuns(ctx context.Context, retentionDays int) error {
	d.logger.Debug("purging fetch runs")
	before := time.Now().UTC().Add(-24 * time.Hour * time.Duration(retentionDays))
	res, err := d.write.ExecContext(ctx, `DELETE FROM fetch_run WHERE started_at < ?`,
		before.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("purging fetch runs: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		d.logger.Debug(fmt.Sprintf("purged %d rows from fetch_run", n))
	}
	return nil
}
