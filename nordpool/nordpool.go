package nordpool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/angas/dayahead-go/types"
)

const dateLayout = "2006-01-02"

// Doer is the part of *http.Client that Client needs. Timeouts are the Doer's business.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrorPolicy decides what a failed day means for Fetch. Returning nil makes the
// day contribute zero intervals, returning an error aborts Fetch.
type ErrorPolicy func(logger *slog.Logger, date time.Time, err error) error

var (
	// FailLoud aborts Fetch, used for today.
	FailLoud ErrorPolicy = func(_ *slog.Logger, date time.Time, err error) error {
		return fmt.Errorf("failed to fetch prices from nordpool for %s: %w", date.Format(dateLayout), err)
	}

	// FailSoft logs and carries on, used for tomorrow since those prices are only
	// published around noon CET.
	FailSoft ErrorPolicy = func(logger *slog.Logger, date time.Time, err error) error {
		logger.Debug("no prices from nordpool, skipping day",
			slog.String("date", date.Format(dateLayout)),
			slog.Any("error", err))
		return nil
	}
)

// Client fetches day-ahead prices for a single bidding zone and resolution and keeps
// the most recent series. A Client does no locking, callers must not run Fetch
// concurrently on the same instance.
type Client struct {
	httpClient     Doer
	logger         *slog.Logger
	baseURL        string
	market         string
	resolution     int
	series         []types.PriceInterval
	now            func() time.Time
	todayPolicy    ErrorPolicy
	tomorrowPolicy ErrorPolicy
}

func New(market string, resolution int, httpClient Doer) (*Client, error) {
	if !slices.Contains(BiddingZones, market) {
		return nil, &InvalidConfigurationError{Field: "bidding zone", Value: market}
	}
	if !slices.Contains(SupportedResolutions, resolution) {
		return nil, &InvalidConfigurationError{Field: "resolution", Value: resolution}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		httpClient:     httpClient,
		logger:         slog.Default().With(slog.String("module", "nordpool"), slog.String("market", market)),
		baseURL:        API_URL,
		market:         market,
		resolution:     resolution,
		series:         make([]types.PriceInterval, 0),
		now:            time.Now,
		todayPolicy:    FailLoud,
		tomorrowPolicy: FailSoft,
	}, nil
}

func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

func (c *Client) Name() string {
	return "Nordpool API"
}

func (c *Client) Market() string {
	return c.market
}

func (c *Client) Resolution() int {
	return c.resolution
}

func (c *Client) Currency() string {
	return currency
}

// PriceSeries returns a copy of the series stored by the last successful Fetch.
func (c *Client) PriceSeries() []types.PriceInterval {
	return slices.Clone(c.series)
}

// Fetch replaces the price series with today's and tomorrow's intervals (UTC dates).
// If today fails the series is left untouched and the error is returned.
func (c *Client) Fetch(ctx context.Context) error {
	t := c.now().UTC()
	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	todays, err := c.fetchDay(ctx, today, c.todayPolicy)
	if err != nil {
		return err
	}

	tomorrows, err := c.fetchDay(ctx, today.AddDate(0, 0, 1), c.tomorrowPolicy)
	if err != nil {
		return err
	}

	c.series = append(todays, tomorrows...)
	c.logger.Debug("fetched prices from nordpool",
		slog.Int("today", len(todays)),
		slog.Int("tomorrow", len(tomorrows)))

	return nil
}

func (c *Client) fetchDay(ctx context.Context, date time.Time, policy ErrorPolicy) ([]types.PriceInterval, error) {
	payload, err := c.FetchRaw(ctx, date)
	if err != nil {
		return nil, policy(c.logger, date, err)
	}

	intervals, err := ExtractIntervals(payload, c.market)
	if err != nil {
		return nil, policy(c.logger, date, err)
	}

	return intervals, nil
}

// FetchRaw requests a single delivery date. There are no retries.
func (c *Client) FetchRaw(ctx context.Context, date time.Time) (*Payload, error) {
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	u.RawQuery = url.Values{
		"indexNames":          {c.market},
		"date":                {date.Format(dateLayout)},
		"market":              {marketType},
		"resolutionInMinutes": {strconv.Itoa(c.resolution)},
		"currency":            {currency},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &HTTPError{URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: u.String()}
	}

	if resp.StatusCode == http.StatusNoContent || resp.ContentLength == 0 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: u.String(), Err: ErrNoContent}
	}

	var payload Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        u.String(),
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}

	return &payload, nil
}
