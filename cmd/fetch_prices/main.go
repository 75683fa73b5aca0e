package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/angas/dayahead-go/nordpool"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func main() {
	_ = godotenv.Load()

	market := flag.String("market", envOrDefault("NORDPOOL_MARKET", "NL"), "bidding zone")
	resolutions := flag.String("resolutions", "15,60", "comma separated resolutions in minutes")
	baseURL := flag.String("url", "", "override the Nordpool data portal")
	debug := flag.Bool("debug", false, "log suppressed errors")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	for _, r := range strings.Split(*resolutions, ",") {
		resolution, err := strconv.Atoi(strings.TrimSpace(r))
		if err != nil {
			logger.Error("invalid resolution", slog.String("value", r))
			os.Exit(2)
		}

		client, err := nordpool.New(*market, resolution, nil)
		if err != nil {
			logger.Error("invalid configuration", slog.Any("error", err))
			os.Exit(2)
		}
		client.SetLogger(logger)
		if *baseURL != "" {
			client.SetBaseURL(*baseURL)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = client.Fetch(ctx)
		cancel()
		if err != nil {
			logger.Error("fetch failed", slog.Int("resolution", resolution), slog.Any("error", err))
			os.Exit(1)
		}

		series := client.PriceSeries()
		fmt.Printf("resolution=%d count=%d\n", resolution, len(series))
		for _, p := range series {
			fmt.Printf("%s: %.5f %s/kWh\n", p.StartTime.Format(time.RFC3339), p.Price, client.Currency())
		}
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
