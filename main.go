package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/database"
	"github.com/angas/dayahead-go/logging"
	"github.com/angas/dayahead-go/nordpool"
	"github.com/angas/dayahead-go/publish"
	"github.com/angas/dayahead-go/task"
	"github.com/angas/dayahead-go/www"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// A missing .env file is fine, the environment may be set up elsewhere
	_ = godotenv.Load()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleLevel := new(slog.LevelVar)
	consoleLevel.Set(cnfg.Logging.GetConsoleLevel())
	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      consoleLevel,
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("dayahead is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	dbLevel := new(slog.LevelVar)
	dbLevel.Set(cnfg.Logging.GetDbLevel())
	handlers := []slog.Handler{
		consoleHandler,
		logging.NewSQLiteHandler(db, dbLevel, cnfg.Logging.GetDbAttrsFormat()),
	}
	if opts, ok := cnfg.Logging.GetFileOptions(); ok {
		fileHandler, closer := logging.NewFileHandler(opts, consoleLevel)
		defer closer.Close()
		handlers = append(handlers, fileHandler)
	}
	logger := slog.New(logging.NewMultiHandler(handlers...))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	cnfg.WatchChanges(logger.With("module", "config"), func(next *config.AppConfig) {
		consoleLevel.Set(next.Logging.GetConsoleLevel())
		dbLevel.Set(next.Logging.GetDbLevel())
	})

	provider, err := nordpool.New(
		cnfg.Nordpool.Market,
		cnfg.Nordpool.GetResolution(),
		&http.Client{Timeout: cnfg.Nordpool.GetTimeout()})
	if err != nil {
		panic(fmt.Sprintf("invalid nordpool configuration: %v", err))
	}
	provider.SetLogger(logger.With("module", "nordpool"))
	if url := cnfg.Nordpool.GetUrl(); url != "" {
		provider.SetBaseURL(url)
	}

	tasks := task.NewTasks(db, provider, cnfg)

	if cnfg.Mqtt.Enabled {
		publisher := publish.NewMQTTPublisher(cnfg.Mqtt, provider)
		if err := publisher.Connect(); err != nil {
			panic(fmt.Sprintf("mqtt connection error: %v", err))
		}
		defer publisher.Disconnect()
		tasks.OnPrices(publisher.Publish)
	} else {
		logger.Info("mqtt disabled, prices are not published")
	}

	server := www.NewServer(db, tasks.Prices, tasks.MarketPriceTask, cnfg.Api, Version)
	tasks.OnPrices(server.Broadcast)

	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		if err := tasks.Run(); err != nil {
			panic(fmt.Sprintf("failed to schedule tasks: %v", err))
		}
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("main context done")
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	server.Run(ctx)
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}

	time.Sleep(2 * time.Second)
	os.Exit(1)
}
