package www

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/logging"
	"github.com/angas/dayahead-go/task"
	"github.com/angas/dayahead-go/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	logger  *slog.Logger
	config  config.AppConfigApi
	prices  *task.MarketPrices
	hub     *Hub
	mux     *http.ServeMux
	version string
	now     func() time.Time
}

func NewServer(store Store, prices *task.MarketPrices, refresh func(), config config.AppConfigApi, version string) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger:  logger,
		config:  config,
		prices:  prices,
		hub:     NewHub(logger),
		mux:     http.NewServeMux(),
		version: version,
		now:     time.Now,
	}

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Log(r.Context(), logging.LevelTrace, "http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	s.mux.Handle("/prices", logReqMW(NewPricesHandler(
		logger.With(slog.String("handler", "prices")),
		prices)))

	s.mux.Handle("/prices/current", logReqMW(NewCurrentPriceHandler(
		logger.With(slog.String("handler", "current_price")),
		prices,
		func() time.Time { return s.now() })))

	s.mux.Handle("/refresh", logReqMW(NewRefreshHandler(refresh)))

	s.mux.Handle("/log", logReqMW(NewLogHandler(
		logger.With(slog.String("handler", "log")),
		store)))

	s.mux.Handle("/fetch_runs", logReqMW(NewFetchRunsHandler(
		logger.With(slog.String("handler", "fetch_runs")),
		store)))

	s.mux.Handle("/version", logReqMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(logger, w, http.StatusOK, map[string]string{"version": s.version})
	})))

	s.mux.Handle("/metrics", promhttp.Handler())

	s.mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		if !s.hub.Add(client) {
			client.conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Broadcast is a task.PriceListener pushing each new series to websocket clients.
func (s *Server) Broadcast(series []types.PriceInterval) {
	payload := types.NewSeriesPayload(s.prices.Market, s.prices.Resolution, s.prices.Currency, series)
	updatedAt := s.now().UTC()
	payload.UpdatedAt = &updatedAt

	buf, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal series", slog.Any("error", err))
		return
	}

	select {
	case s.hub.Broadcast <- buf:
	default:
		s.logger.Warn("websocket hub busy, dropping series")
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "address", s.config.Address, "port", s.config.Port)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Run(ctx)

	srvErrors := make(chan error, 1)
	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.Any("error", err))
		}

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown failed", slog.Any("error", err))
		}
	}
}
