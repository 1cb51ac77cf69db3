// Package api exposes the collected token data over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"dexcollector/config"
	"dexcollector/internal/analytics"
	"dexcollector/internal/globaldata"
	"dexcollector/internal/tokendata"
	"dexcollector/pkg/historycache"
	"dexcollector/pkg/subgraph"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	globalMaxAge  = time.Minute
	maxImportSize = 64 << 20
)

// HealthCheck reports an unhealthy dependency by returning an error.
type HealthCheck func(ctx context.Context) error

type Server struct {
	tokens *tokendata.Service
	global *globaldata.Fetcher
	cache  *historycache.Cache
	logger *zap.Logger
	checks map[string]HealthCheck

	router *mux.Router
	srv    *http.Server
}

func New(cfg config.ServerConfig, tokens *tokendata.Service, global *globaldata.Fetcher, cache *historycache.Cache, logger *zap.Logger) *Server {
	s := &Server{
		tokens: tokens,
		global: global,
		cache:  cache,
		logger: logger,
		checks: make(map[string]HealthCheck),
		router: mux.NewRouter(),
	}
	s.routes()

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(s.router)

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(instrument)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.router.HandleFunc("/global", s.handleGlobal).Methods(http.MethodGet)
	s.router.HandleFunc("/tokens", s.handleTopTokens).Methods(http.MethodGet)
	s.router.HandleFunc("/tokens/{address}", s.handleToken).Methods(http.MethodGet)
	s.router.HandleFunc("/tokens/{address}/pairs", s.handleTokenPairs).Methods(http.MethodGet)
	s.router.HandleFunc("/tokens/{address}/transactions", s.handleTokenTransactions).Methods(http.MethodGet)
	s.router.HandleFunc("/tokens/{address}/chart", s.handleTokenChart).Methods(http.MethodGet)
	s.router.HandleFunc("/tokens/{address}/prices", s.handleTokenPrices).Methods(http.MethodGet)

	s.router.HandleFunc("/cache/export", s.handleCacheExport).Methods(http.MethodGet)
	s.router.HandleFunc("/cache/import", s.handleCacheImport).Methods(http.MethodPost)
}

// AddHealthCheck registers a dependency probed by /healthz.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves in the background. Listen errors other than a clean shutdown are logged.
func (s *Server) Start() {
	go func() {
		s.logger.Info("API server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, tokendata.ErrInvalidAddress):
		status = http.StatusBadRequest
	case errors.Is(err, tokendata.ErrBlacklisted), errors.Is(err, subgraph.ErrNoData):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	result := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			result[name] = err.Error()
			continue
		}
		result[name] = "ok"
	}
	s.writeJSON(w, status, result)
}

func (s *Server) handleGlobal(w http.ResponseWriter, r *http.Request) {
	data, err := s.global.Get(r.Context(), globalMaxAge)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleTopTokens(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tokens.TopTokens())
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	data, err := s.tokens.TokenData(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleTokenPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.tokens.TokenPairs(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pairs)
}

func (s *Server) handleTokenTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.tokens.TokenTransactions(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, txns)
}

// handleTokenChart answers 202 with an empty chart while the first backfill runs.
func (s *Server) handleTokenChart(w http.ResponseWriter, r *http.Request) {
	chart, err := s.tokens.TokenChartData(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if chart == nil {
		s.writeJSON(w, http.StatusAccepted, []analytics.DayPoint{})
		return
	}
	s.writeJSON(w, http.StatusOK, chart)
}

func (s *Server) handleTokenPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	window := analytics.Week
	if v := q.Get("window"); v != "" {
		tf, err := analytics.ParseTimeframe(v)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		window = tf
	}

	interval := int64(3600)
	if v := q.Get("interval"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid interval: " + v})
			return
		}
		interval = n
	}

	candles, err := s.tokens.TokenPriceData(r.Context(), mux.Vars(r)["address"], window, interval)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, candles)
}

func (s *Server) handleCacheExport(w http.ResponseWriter, r *http.Request) {
	blob, err := s.cache.ExportAll(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.cache.Namespace()+`.json"`)
	_, _ = w.Write(blob)
}

func (s *Server) handleCacheImport(w http.ResponseWriter, r *http.Request) {
	overwrite := false
	if v := r.URL.Query().Get("overwrite"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid overwrite: " + v})
			return
		}
		overwrite = b
	}

	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		return
	}
	if err := s.cache.ImportAll(r.Context(), blob, overwrite); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	loaded := s.tokens.WarmFromCache(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]any{"imported": true, "charts": loaded})
}
