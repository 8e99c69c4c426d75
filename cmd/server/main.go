package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nurulabs/roiprojector/internal/config"
	"github.com/nurulabs/roiprojector/internal/logger"
	"github.com/nurulabs/roiprojector/internal/metrics"
	"github.com/nurulabs/roiprojector/internal/scheduler"
	"github.com/nurulabs/roiprojector/projector"
)

type Server struct {
	db         *sql.DB
	cfg        *config.Config
	store      projector.Store
	aggregator *projector.Aggregator
	insights   *projector.InsightGenerator
	analyzer   projector.Analyzer
	metrics    *metrics.Metrics
	router     *chi.Mux
}

func NewServer(cfg *config.Config) (*Server, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewServerWithDB(db, cfg)
}

// NewServerWithDB builds the server over an existing pool. Storage is
// injected into the core components here; nothing below holds a global
// connection.
func NewServerWithDB(db *sql.DB, cfg *config.Config) (*Server, error) {
	m := metrics.New()
	store := &instrumentedStore{Store: projector.NewPostgresStore(db), metrics: m}
	insights := projector.NewInsightGenerator(store)
	analyzer := &instrumentedAnalyzer{gen: insights, metrics: m}

	s := &Server{
		db:         db,
		cfg:        cfg,
		store:      store,
		insights:   insights,
		analyzer:   analyzer,
		aggregator: projector.NewAggregator(store, analyzer),
		metrics:    m,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/calculate", s.handleCalculate)
		r.Get("/session/{sessionID}", s.handleSession)
		r.Get("/stats", s.handleStats)
		r.Get("/report", s.handleReport)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// observe records request counts and latency per chi route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "roi-projector",
	})
}

// handleCalculate runs the full pipeline: estimate, persist, issue a
// session, fold patterns. A fold failure fails the request, since the
// pattern averages must account for every stored projection.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var input projector.ProjectionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if input.CompanyName == "" {
		input.CompanyName = "Anonymous"
	}

	result, err := projector.Estimate(input)
	if err != nil {
		if errors.Is(err, projector.ErrInvalidInput) {
			s.metrics.InvalidInputTotal.Inc()
			respondError(w, http.StatusBadRequest, "missing required fields", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "estimation failed", err)
		return
	}

	id, err := s.store.InsertProjection(result)
	if err != nil {
		logger.Error("failed to store projection", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to store projection", err)
		return
	}
	result.ID = id

	sessionID, err := s.createSession(id, result)
	if err != nil {
		logger.Error("failed to create session", "error", err, "projection_id", id)
		respondError(w, http.StatusInternalServerError, "failed to create session", err)
		return
	}

	if err := s.aggregator.Fold(result); err != nil {
		logger.Error("failed to fold patterns", "error", err, "projection_id", id)
		respondError(w, http.StatusInternalServerError, "failed to record patterns", err)
		return
	}

	s.metrics.ProjectionsTotal.WithLabelValues(string(result.Assessment.RiskLevel)).Inc()
	logger.Info("projection calculated",
		"projection_id", id,
		"process", result.Input.ProcessName,
		"risk_level", result.Assessment.RiskLevel,
		"annual_savings", result.Savings.AnnualSavings)

	respondJSON(w, http.StatusOK, calculateResponse{
		ProjectionID: id,
		SessionID:    sessionID,
		CurrentState: result.CurrentState,
		WithAI:       result.WithAI,
		Savings:      result.Savings,
		Assessment:   result.Assessment,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.CountProjections()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats", err)
		return
	}
	avgSavings, avgROI, err := s.store.ProjectionAverages()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats", err)
		return
	}
	topIndustries, err := s.store.TopIndustriesBySavings(1, 5)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats", err)
		return
	}

	industries := make([]industryStat, 0, len(topIndustries))
	for _, st := range topIndustries {
		industries = append(industries, industryStat{
			Industry:   st.Name,
			AvgSavings: st.AvgSavings,
			Count:      st.Frequency,
		})
	}

	respondJSON(w, http.StatusOK, statsResponse{
		TotalProjections: total,
		AvgAnnualSavings: avgSavings,
		AvgROIPercentage: avgROI,
		TopIndustries:    industries,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.insights.MonthlyReport()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build report", err)
		return
	}
	s.metrics.ReportsBuilt.Inc()
	respondJSON(w, http.StatusOK, report)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	defer server.db.Close()

	// The modulo-10 trigger covers steady traffic; the scheduler keeps
	// insights fresh when traffic is bursty or idle.
	err = scheduler.Start("pattern-analysis", cfg.AnalyzeSchedule, func() {
		if err := server.analyzer.Analyze(); err != nil {
			logger.Error("scheduled analysis failed", "error", err)
		}
	})
	if err != nil {
		logger.Fatal("failed to schedule analysis", "error", err)
	}

	err = scheduler.Start("monthly-report", cfg.ReportSchedule, func() {
		report, err := server.insights.MonthlyReport()
		if err != nil {
			logger.Error("scheduled report failed", "error", err)
			return
		}
		server.metrics.ReportsBuilt.Inc()
		logger.Info("monthly report",
			"total_projections", report.TotalProjections,
			"avg_annual_savings", report.AvgAnnualSavings,
			"opportunities", len(report.MarketOpportunities))
	})
	if err != nil {
		logger.Fatal("failed to schedule report", "error", err)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown error: %v\n", err)
	}
	logger.Info("server stopped")
}
