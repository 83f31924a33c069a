package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
	"github.com/SungwookYoon/searchdeposit6-web/internal/config"
	"github.com/SungwookYoon/searchdeposit6-web/internal/dashboard"
	"github.com/SungwookYoon/searchdeposit6-web/internal/health"
	"github.com/SungwookYoon/searchdeposit6-web/internal/metrics"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Server is the dashboard console: a JSON binding of the controller plus
// health, metrics and the embedded page.
type Server struct {
	ctrl        *dashboard.Controller
	healthCheck *health.Checker
	metrics     *metrics.Collector
	httpServer  *http.Server
	startTime   time.Time
	consoleCfg  config.ConsoleConfig
	logger      *slog.Logger
}

// NewServer creates a new console server. hc, m and logger may be nil.
func NewServer(ctrl *dashboard.Controller, hc *health.Checker, m *metrics.Collector, cc config.ConsoleConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ctrl:        ctrl,
		healthCheck: hc,
		metrics:     m,
		startTime:   time.Now(),
		consoleCfg:  cc,
		logger:      logger,
	}
}

// authMiddleware returns a middleware that checks for a valid API key.
// Unauthenticated routes (health, ready, metrics) are excluded.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/ready" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := s.consoleCfg.APIKey
		if apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != apiKey {
			writeError(w, http.StatusUnauthorized, "unauthorized: invalid or missing API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler builds the console's route table wrapped in its middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	ui := r.PathPrefix("/ui").Subrouter()
	ui.HandleFunc("/state", s.stateHandler).Methods("GET")

	// Filters
	ui.HandleFunc("/filters", s.applyFilters).Methods("POST")
	ui.HandleFunc("/filters/search", s.setSearch).Methods("POST")
	ui.HandleFunc("/filters/reset", s.resetFilters).Methods("POST")

	// Paging
	ui.HandleFunc("/pages/{n}", s.loadPage).Methods("POST")

	// Selection
	ui.HandleFunc("/selection/{id}", s.toggleSelection).Methods("PUT")
	ui.HandleFunc("/selection", s.selectVisible).Methods("PUT")
	ui.HandleFunc("/selection/{id}", s.removeSelection).Methods("DELETE")
	ui.HandleFunc("/selection", s.clearSelection).Methods("DELETE")

	// Detail, reports and export
	ui.HandleFunc("/projects/{id}", s.projectDetail).Methods("GET")
	ui.HandleFunc("/reports", s.generateReports).Methods("POST")
	ui.HandleFunc("/reports/{filename}", s.downloadReport).Methods("GET")
	ui.HandleFunc("/export", s.exportExcel).Methods("POST")

	// Server status
	r.HandleFunc("/status", s.statusHandler).Methods("GET")

	// Health & readiness
	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.HandleFunc("/ready", s.readyHandler).Methods("GET")

	// Prometheus metrics
	if s.metrics != nil && s.metrics.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Dashboard page
	r.HandleFunc("/", s.dashboardHandler).Methods("GET")
	r.HandleFunc("/dashboard", s.dashboardHandler).Methods("GET")

	return gziphandler.GzipHandler(s.securityHeaders(s.authMiddleware(r)))
}

// Start starts the console HTTP server in the background.
func (s *Server) Start() error {
	bind := s.consoleCfg.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	addr := fmt.Sprintf("%s:%d", bind, s.consoleCfg.Port)
	// report generation and export wait on the project API
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	if s.consoleCfg.APIKey == "" {
		s.logger.Warn("API key not configured, console endpoints are unauthenticated")
	}
	s.logger.Info("console listening", "addr", addr, "tls", s.consoleCfg.TLSEnabled())

	go func() {
		var err error
		if s.consoleCfg.TLSEnabled() {
			err = s.httpServer.ListenAndServeTLS(s.consoleCfg.TLSCert, s.consoleCfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error("console server error", "err", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the console server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// --- State & Filter Handlers ---

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(s.ctrl.Snapshot()))
}

func (s *Server) applyFilters(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	// omitted fields keep their defaults, so a bare {} means "no filters"
	fc := dashboard.DefaultControls()
	if err := json.NewDecoder(r.Body).Decode(&fc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if fc.MinScore > fc.MaxScore {
		writeError(w, http.StatusBadRequest, "min_score must not exceed max_score")
		return
	}

	s.respondState(w, s.ctrl.ApplyFilters(r.Context(), fc))
}

func (s *Server) setSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req struct {
		Search string `json:"search"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.ctrl.SetSearch(req.Search)
	writeJSON(w, http.StatusAccepted, newStateView(s.ctrl.Snapshot()))
}

func (s *Server) resetFilters(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, s.ctrl.ResetFilters(r.Context()))
}

func (s *Server) loadPage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	s.respondState(w, s.ctrl.LoadPage(r.Context(), n))
}

// --- Selection Handlers ---

type selectionRequest struct {
	Included *bool `json:"included"`
}

func decodeSelection(w http.ResponseWriter, r *http.Request) (bool, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false, false
	}
	if req.Included == nil {
		writeError(w, http.StatusBadRequest, "included is required")
		return false, false
	}
	return *req.Included, true
}

func (s *Server) toggleSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}
	included, ok := decodeSelection(w, r)
	if !ok {
		return
	}
	s.respondState(w, s.ctrl.Toggle(id, included))
}

func (s *Server) selectVisible(w http.ResponseWriter, r *http.Request) {
	included, ok := decodeSelection(w, r)
	if !ok {
		return
	}
	s.respondState(w, s.ctrl.SelectAllVisible(included))
}

func (s *Server) removeSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}
	s.respondState(w, s.ctrl.Remove(id))
}

func (s *Server) clearSelection(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, s.ctrl.Clear())
}

// --- Detail, Report & Export Handlers ---

func (s *Server) projectDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	detail, err := s.ctrl.ShowProjectDetail(r.Context(), id)
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDetailView(detail))
}

func (s *Server) generateReports(w http.ResponseWriter, r *http.Request) {
	view, err := s.ctrl.GenerateReports(r.Context())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}

	s.logger.Info("reports generated", "count", view.GeneratedCount)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		writeError(w, http.StatusBadRequest, "invalid report filename")
		return
	}
	http.Redirect(w, r, s.ctrl.DownloadURL(filename), http.StatusFound)
}

func (s *Server) exportExcel(w http.ResponseWriter, r *http.Request) {
	res, err := s.ctrl.ExportExcel(r.Context())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newExportView(res))
}

// --- Health Handlers ---

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": boolToStatus(true)})
		return
	}

	statuses := s.healthCheck.GetAllStatuses()
	allHealthy := s.healthCheck.OverallHealthy()

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":  boolToStatus(allHealthy),
		"targets": statuses,
	})
}

// readyHandler reports ready once the first page has loaded.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.ctrl.Snapshot().Status == dashboard.StatusLoaded {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

// --- Status Handler ---

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	snap := s.ctrl.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_mb":      float64(mem.Alloc) / 1024 / 1024,
		"dashboard": map[string]any{
			"status":         snap.Status,
			"current_page":   snap.Page.CurrentPage,
			"total_items":    snap.Page.TotalItems,
			"selected":       snap.Selection.Count,
			"report_running": snap.Report.Running,
		},
	})
}

// securityHeaders adds security-related HTTP headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// --- Helpers ---

// respondState answers with the new state, or maps err to an error response.
// A superseded load is not an error for the caller: the newer load owns the state.
func (s *Server) respondState(w http.ResponseWriter, err error) {
	if err != nil && !errors.Is(err, dashboard.ErrSuperseded) {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(s.ctrl.Snapshot()))
}

func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	class := dashboard.Classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("console request failed", "class", class, "status", status, "err", err)
	}

	msg := backend.ServerMessage(err)
	var inputErr *dashboard.InputError
	if errors.As(err, &inputErr) {
		msg = inputErr.Message
	}
	if msg == "" {
		msg = err.Error()
	}
	writeJSON(w, status, map[string]string{"error": msg, "class": string(class)})
}

func statusFor(err error) int {
	var httpErr *backend.HTTPError
	switch {
	case errors.Is(err, dashboard.ErrNotLoaded), errors.Is(err, dashboard.ErrReportInProgress):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	}

	switch dashboard.Classify(err) {
	case dashboard.ClassUserInput, dashboard.ClassApp:
		return http.StatusUnprocessableEntity
	case dashboard.ClassNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func projectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "project id must be a non-negative number")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func boolToStatus(b bool) string {
	if b {
		return "healthy"
	}
	return "unhealthy"
}
