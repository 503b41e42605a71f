// Package server is the daemon's HTTP surface: task submission and
// polling, the websocket event stream, scheduling, host health and the
// operator abort switch.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/internal/engine"
	"github.com/Shivay00001/RemotePilot/internal/history"
	"github.com/Shivay00001/RemotePilot/internal/monitor"
	"github.com/Shivay00001/RemotePilot/internal/scheduler"
	"github.com/Shivay00001/RemotePilot/internal/tasks"
	"github.com/Shivay00001/RemotePilot/pkg/metrics"
)

// Version is reported by the liveness endpoint.
const Version = "1.0.0"

// HistoryReader lists recent terminal tasks.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Options wires the server's collaborators. Engine, Monitor and Logger
// are required; Scheduler, History and Metrics may be nil and their
// routes degrade accordingly.
type Options struct {
	Engine    *engine.Engine
	Monitor   *monitor.Monitor
	Scheduler *scheduler.Scheduler
	History   HistoryReader
	Metrics   *metrics.Metrics
	Logger    *logrus.Logger
	Host      string
	Port      int
}

// Server carries the HTTP state.
type Server struct {
	engine    *engine.Engine
	monitor   *monitor.Monitor
	scheduler *scheduler.Scheduler
	history   HistoryReader
	metrics   *metrics.Metrics
	log       *logrus.Logger
	srv       *http.Server
}

// New builds the server and its router.
func New(opts Options) *Server {
	s := &Server{
		engine:    opts.Engine,
		monitor:   opts.Monitor,
		scheduler: opts.Scheduler,
		history:   opts.History,
		metrics:   opts.Metrics,
		log:       opts.Logger,
	}

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket stream stays open
		IdleTimeout:  300 * time.Second,
	}
	return s
}

// Router assembles the route table. Exposed so tests can drive the
// handlers through httptest.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(s.corsMiddleware)

	router.HandleFunc("/", s.handleRoot).Methods("GET")
	router.HandleFunc("/task/submit", s.handleSubmit).Methods("POST", "OPTIONS")
	router.HandleFunc("/task/state/{task_id}", s.handleState).Methods("GET")
	router.HandleFunc("/task/cancel/{task_id}", s.handleCancel).Methods("POST", "OPTIONS")
	router.HandleFunc("/task/history", s.handleHistory).Methods("GET")
	router.HandleFunc("/task/schedule", s.handleSchedule).Methods("POST", "OPTIONS")
	router.HandleFunc("/task/scheduled", s.handleScheduled).Methods("GET")
	router.HandleFunc("/ws/logs", s.handleLogStream)
	router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	router.HandleFunc("/monitor/abort", s.handleAbort).Methods("POST", "OPTIONS")
	router.HandleFunc("/monitor/reset", s.handleReset).Methods("POST", "OPTIONS")
	if s.metrics != nil {
		router.Handle("/metrics/prometheus", s.metrics.Handler()).Methods("GET")
	}
	return router
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "RemotePilot Online",
		"version": Version,
	})
}

type submitRequest struct {
	Goal string `json:"goal"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Goal == "" {
		s.respondError(w, http.StatusBadRequest, "goal is required")
		return
	}

	id := s.engine.Submit(req.Goal)
	snap, err := s.engine.Get(id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"task_id": id,
		"status":  snap.Status,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["task_id"]
	snap, err := s.engine.Get(id)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			s.respondError(w, http.StatusNotFound, "Task not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["task_id"]
	if err := s.engine.Cancel(id); err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			s.respondError(w, http.StatusNotFound, "Task not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested", "task_id": id})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusServiceUnavailable, "history store unavailable")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.log.Errorf("failed to read task history: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to read task history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	s.respondJSON(w, http.StatusOK, entries)
}

type scheduleRequest struct {
	Goal string `json:"goal"`
	Cron string `json:"cron"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		s.respondError(w, http.StatusServiceUnavailable, "scheduler unavailable")
		return
	}
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": "Invalid schedule params"})
		return
	}
	jobID, err := s.scheduler.Schedule(req.Goal, req.Cron)
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": "Invalid schedule params"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "success", "job_id": jobID})
}

func (s *Server) handleScheduled(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		s.respondError(w, http.StatusServiceUnavailable, "scheduler unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, s.scheduler.Jobs())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.monitor.Snapshot(r.Context()))
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	s.monitor.RequestAbort()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "abort_triggered"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.monitor.Reset()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Errorf("failed to encode response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respondJSON(w, code, map[string]string{"error": message})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
