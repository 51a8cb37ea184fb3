// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package api serves the management HTTP API. Status and event reads
// never take the switch lock; mutating endpoints delegate to the
// controller and surface its conflict and validation errors as HTTP
// status codes.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"grimm.is/uplinkd/internal/controller"
	"grimm.is/uplinkd/internal/errors"
	"grimm.is/uplinkd/internal/logging"
	"grimm.is/uplinkd/internal/probe"
	"grimm.is/uplinkd/internal/state"
)

// ControllerAPI is the controller surface the server exposes.
type ControllerAPI interface {
	Status() controller.Status
	ManualSwitch(iface string) error
	ProbeInterface(ctx context.Context, iface string) probe.Result
	RestartLoop()
}

// EventSource reads the persisted event log.
type EventSource interface {
	RecentEvents(n int) ([]state.Event, error)
}

// Server is the management API server.
type Server struct {
	controller ControllerAPI
	events     EventSource
	metrics    http.Handler
	logger     *logging.Logger
	router     *mux.Router
	httpServer *http.Server
}

// NewServer wires the management API.
func NewServer(ctrl ControllerAPI, events EventSource, metricsHandler http.Handler, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	s := &Server{
		controller: ctrl,
		events:     events,
		metrics:    metricsHandler,
		logger:     logger,
		router:     mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/events", s.handleEvents).Methods("GET")
	api.HandleFunc("/switch", s.handleSwitch).Methods("POST")
	api.HandleFunc("/probe/{interface}", s.handleProbe).Methods("POST")
	api.HandleFunc("/restart", s.handleRestart).Methods("POST")

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving on addr in the background.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("Management API listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("Management API server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down, draining in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, errors.Errorf(errors.KindValidation, "invalid limit %q", v))
			return
		}
		limit = n
	}

	events, err := s.events.RecentEvents(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []state.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// SwitchRequest is the body of POST /api/v1/switch.
type SwitchRequest struct {
	Interface string `json:"interface"`
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, errors.KindValidation, "invalid request body"))
		return
	}
	if req.Interface == "" {
		writeError(w, errors.New(errors.KindValidation, "interface is required"))
		return
	}

	s.logger.Info("Manual switch requested", "interface", req.Interface)
	if err := s.controller.ManualSwitch(req.Interface); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"interface": req.Interface,
	})
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	iface := mux.Vars(r)["interface"]
	res := s.controller.ProbeInterface(r.Context(), iface)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Monitoring loop restart requested via API")
	s.controller.RestartLoop()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := errors.GetKind(err)
	status := http.StatusInternalServerError
	switch kind {
	case errors.KindValidation:
		status = http.StatusBadRequest
	case errors.KindNotFound:
		status = http.StatusNotFound
	case errors.KindConflict:
		status = http.StatusConflict
	case errors.KindUnavailable:
		status = http.StatusServiceUnavailable
	case errors.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}
