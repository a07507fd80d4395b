// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server is the HTTP surface SPEC_FULL.md §3 wires over
// github.com/go-chi/chi/v5, the router in
// pkg/transport/http_metrics_middleware.go. It exposes the minimal
// control surface a caller needs over an Agent Process: start one,
// respond to its awaitable, and stream its events -- spec.md never
// mandates a wire format beyond §6, so this is this module's own.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/flowstate-ai/agentcore/awaitable"
	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/eventbus"
	"github.com/flowstate-ai/agentcore/planner"
	"github.com/flowstate-ai/agentcore/process"
	"github.com/flowstate-ai/agentcore/registry"
	"github.com/flowstate-ai/agentcore/typeregistry"
	"github.com/flowstate-ai/agentcore/worldstate"
)

// Server exposes agent processes over HTTP. It owns no agent
// definitions itself -- those are resolved by name through Agents
// (spec.md §9 "resolved through the platform registry").
type Server struct {
	Agents     *registry.AgentRegistry
	Types      *typeregistry.Registry
	Bus        *eventbus.Bus
	Awaitables *awaitable.Store
	Executor   *process.Executor

	// Auth, when set, gates every route behind bearer-token
	// validation. RateLimit, when set, caps POST /processes per
	// remote identifier. Both are optional: nil leaves the route
	// unmiddlewared.
	Auth      *TokenValidator
	RateLimit *RateLimiter

	mu        sync.RWMutex
	processes map[string]*process.Process
}

// New builds a Server. exec drives every process this server starts;
// callers typically build one Executor per planner/policy
// configuration and share it across requests (spec.md §5 "the
// executor ... safely drives many processes concurrently").
func New(agents *registry.AgentRegistry, types *typeregistry.Registry, bus *eventbus.Bus, awaitables *awaitable.Store, exec *process.Executor) *Server {
	return &Server{
		Agents:     agents,
		Types:      types,
		Bus:        bus,
		Awaitables: awaitables,
		Executor:   exec,
		processes:  make(map[string]*process.Process),
	}
}

// Router builds the chi mux: POST /processes starts a process,
// GET /processes/{id} reports its status, POST /processes/{id}/respond
// answers its pending awaitable, GET /processes/{id}/events streams
// its lifecycle events over SSE.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if s.Auth != nil {
		r.Use(s.Auth.Middleware)
	}

	r.Group(func(r chi.Router) {
		if s.RateLimit != nil {
			r.Use(s.RateLimit.Middleware)
		}
		r.Post("/processes", s.handleCreate)
	})
	r.Get("/processes/{id}", s.handleGet)
	r.Post("/processes/{id}/respond", s.handleRespond)
	r.Get("/processes/{id}/events", s.handleEvents)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("server: request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

type createRequest struct {
	Agent  string         `json:"agent"`
	Inputs map[string]any `json:"inputs"`
}

type createResponse struct {
	ID     string        `json:"id"`
	Status process.State `json:"status"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ag, ok := s.Agents.Get(req.Agent)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("server: unknown agent %q", req.Agent))
		return
	}

	bb := blackboard.New(s.Types)
	for name, v := range req.Inputs {
		bb.Bind(name, v)
	}

	p := process.New(uuid.NewString(), "", ag, bb)

	s.mu.Lock()
	s.processes[p.ID()] = p
	s.mu.Unlock()

	if err := s.Executor.Run(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{ID: p.ID(), Status: p.Status()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := s.process(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("server: unknown process %q", id))
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

type respondRequest struct {
	Response any `json:"response"`
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := s.process(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("server: unknown process %q", id))
		return
	}
	if p.Status() != process.StateWaiting {
		writeError(w, http.StatusConflict, fmt.Errorf("server: process %q is not waiting", id))
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	awID := p.Snapshot().PendingAwaitableID
	if _, err := s.Awaitables.Resolve(awID, req.Response, p.Blackboard()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := p.Wake(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	if err := s.Executor.Run(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, createResponse{ID: p.ID(), Status: p.Status()})
}

// handleEvents streams p's lifecycle events as Server-Sent Events
// (grounded on pkg/server/events.go's SSE shape), filtering the Bus
// to this process's ID for the life of the connection.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.process(id); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("server: unknown process %q", id))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("server: streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := make(chan eventbus.Event, 64)
	unsubscribe := s.Bus.Subscribe(func(e eventbus.Event) {
		if e.ProcessID != id {
			return
		}
		select {
		case events <- e:
		default:
			slog.Warn("server: dropping event, subscriber channel full", "process_id", id)
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
			flusher.Flush()
		}
	}
}

func (s *Server) process(id string) (*process.Process, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.processes[id]
	return p, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// PlannerTypeFromConfig maps the config package's lowercase
// planner_type string to planner.Type's uppercase constants.
func PlannerTypeFromConfig(s string) planner.Type {
	switch s {
	case "utility":
		return planner.TypeUtility
	case "supervisor":
		return planner.TypeSupervisor
	default:
		return planner.TypeGOAP
	}
}
