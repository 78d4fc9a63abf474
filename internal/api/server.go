package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nexthint/internal/domain"
	"nexthint/internal/recurrence"
	"nexthint/internal/store"
)

type Server struct {
	r        *chi.Mux
	repo     store.Repository
	resolver *recurrence.Resolver
}

func NewServer(repo store.Repository, resolver *recurrence.Resolver) http.Handler {
	return NewServerWithDebug(repo, resolver, false)
}

func NewServerWithDebug(repo store.Repository, resolver *recurrence.Resolver, enableDebug bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	s := &Server{r: r, repo: repo, resolver: resolver}

	r.Get("/health", s.health)
	r.Get("/metrics", s.metrics)
	r.Post("/api/triggers", s.createTrigger)
	r.Get("/api/triggers", s.listTriggers)
	r.Get("/api/triggers/{id}", s.getTrigger)
	r.Put("/api/triggers/{id}", s.updateTrigger)
	r.Delete("/api/triggers/{id}", s.deleteTrigger)
	r.Get("/api/triggers/{id}/next", s.nextTrigger)
	r.Post("/api/preview", s.preview)

	if enableDebug {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
		r.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		r.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	}

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("nexthint_up 1\n"))
}

type triggerReq struct {
	WorkflowID string               `json:"workflow_id"`
	Name       string               `json:"name"`
	Rule       *domain.ScheduleRule `json:"rule"`
	Enabled    bool                 `json:"enabled"`
}

type createTriggerResp struct {
	ID string `json:"id"`
}

func (s *Server) createTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", 400)
		return
	}
	if req.WorkflowID == "" {
		http.Error(w, "workflow_id is required", 400)
		return
	}
	if req.Rule == nil {
		http.Error(w, "rule is required", 400)
		return
	}
	// The engine degrades silently on bad rules; the API does not persist them.
	if err := recurrence.Validate(*req.Rule); err != nil {
		http.Error(w, "invalid schedule rule: "+err.Error(), 400)
		return
	}

	id, err := s.repo.Create(r.Context(), domain.Trigger{
		WorkflowID: req.WorkflowID,
		Name:       req.Name,
		Rule:       *req.Rule,
		Enabled:    req.Enabled,
	})
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, http.StatusCreated, createTriggerResp{ID: id})
}

func (s *Server) listTriggers(w http.ResponseWriter, r *http.Request) {
	triggers, err := s.repo.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, 200, triggers)
}

func (s *Server) getTrigger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", 404)
		return
	}
	writeJSON(w, 200, t)
}

func (s *Server) updateTrigger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	trigger, err := s.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", 404)
		return
	}

	var req triggerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	if req.Name != "" {
		trigger.Name = req.Name
	}
	if req.WorkflowID != "" {
		trigger.WorkflowID = req.WorkflowID
	}
	if req.Rule != nil {
		if err := recurrence.Validate(*req.Rule); err != nil {
			http.Error(w, "invalid schedule rule: "+err.Error(), 400)
			return
		}
		trigger.Rule = *req.Rule
		// The stored authoritative value belongs to the old rule; drop it so
		// the refresher recomputes and the hint falls back to local math
		// until it does.
		trigger.NextTrigger = nil
		trigger.LastComputedAt = nil
	}
	trigger.Enabled = req.Enabled

	if err := s.repo.Update(r.Context(), trigger); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", 404)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, 200, trigger)
}

func (s *Server) deleteTrigger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.repo.Delete(r.Context(), id); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nextTrigger serves the hint shown on a trigger card: the stored
// authoritative next-trigger when present, local recurrence arithmetic
// otherwise.
func (s *Server) nextTrigger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", 404)
		return
	}

	var override string
	if t.NextTrigger != nil {
		override = t.NextTrigger.UTC().Format(time.RFC3339)
	}
	hint := s.resolver.Hint(t.Rule, override, time.Now().UTC())
	writeJSON(w, 200, hint)
}

type previewReq struct {
	Rule        domain.ScheduleRule `json:"rule"`
	NextTrigger string              `json:"next_trigger,omitempty"`
	Now         string              `json:"now,omitempty"`
}

// preview computes a hint for an un-persisted rule, e.g. while the user is
// still editing the schedule in the canvas. Unlike the CRUD endpoints it never
// rejects a rule: an unresolvable one just yields a dashed hint.
func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	var req previewReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	now := time.Now().UTC()
	if req.Now != "" {
		parsed, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			http.Error(w, "invalid now: "+err.Error(), 400)
			return
		}
		now = parsed
	}

	writeJSON(w, 200, s.resolver.Hint(req.Rule, req.NextTrigger, now))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
