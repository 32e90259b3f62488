package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/sitechat/internal/engine"
	"github.com/ziadkadry99/sitechat/internal/trainer"
)

func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/train", s.handleTrain)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)

		r.Post("/query", s.handleQuery)

		r.Get("/namespaces", s.handleListNamespaces)
		r.Delete("/namespaces/{name}", s.handleDeleteNamespace)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}/messages", s.handleGetMessages)
		r.Post("/sessions/{id}/messages", s.handleSendMessage)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

type trainRequest struct {
	Namespace string `json:"namespace"`
	URL       string `json:"url"`
	Reset     bool   `json:"reset"`
}

// handleTrain starts a background training job and returns its ID.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Namespace == "" {
		respondError(w, http.StatusBadRequest, "namespace is required")
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	job, err := s.pipeline.TrainFromURLAsync(req.Namespace, req.URL, trainer.Options{Reset: req.Reset})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := s.jobs.List(r.Context(), r.URL.Query().Get("namespace"), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobs == nil {
		jobs = []trainer.Job{}
	}
	respondJSON(w, http.StatusOK, jobs)
}

type queryRequest struct {
	Namespace string `json:"namespace"`
	Question  string `json:"question"`
	TopK      int    `json:"top_k,omitempty"`
	NoCache   bool   `json:"no_cache,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Namespace == "" || req.Question == "" {
		respondError(w, http.StatusBadRequest, "namespace and question are required")
		return
	}

	resp, err := s.engine.Query(r.Context(), req.Namespace, req.Question, engine.QueryOptions{
		TopK:    req.TopK,
		NoCache: req.NoCache,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListNamespaces(w http.ResponseWriter, r *http.Request) {
	namespaces := s.store.Namespaces()
	if namespaces == nil {
		namespaces = []string{}
	}
	respondJSON(w, http.StatusOK, namespaces)
}

func (s *Server) handleDeleteNamespace(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.DeleteNamespace(r.Context(), name); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createSessionRequest struct {
	Namespace string `json:"namespace"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Namespace == "" {
		respondError(w, http.StatusBadRequest, "namespace is required")
		return
	}
	respondJSON(w, http.StatusCreated, s.engine.CreateSession(req.Namespace))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.engine.Sessions()
	if sessions == nil {
		sessions = []*engine.Session{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	history, err := s.engine.History(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if history == nil {
		history = []engine.ChatMessage{}
	}
	respondJSON(w, http.StatusOK, history)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	reply, err := s.engine.SendMessage(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteSession(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
