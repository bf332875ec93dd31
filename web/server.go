package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/leadscout/leadscout/models"
)

// Server exposes the run-control surface over HTTP.
type Server struct {
	svc  *Service
	srv  *http.Server
	log  *zap.Logger
	addr string
}

type ServerConfig struct {
	Addr    string
	Service *Service
	Logger  *zap.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("service is required")
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ans := Server{
		svc:  cfg.Service,
		log:  cfg.Logger,
		addr: cfg.Addr,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", ans.startSession)
		r.Get("/sessions", ans.listSessions)
		r.Get("/sessions/{id}", ans.getSession)
		r.Delete("/sessions/{id}", ans.deleteSession)
		r.Post("/sessions/{id}/pause", ans.pauseSession)
		r.Post("/sessions/{id}/resume", ans.resumeSession)
		r.Post("/sessions/{id}/stop", ans.stopSession)
		r.Get("/sessions/{id}/status", ans.sessionStatus)
		r.Get("/sessions/{id}/queue", ans.queueStatus)
		r.Get("/sessions/{id}/results", ans.sessionResults)
		r.Get("/sessions/{id}/towns", ans.sessionTowns)
	})

	ans.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &ans, nil
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = s.srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("http server listening", zap.String("addr", s.addr))

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

type startRequest struct {
	Name   string              `json:"name"`
	Config models.ScrapeConfig `json:"config"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, http.StatusBadRequest, err)

		return
	}

	session, err := s.svc.Start(r.Context(), req.Name, req.Config)
	if err != nil {
		s.renderError(w, http.StatusUnprocessableEntity, err)

		return
	}

	s.renderJSON(w, http.StatusCreated, session)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.All(r.Context())
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err)

		return
	}

	s.renderJSON(w, http.StatusOK, sessions)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, statusFor(err), err)

		return
	}

	s.renderJSON(w, http.StatusOK, session)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.renderError(w, statusFor(err), err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pauseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Pause(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.renderError(w, statusFor(err), err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Resume(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.renderError(w, statusFor(err), err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Stop(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.renderError(w, statusFor(err), err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, statusFor(err), err)

		return
	}

	s.renderJSON(w, http.StatusOK, status)
}

func (s *Server) queueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.QueueStatus(chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, http.StatusNotFound, err)

		return
	}

	s.renderJSON(w, http.StatusOK, status)
}

func (s *Server) sessionResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.svc.Results(chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, statusFor(err), err)

		return
	}

	s.renderJSON(w, http.StatusOK, results)
}

func (s *Server) sessionTowns(w http.ResponseWriter, r *http.Request) {
	towns, err := s.svc.TownLogs(chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, statusFor(err), err)

		return
	}

	s.renderJSON(w, http.StatusOK, towns)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) renderJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) renderError(w http.ResponseWriter, code int, err error) {
	s.renderJSON(w, code, map[string]string{"error": err.Error()})
}
