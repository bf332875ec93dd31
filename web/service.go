package web

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadscout/leadscout/errlog"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/orchestrator"
	"github.com/leadscout/leadscout/queue"
	"github.com/leadscout/leadscout/runlog"
)

// Engine is one run's control handle. *orchestrator.Orchestrator
// implements it; tests substitute fakes.
type Engine interface {
	Run(ctx context.Context) error
	Events() <-chan orchestrator.Event
	Results() []models.Business
	Progress() models.Progress
	Stop()
	Pause()
	Resume()
	Paused() bool
}

// EngineFactory builds the engine for one admitted session.
type EngineFactory func(cfg models.ScrapeConfig, runLog *runlog.Manager) (Engine, error)

type run struct {
	engine Engine
	runLog *runlog.Manager
	done   chan struct{}
}

// SessionStatus is the run-control view of one session.
type SessionStatus struct {
	SessionID  string          `json:"session_id"`
	Status     string          `json:"status"`
	Progress   models.Progress `json:"progress"`
	RecentLogs []runlog.Entry  `json:"recent_logs"`
}

// QueueStatus reports a session's place in the admission queue.
type QueueStatus struct {
	SessionID           string  `json:"session_id"`
	Position            int     `json:"position"`
	EtaMinutes          float64 `json:"eta_minutes"`
	CurrentlyProcessing string  `json:"currently_processing,omitempty"`
}

// Service owns session lifecycle: admission through the queue, engine
// startup on promotion, and status reporting.
type Service struct {
	repo    SessionRepository
	queue   *queue.Queue
	factory EngineFactory
	errs    *errlog.Logger
	log     *zap.Logger

	mu       sync.Mutex
	runs     map[string]*run
	finished []string
}

// maxFinishedRuns bounds how many completed runs stay queryable in
// memory; beyond it the oldest run's results and logs are dropped.
const maxFinishedRuns = 32

func NewService(repo SessionRepository, factory EngineFactory, errs *errlog.Logger, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	svc := Service{
		repo:    repo,
		factory: factory,
		errs:    errs,
		log:     log,
		runs:    make(map[string]*run),
	}

	svc.queue = queue.New(svc.launch, log)

	return &svc
}

func (s *Service) Queue() *queue.Queue {
	return s.queue
}

// Start validates and persists a new session and submits it for
// admission. When the active slot is free processing begins
// immediately; otherwise the session waits in the queue.
func (s *Service) Start(ctx context.Context, name string, cfg models.ScrapeConfig) (Session, error) {
	session := Session{
		ID:     uuid.New().String(),
		Name:   name,
		Date:   time.Now().UTC(),
		Status: StatusPending,
		Data:   cfg,
	}

	if err := session.Validate(); err != nil {
		return Session{}, err
	}

	if err := s.repo.Create(ctx, &session); err != nil {
		return Session{}, err
	}

	position, err := s.queue.Enqueue(session.ID, len(cfg.Towns))
	if err != nil {
		return Session{}, err
	}

	if position > 0 {
		session.Status = StatusQueued

		if err := s.repo.Update(ctx, &session); err != nil {
			s.log.Warn("failed to persist queued status", zap.String("session_id", session.ID), zap.Error(err))
		}
	}

	return session, nil
}

// Recover re-admits sessions that were pending, queued or mid-run when
// the previous process exited, preserving their original order.
func (s *Service) Recover(ctx context.Context) error {
	sessions, err := s.repo.Select(ctx, SelectParams{})
	if err != nil {
		return err
	}

	for i := range sessions {
		session := sessions[i]

		switch session.Status {
		case StatusPending, StatusQueued, StatusWorking, StatusPaused:
		default:
			continue
		}

		position, err := s.queue.Enqueue(session.ID, len(session.Data.Towns))
		if err != nil {
			s.log.Warn("failed to re-enqueue session", zap.String("session_id", session.ID), zap.Error(err))

			continue
		}

		if position > 0 {
			s.setStatus(ctx, &session, StatusQueued)
		}

		s.log.Info("recovered session", zap.String("session_id", session.ID), zap.Int("position", position))
	}

	return nil
}

// launch is the queue's Starter callback. It must not block the queue.
func (s *Service) launch(sessionID string) {
	go s.execute(context.Background(), sessionID)
}

func (s *Service) execute(ctx context.Context, sessionID string) {
	defer s.queue.Release(sessionID)
	defer s.retire(sessionID)

	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		s.log.Error("promoted session not found", zap.String("session_id", sessionID), zap.Error(err))

		return
	}

	runLog := runlog.New(s.log)

	engine, err := s.factory(session.Data, runLog)
	if err != nil {
		if s.errs != nil {
			s.errs.LogBrowserError("engine startup failed", err, map[string]any{"session_id": sessionID})
		}

		s.setStatus(ctx, &session, StatusFailed)

		return
	}

	r := &run{engine: engine, runLog: runLog, done: make(chan struct{})}

	s.mu.Lock()
	s.runs[sessionID] = r
	s.mu.Unlock()

	s.setStatus(ctx, &session, StatusWorking)

	go s.consumeEvents(r)

	start := time.Now()
	err = engine.Run(ctx)

	close(r.done)

	if summary := runLog.Summary(); summary.CompletedTowns > 0 {
		s.queue.ObserveTownDuration(time.Since(start) / time.Duration(summary.CompletedTowns))
	}

	// Stop may have persisted a terminal status while Run was winding
	// down; re-read before deciding the final one.
	if latest, getErr := s.repo.Get(ctx, sessionID); getErr == nil {
		session = latest
	}

	switch {
	case session.Status == StatusStopped:
	case err == nil:
		s.setStatus(ctx, &session, StatusOK)
	case errors.Is(err, context.Canceled):
		s.setStatus(ctx, &session, StatusStopped)
	default:
		if s.errs != nil {
			s.errs.LogScrapingError("run failed", err, map[string]any{"session_id": sessionID})
		}

		s.setStatus(ctx, &session, StatusFailed)
	}
}

// consumeEvents drains the engine's event stream so progress keeps
// flowing into the run log.
func (s *Service) consumeEvents(r *run) {
	for evt := range r.engine.Events() {
		if evt.Type == orchestrator.EventProgress {
			r.runLog.LogMessage(runlog.LevelInfo, progressMessage(evt))
		}
	}
}

func (s *Service) setStatus(ctx context.Context, session *Session, status string) {
	session.Status = status

	if err := s.repo.Update(ctx, session); err != nil {
		s.log.Warn("failed to persist session status",
			zap.String("session_id", session.ID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

// retire marks a run finished and evicts the oldest finished runs past
// the retention bound.
func (s *Service) retire(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[sessionID]; !ok {
		return
	}

	s.finished = append(s.finished, sessionID)

	for len(s.finished) > maxFinishedRuns {
		delete(s.runs, s.finished[0])
		s.finished = s.finished[1:]
	}
}

func (s *Service) activeRun(sessionID string) (*run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[sessionID]

	return r, ok
}

func (s *Service) Pause(ctx context.Context, sessionID string) error {
	r, ok := s.activeRun(sessionID)
	if !ok {
		return ErrNotRunning
	}

	r.engine.Pause()

	session, err := s.repo.Get(ctx, sessionID)
	if err == nil {
		s.setStatus(ctx, &session, StatusPaused)
	}

	return nil
}

func (s *Service) Resume(ctx context.Context, sessionID string) error {
	r, ok := s.activeRun(sessionID)
	if !ok {
		return ErrNotRunning
	}

	r.engine.Resume()

	session, err := s.repo.Get(ctx, sessionID)
	if err == nil {
		s.setStatus(ctx, &session, StatusWorking)
	}

	return nil
}

// Stop cancels a running session, or removes a still-queued one in
// O(1) without affecting the others.
func (s *Service) Stop(ctx context.Context, sessionID string) error {
	if r, ok := s.activeRun(sessionID); ok {
		session, err := s.repo.Get(ctx, sessionID)
		if err == nil {
			s.setStatus(ctx, &session, StatusStopped)
		}

		r.engine.Stop()

		return nil
	}

	if err := s.queue.Cancel(sessionID); err != nil {
		return ErrNotRunning
	}

	session, err := s.repo.Get(ctx, sessionID)
	if err == nil {
		s.setStatus(ctx, &session, StatusStopped)
	}

	return nil
}

func (s *Service) Status(ctx context.Context, sessionID string) (SessionStatus, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return SessionStatus{}, err
	}

	status := SessionStatus{
		SessionID: sessionID,
		Status:    session.Status,
	}

	if r, ok := s.activeRun(sessionID); ok {
		status.Progress = r.engine.Progress()
		status.RecentLogs = r.runLog.RecentLog(20)
	}

	return status, nil
}

func (s *Service) QueueStatus(sessionID string) (QueueStatus, error) {
	active, _ := s.queue.Active()

	entry, err := s.queue.Status(sessionID)
	if err != nil {
		return QueueStatus{}, err
	}

	return QueueStatus{
		SessionID:           sessionID,
		Position:            entry.Position,
		EtaMinutes:          entry.EstimatedWaitMinutes,
		CurrentlyProcessing: active,
	}, nil
}

// Results returns the collected businesses of a session whose run is in
// memory (working or finished this process lifetime).
func (s *Service) Results(sessionID string) ([]models.Business, error) {
	r, ok := s.activeRun(sessionID)
	if !ok {
		return nil, ErrNotFound
	}

	return r.engine.Results(), nil
}

// TownLogs returns the per-town records of an in-memory run.
func (s *Service) TownLogs(sessionID string) ([]runlog.TownLog, error) {
	r, ok := s.activeRun(sessionID)
	if !ok {
		return nil, ErrNotFound
	}

	return r.runLog.Towns(), nil
}

func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) All(ctx context.Context) ([]Session, error) {
	return s.repo.Select(ctx, SelectParams{})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_ = s.queue.Cancel(id)

	return s.repo.Delete(ctx, id)
}

// Wait blocks until the given session's run finishes. Intended for
// tests and the one-shot runner.
func (s *Service) Wait(sessionID string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if r, ok := s.activeRun(sessionID); ok {
			select {
			case <-r.done:
				return true
			case <-time.After(50 * time.Millisecond):
			}

			continue
		}

		time.Sleep(10 * time.Millisecond)
	}

	return false
}

func progressMessage(evt orchestrator.Event) string {
	return fmt.Sprintf("progress: %s completed (%d/%d)",
		evt.Town, evt.Progress.CompletedTowns, evt.Progress.TotalTowns)
}
