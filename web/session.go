package web

import (
	"context"
	"errors"
	"time"

	"github.com/leadscout/leadscout/models"
)

const (
	StatusPending = "pending"
	StatusQueued  = "queued"
	StatusWorking = "working"
	StatusPaused  = "paused"
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusStopped = "stopped"
)

type SelectParams struct {
	Status string
	Limit  int
}

type SessionRepository interface {
	Get(context.Context, string) (Session, error)
	Create(context.Context, *Session) error
	Delete(context.Context, string) error
	Select(context.Context, SelectParams) ([]Session, error)
	Update(context.Context, *Session) error
}

// Session is one queued or running scrape request.
type Session struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Date   time.Time           `json:"date"`
	Status string              `json:"status"`
	Data   models.ScrapeConfig `json:"data"`
}

func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("missing id")
	}

	if s.Name == "" {
		return errors.New("missing name")
	}

	if s.Status == "" {
		return errors.New("missing status")
	}

	if s.Date.IsZero() {
		return errors.New("missing date")
	}

	return s.Data.Validate()
}
