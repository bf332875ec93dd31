package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/leadscout/leadscout/web"
)

type repo struct {
	mu    *sync.RWMutex
	items map[string]web.Session
}

func New() (web.SessionRepository, error) {
	ans := repo{
		mu:    &sync.RWMutex{},
		items: make(map[string]web.Session),
	}

	return &ans, nil
}

func (r *repo) Get(_ context.Context, id string) (web.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.items[id]
	if !ok {
		return web.Session{}, web.ErrNotFound
	}

	return session, nil
}

func (r *repo) Create(_ context.Context, session *web.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[session.ID]; ok {
		return web.ErrAlreadyExists
	}

	r.items[session.ID] = *session

	return nil
}

func (r *repo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return web.ErrNotFound
	}

	delete(r.items, id)

	return nil
}

func (r *repo) Select(_ context.Context, params web.SelectParams) ([]web.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filtered := make([]web.Session, 0, len(r.items))

	for _, item := range r.items {
		if params.Status == "" || item.Status == params.Status {
			filtered = append(filtered, item)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Date.Before(filtered[j].Date)
	})

	if params.Limit > 0 && len(filtered) > params.Limit {
		filtered = filtered[:params.Limit]
	}

	return filtered, nil
}

func (r *repo) Update(_ context.Context, session *web.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[session.ID]; !ok {
		return web.ErrNotFound
	}

	r.items[session.ID] = *session

	return nil
}
