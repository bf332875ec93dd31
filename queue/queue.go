// Package queue admits a single globally active scraping session and
// keeps every other request in a fair FIFO wait list.
package queue

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrAlreadyQueued = errors.New("session already queued")
	ErrNotQueued     = errors.New("session not queued")
)

// defaultTownDuration seeds the wait estimate until real town timings
// have been observed.
const defaultTownDuration = 45 * time.Second

// Entry is one waiting session's public view.
type Entry struct {
	SessionID            string    `json:"session_id"`
	EnqueuedAt           time.Time `json:"enqueued_at"`
	Position             int       `json:"position"`
	EstimatedWaitMinutes float64   `json:"estimated_wait_minutes"`
	TownsRemaining       int       `json:"towns_remaining"`
}

// Starter launches the given session once it is promoted into the
// active slot.
type Starter func(sessionID string)

type waiter struct {
	sessionID  string
	enqueuedAt time.Time
	townCount  int
}

// Queue owns the only mutually-exclusive shared resource in the system:
// the active-session slot.
type Queue struct {
	mu      sync.Mutex
	active  string
	order   *list.List
	index   map[string]*list.Element
	starter Starter
	log     *zap.Logger

	// rolling average of observed town processing time, feeding the
	// wait estimate
	townDurTotal time.Duration
	townDurCount int
}

func New(starter Starter, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}

	return &Queue{
		order:   list.New(),
		index:   make(map[string]*list.Element),
		starter: starter,
		log:     log,
	}
}

// Enqueue adds a session to the wait list, or claims the active slot
// directly when it is free. The returned position is 0 for the active
// session and the 1-based wait rank otherwise.
func (q *Queue) Enqueue(sessionID string, townCount int) (int, error) {
	q.mu.Lock()

	if q.active == sessionID {
		q.mu.Unlock()
		return 0, ErrAlreadyQueued
	}

	if _, ok := q.index[sessionID]; ok {
		q.mu.Unlock()
		return 0, ErrAlreadyQueued
	}

	if q.active == "" && q.order.Len() == 0 {
		q.active = sessionID
		q.mu.Unlock()

		q.log.Info("session activated", zap.String("session_id", sessionID))

		if q.starter != nil {
			q.starter(sessionID)
		}

		return 0, nil
	}

	elem := q.order.PushBack(&waiter{
		sessionID:  sessionID,
		enqueuedAt: time.Now(),
		townCount:  townCount,
	})

	q.index[sessionID] = elem
	position := q.order.Len()

	q.mu.Unlock()

	q.log.Info("session queued", zap.String("session_id", sessionID), zap.Int("position", position))

	return position, nil
}

// Release frees the active slot when the given session completes, stops
// or errors, and promotes the head of the wait list. Releasing a
// non-active session is a no-op.
func (q *Queue) Release(sessionID string) {
	q.mu.Lock()

	if q.active != sessionID {
		q.mu.Unlock()
		return
	}

	q.active = ""
	q.mu.Unlock()

	q.PromoteNext()
}

// PromoteNext moves the head of the wait list into the free active slot
// and starts it. No-op while a session is still active or the list is
// empty.
func (q *Queue) PromoteNext() {
	q.mu.Lock()

	if q.active != "" || q.order.Len() == 0 {
		q.mu.Unlock()
		return
	}

	head := q.order.Front()
	w := head.Value.(*waiter)

	q.order.Remove(head)
	delete(q.index, w.sessionID)

	q.active = w.sessionID

	q.mu.Unlock()

	q.log.Info("session promoted", zap.String("session_id", w.sessionID))

	if q.starter != nil {
		q.starter(w.sessionID)
	}
}

// Cancel removes a waiting session in O(1). Remaining entries keep
// their relative order.
func (q *Queue) Cancel(sessionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	elem, ok := q.index[sessionID]
	if !ok {
		return ErrNotQueued
	}

	q.order.Remove(elem)
	delete(q.index, sessionID)

	return nil
}

// Active returns the session currently holding the slot, if any.
func (q *Queue) Active() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.active, q.active != ""
}

// ObserveTownDuration feeds one observed town processing time into the
// wait estimate.
func (q *Queue) ObserveTownDuration(d time.Duration) {
	if d <= 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.townDurTotal += d
	q.townDurCount++
}

func (q *Queue) avgTownDurationLocked() time.Duration {
	if q.townDurCount == 0 {
		return defaultTownDuration
	}

	return q.townDurTotal / time.Duration(q.townDurCount)
}

// Status returns a waiting session's position and estimate. Position 0
// with a nil error means the session is the active one.
func (q *Queue) Status(sessionID string) (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active == sessionID {
		return Entry{SessionID: sessionID}, nil
	}

	elem, ok := q.index[sessionID]
	if !ok {
		return Entry{}, ErrNotQueued
	}

	avg := q.avgTownDurationLocked()

	position := 0
	aheadTowns := 0

	for e := q.order.Front(); e != nil; e = e.Next() {
		position++

		w := e.Value.(*waiter)

		if e == elem {
			return Entry{
				SessionID:            sessionID,
				EnqueuedAt:           w.enqueuedAt,
				Position:             position,
				TownsRemaining:       w.townCount,
				EstimatedWaitMinutes: (time.Duration(aheadTowns)*avg).Minutes(),
			}, nil
		}

		aheadTowns += w.townCount
	}

	return Entry{}, ErrNotQueued
}

// Entries returns the whole wait list with contiguous 1-based
// positions, atomically with respect to queue mutations.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	avg := q.avgTownDurationLocked()

	out := make([]Entry, 0, q.order.Len())

	position := 0
	aheadTowns := 0

	for e := q.order.Front(); e != nil; e = e.Next() {
		position++

		w := e.Value.(*waiter)

		out = append(out, Entry{
			SessionID:            w.sessionID,
			EnqueuedAt:           w.enqueuedAt,
			Position:             position,
			TownsRemaining:       w.townCount,
			EstimatedWaitMinutes: (time.Duration(aheadTowns) * avg).Minutes(),
		})

		aheadTowns += w.townCount
	}

	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.order.Len()
}
