// Package dedup drops repeat businesses within one run. The same place
// frequently comes back for several industry searches of a town.
package dedup

import (
	"hash/fnv"
	"strings"
	"sync"

	"github.com/leadscout/leadscout/models"
)

// Set tracks which businesses a run has already kept. Safe for use from
// every town worker at once.
type Set struct {
	mux  sync.RWMutex
	seen map[uint64]struct{}
}

func New() *Set {
	ans := Set{
		seen: make(map[uint64]struct{}),
	}

	return &ans
}

// Add reports whether the business is new to the run and records it.
func (s *Set) Add(b *models.Business) bool {
	key := s.hash(Key(b))

	s.mux.RLock()
	if _, ok := s.seen[key]; ok {
		s.mux.RUnlock()

		return false
	}

	s.mux.RUnlock()

	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.seen[key]; ok {
		return false
	}

	s.seen[key] = struct{}{}

	return true
}

// Filter returns the businesses not seen before, recording them.
func (s *Set) Filter(businesses []models.Business) []models.Business {
	out := businesses[:0:0]

	for i := range businesses {
		if s.Add(&businesses[i]) {
			out = append(out, businesses[i])
		}
	}

	return out
}

// Key identifies a business within a run. The same name in two towns is
// two businesses; casing and stray spacing are not.
func Key(b *models.Business) string {
	name := strings.ToLower(strings.Join(strings.Fields(b.Name), " "))
	town := strings.ToLower(strings.TrimSpace(b.Town))

	return name + "|" + town
}

func (s *Set) hash(key string) uint64 {
	h := fnv.New64()
	h.Write([]byte(key))

	return h.Sum64()
}
