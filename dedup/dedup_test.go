package dedup_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadscout/leadscout/dedup"
	"github.com/leadscout/leadscout/models"
)

func TestAdd(t *testing.T) {
	s := dedup.New()

	first := models.Business{Name: "Acme Plumbing", Town: "Knysna"}

	assert.True(t, s.Add(&first))
	assert.False(t, s.Add(&first))
}

func TestAddNormalizesNameAndTown(t *testing.T) {
	s := dedup.New()

	a := models.Business{Name: "Acme  Plumbing", Town: "Knysna"}
	b := models.Business{Name: "acme plumbing", Town: " knysna "}

	assert.True(t, s.Add(&a))
	assert.False(t, s.Add(&b))
}

func TestSameNameDifferentTown(t *testing.T) {
	s := dedup.New()

	a := models.Business{Name: "Acme Plumbing", Town: "Knysna"}
	b := models.Business{Name: "Acme Plumbing", Town: "George"}

	assert.True(t, s.Add(&a))
	assert.True(t, s.Add(&b))
}

func TestFilter(t *testing.T) {
	s := dedup.New()

	in := []models.Business{
		{Name: "Acme Plumbing", Town: "Knysna"},
		{Name: "Bay Electrical", Town: "Knysna"},
		{Name: "Acme Plumbing", Town: "Knysna"},
	}

	out := s.Filter(in)

	assert.Len(t, out, 2)
	assert.Equal(t, "Acme Plumbing", out[0].Name)
	assert.Equal(t, "Bay Electrical", out[1].Name)
}

func TestConcurrentAdd(t *testing.T) {
	s := dedup.New()

	const workers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		kept int
	)

	b := models.Business{Name: "Acme Plumbing", Town: "Knysna"}

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if s.Add(&b) {
				mu.Lock()
				kept++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, kept)
}
