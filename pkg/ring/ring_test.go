package ring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/pkg/ring"
)

func TestBufferEvictsOldestFirst(t *testing.T) {
	b := ring.New[int](3)

	for i := 0; i < 5; i++ {
		b.Push(i)
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []int{2, 3, 4}, b.Items())
}

func TestBufferUnderCapacity(t *testing.T) {
	b := ring.New[string](10)

	b.Push("a")
	b.Push("b")

	assert.Equal(t, []string{"a", "b"}, b.Items())
}

func TestBufferResizeShrinkTrims(t *testing.T) {
	b := ring.New[int](10)

	for i := 0; i < 10; i++ {
		b.Push(i)
	}

	b.Resize(4)

	require.Equal(t, 4, b.Len())
	assert.Equal(t, []int{6, 7, 8, 9}, b.Items())

	b.Push(10)

	assert.Equal(t, []int{7, 8, 9, 10}, b.Items())
}

func TestBufferTail(t *testing.T) {
	b := ring.New[int](5)

	for i := 0; i < 5; i++ {
		b.Push(i)
	}

	assert.Equal(t, []int{3, 4}, b.Tail(2))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, b.Tail(100))
}

func TestBufferClear(t *testing.T) {
	b := ring.New[int](2)
	b.Push(1)
	b.Clear()

	assert.Zero(t, b.Len())
	assert.Equal(t, 2, b.Cap())
}
