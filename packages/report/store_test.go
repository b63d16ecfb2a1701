package report

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RegisterLookupRemove(t *testing.T) {
	s := NewStore()
	key := ExecutionKey{Test: "Login", Invocation: "a1"}
	node := NewNode(key, "")

	require.NoError(t, s.Register(key, node))

	got, err := s.Lookup(key)
	require.NoError(t, err)
	assert.Same(t, node, got)
	assert.Equal(t, 1, s.Len())

	s.Remove(key)
	_, err = s.Lookup(key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStore_DuplicateKeepsFirst(t *testing.T) {
	s := NewStore()
	key := ExecutionKey{Test: "Login", Invocation: "a1"}
	n1 := NewNode(key, "first")
	n2 := NewNode(key, "second")

	require.NoError(t, s.Register(key, n1))
	err := s.Register(key, n2)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	got, err := s.Lookup(key)
	require.NoError(t, err)
	assert.Same(t, n1, got)
}

func TestStore_RemoveAbsentIsNoop(t *testing.T) {
	s := NewStore()
	s.Remove(ExecutionKey{Test: "nope"})
	s.Remove(ExecutionKey{Test: "nope"})
	assert.Equal(t, 0, s.Len())
}

func TestStore_RegisterNilNode(t *testing.T) {
	s := NewStore()
	err := s.Register(ExecutionKey{Test: "x"}, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestStore_ConcurrentRegisterRemove(t *testing.T) {
	s := NewStore()
	const workers = 20
	const perWorker = 10

	var wg sync.WaitGroup
	var registered atomic.Int64
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := ExecutionKey{Test: fmt.Sprintf("test-%d", i), Invocation: fmt.Sprintf("w%d-%d", w, i)}
				if err := s.Register(key, NewNode(key, "")); err == nil {
					registered.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(workers*perWorker), registered.Load())
	assert.Equal(t, workers*perWorker, s.Len())
	assert.Len(t, s.Keys(), workers*perWorker)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.Remove(ExecutionKey{Test: fmt.Sprintf("test-%d", i), Invocation: fmt.Sprintf("w%d-%d", w, i)})
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Keys())
}

func TestStore_SameKeyRace(t *testing.T) {
	for round := 0; round < 50; round++ {
		s := NewStore()
		key := ExecutionKey{Test: "Submit", Invocation: "thread-1"}
		nodeA := NewNode(key, "A")
		nodeB := NewNode(key, "B")

		var wg sync.WaitGroup
		errs := make([]error, 2)
		start := make(chan struct{})
		for i, n := range []*Node{nodeA, nodeB} {
			wg.Add(1)
			go func(i int, n *Node) {
				defer wg.Done()
				<-start
				errs[i] = s.Register(key, n)
			}(i, n)
		}
		close(start)
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
			} else {
				assert.ErrorIs(t, err, ErrDuplicateKey)
			}
		}
		assert.Equal(t, 1, successes)
		assert.Equal(t, 1, s.Len())
	}
}
