package report

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrDuplicateKey is returned by Register when the key already has a live node
	ErrDuplicateKey = errors.New("duplicate execution key")
	// ErrNotFound is returned by Lookup when no node is registered for the key
	ErrNotFound = errors.New("report node not found")
)

// Store correlates execution keys with their live report nodes.
// All methods are safe for concurrent use and only block for a single map operation.
type Store struct {
	nodes sync.Map // ExecutionKey -> *Node
	size  atomic.Int64
}

func NewStore() *Store {
	return &Store{}
}

// Register inserts node under key. Exactly one of several racing registrations
// of the same key succeeds; the rest get ErrDuplicateKey.
func (s *Store) Register(key ExecutionKey, node *Node) error {
	if node == nil {
		return fmt.Errorf("register %s: nil node", key)
	}
	if _, loaded := s.nodes.LoadOrStore(key, node); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	s.size.Add(1)
	return nil
}

func (s *Store) Lookup(key ExecutionKey) (*Node, error) {
	v, ok := s.nodes.Load(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v.(*Node), nil
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *Store) Remove(key ExecutionKey) {
	if _, loaded := s.nodes.LoadAndDelete(key); loaded {
		s.size.Add(-1)
	}
}

func (s *Store) Len() int {
	return int(s.size.Load())
}

// Keys returns a snapshot of the registered keys, in no particular order.
func (s *Store) Keys() []ExecutionKey {
	var keys []ExecutionKey
	s.nodes.Range(func(k, _ any) bool {
		keys = append(keys, k.(ExecutionKey))
		return true
	})
	return keys
}
