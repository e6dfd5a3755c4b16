package repository

import (
	"context"
	"errors"
	"sync"
)

// ErrInjected is returned by MemoryStore when a failure has been injected.
var ErrInjected = errors.New("memory store: injected failure")

// MemoryStore is an in-process KVStore used by tests and ephemeral runs.
// Reads and writes can be made to fail to exercise storage error paths.
type MemoryStore struct {
	mu         sync.Mutex
	data       map[string][]byte
	failReads  bool
	failWrites bool
	writes     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failReads {
		return nil, false, ErrInjected
	}
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return ErrInjected
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	s.writes++
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return ErrInjected
	}
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return ErrInjected
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// FailReads makes subsequent Get and Ping calls fail.
func (s *MemoryStore) FailReads(fail bool) {
	s.mu.Lock()
	s.failReads = fail
	s.mu.Unlock()
}

// FailWrites makes subsequent Put and Delete calls fail.
func (s *MemoryStore) FailWrites(fail bool) {
	s.mu.Lock()
	s.failWrites = fail
	s.mu.Unlock()
}

// Writes returns the number of successful Put calls.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Keys returns the number of stored keys.
func (s *MemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// SetRaw stores value without any encoding, e.g. to plant corrupt data.
func (s *MemoryStore) SetRaw(key string, value []byte) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}
