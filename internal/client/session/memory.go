package session

import (
	"context"
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// MemoryStore keeps the bundle in an encrypted memguard enclave. It lives as
// long as the process.
type MemoryStore struct {
	mu      sync.Mutex
	enclave *memguard.Enclave
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, data []byte) error {
	if len(data) == 0 {
		return errors.New("empty session bundle")
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.enclave = memguard.NewEnclave(buf)
	return nil
}

func (s *MemoryStore) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	enclave := s.enclave
	s.mu.Unlock()

	if enclave == nil {
		return nil, ErrNoBundle
	}
	lb, err := enclave.Open()
	if err != nil {
		return nil, err
	}
	defer lb.Destroy()

	out := make([]byte, lb.Size())
	copy(out, lb.Bytes())
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.enclave = nil
	s.mu.Unlock()
	return nil
}
