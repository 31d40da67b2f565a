// Package devotp keeps plain OTPs by mobile number for dev OTP mode (GET /dev/otp/{mobile}).
// It is never wired when APP_ENV is production.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds the latest plain OTP per mobile number for dev-only retrieval.
type Store interface {
	// Put stores otp for mobile until expiresAt, replacing any previous code.
	Put(ctx context.Context, mobile, otp string, expiresAt time.Time)
	// Get returns the otp for mobile if present and not expired.
	Get(ctx context.Context, mobile string) (otp string, ok bool)
	// Delete drops the otp for mobile, e.g. once it was verified.
	Delete(ctx context.Context, mobile string)
}

type entry struct {
	otp       string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Put(_ context.Context, mobile, otp string, expiresAt time.Time) {
	s.mu.Lock()
	s.m[mobile] = entry{otp: otp, expiresAt: expiresAt}
	s.mu.Unlock()
}

func (s *MemoryStore) Get(_ context.Context, mobile string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[mobile]
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		delete(s.m, mobile)
		return "", false
	}
	return e.otp, true
}

func (s *MemoryStore) Delete(_ context.Context, mobile string) {
	s.mu.Lock()
	delete(s.m, mobile)
	s.mu.Unlock()
}

// Sweep removes expired entries and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	n := 0
	for k, e := range s.m {
		if !e.expiresAt.After(now) {
			delete(s.m, k)
			n++
		}
	}
	return n
}
