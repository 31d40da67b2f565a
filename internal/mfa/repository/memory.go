package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Krishna101010101010/Bio-pay/internal/mfa/domain"
)

// MemoryRepository keeps challenges in process memory. Used when DATABASE_URL is unset and in tests.
type MemoryRepository struct {
	mu         sync.Mutex
	challenges map[string]domain.Challenge
	verified   map[string]time.Time
}

// NewMemoryRepository returns an empty in-memory challenge repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		challenges: make(map[string]domain.Challenge),
		verified:   make(map[string]time.Time),
	}
}

func (r *MemoryRepository) Put(_ context.Context, c *domain.Challenge) error {
	r.mu.Lock()
	r.challenges[c.Mobile] = *c
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, mobile string) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[mobile]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryRepository) IncrementAttempts(_ context.Context, mobile string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[mobile]
	if !ok {
		return 0, domain.ErrChallengeNotFound
	}
	c.Attempts++
	r.challenges[mobile] = c
	return c.Attempts, nil
}

func (r *MemoryRepository) Delete(_ context.Context, mobile string) error {
	r.mu.Lock()
	delete(r.challenges, mobile)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) MarkVerified(_ context.Context, mobile string, until time.Time) error {
	r.mu.Lock()
	r.verified[mobile] = until
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) IsVerified(_ context.Context, mobile string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.verified[mobile]
	return ok && now.Before(until), nil
}

func (r *MemoryRepository) ConsumeVerified(_ context.Context, mobile string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.verified[mobile]
	delete(r.verified, mobile)
	return ok && now.Before(until), nil
}
