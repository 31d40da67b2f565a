package repository

import (
	"context"
	"sync"

	"github.com/Krishna101010101010/Bio-pay/internal/user/domain"
)

// MemoryRepository keeps users in process memory. Used when DATABASE_URL is unset and in tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]*domain.User
	byMobile map[string]string
}

// NewMemoryRepository returns an empty in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[string]*domain.User),
		byMobile: make(map[string]string),
	}
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byMobile[mobile]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) Create(_ context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byMobile[u.Mobile]; ok {
		return domain.ErrUserExists
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.byMobile[u.Mobile] = u.ID
	return nil
}
