package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna101010101010/Bio-pay/internal/user/domain"
)

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	u := &domain.User{ID: "u1", Name: "Asha", Mobile: "9876543210", UserType: "customer", CreatedAt: now, UpdatedAt: now}

	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, domain.UserStatusActive, u.Status, "Create defaults the status")

	got, err := repo.GetByMobile(ctx, "9876543210")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)
	assert.True(t, got.Active())

	got.Name = "changed"
	again, _ := repo.GetByID(ctx, "u1")
	assert.Equal(t, "Asha", again.Name, "returned users are copies")
}

func TestMemoryRepository_Missing(t *testing.T) {
	repo := NewMemoryRepository()
	u, err := repo.GetByMobile(context.Background(), "9000000000")
	require.NoError(t, err)
	assert.Nil(t, u)
	u, err = repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestMemoryRepository_DuplicateMobile(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Name: "Asha", Mobile: "9876543210"}))
	err := repo.Create(ctx, &domain.User{ID: "u2", Name: "Ravi", Mobile: "9876543210"})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestMemoryRepository_InvalidUser(t *testing.T) {
	repo := NewMemoryRepository()
	assert.Error(t, repo.Create(context.Background(), &domain.User{ID: "u1", Name: "Asha"}))
}
