package repository

import (
	"context"

	"github.com/Krishna101010101010/Bio-pay/internal/user/domain"
)

// Repository defines persistence for users. Lookups return (nil, nil) when the user does not exist.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByMobile(ctx context.Context, mobile string) (*domain.User, error)
	// Create returns domain.ErrUserExists when the mobile number is taken.
	Create(ctx context.Context, u *domain.User) error
}
