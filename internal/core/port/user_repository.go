package port

import (
	"context"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Status domain.UserStatus
	Role   domain.UserRole
	Limit  int
	Offset int
}

// UserRepository provides typed access to user records. Insert relies on the
// store's unique email index to make concurrent duplicate registrations fail
// safely instead of racing.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	Activate(ctx context.Context, email string) error
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}
