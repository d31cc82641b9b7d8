package application

import (
	"context"
	"time"

	"github.com/dvelasquez124/shopping-cart-app/internal/customer/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	// List returns accounts newest first; admins are filtered out unless
	// asked for, matching the admin UI's default.
	List(ctx context.Context, includeAdmins bool) ([]domain.User, error)
}

type SessionStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}
