package devserver

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Repository persists dev server users.
type Repository interface {
	// Create stores a new user and returns it with its assigned ID.
	Create(ctx context.Context, user User) (User, error)
	// FindByIdentifier looks a user up by email or phone.
	FindByIdentifier(ctx context.Context, identifier string) (User, error)
	// FindByUUID looks a user up by its stable UUID.
	FindByUUID(ctx context.Context, uuid string) (User, error)
	// Update replaces the stored record matched by UUID.
	Update(ctx context.Context, user User) error
}
