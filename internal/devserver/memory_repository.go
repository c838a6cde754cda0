package devserver

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	users  map[string]User // keyed by UUID
	nextID int64
}

// NewMemoryRepository builds an in-memory user store, used when no database
// is configured and in tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	r.users[user.UUID] = user
	return user, nil
}

func (r *memoryRepository) FindByIdentifier(_ context.Context, identifier string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if identifier != "" && (user.Email == identifier || user.Phone == identifier) {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *memoryRepository) FindByUUID(_ context.Context, uuid string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[uuid]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) Update(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.UUID]; !ok {
		return ErrUserNotFound
	}
	r.users[user.UUID] = user
	return nil
}
