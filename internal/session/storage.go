package session

import (
	"context"
	"sync"
)

// Storage is the durable persistence port for the session token and cached
// user record. Implementations must tolerate being called with no prior
// state: Load on an empty store returns zero values and no error.
//
// Save persists both fragments; a nil user drops the cached user record while
// keeping the token. Clear removes everything.
type Storage interface {
	Load(ctx context.Context) (token string, user []byte, err error)
	Save(ctx context.Context, token string, user []byte) error
	Clear(ctx context.Context) error
}

// MemoryStorage is an in-memory Storage used in tests and as a stand-in when
// no durable state directory is available.
type MemoryStorage struct {
	mu    sync.Mutex
	token string
	user  []byte
}

// NewMemoryStorage builds an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load(_ context.Context) (string, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return m.token, nil, nil
	}
	user := make([]byte, len(m.user))
	copy(user, m.user)
	return m.token, user, nil
}

func (m *MemoryStorage) Save(_ context.Context, token string, user []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	if user == nil {
		m.user = nil
		return nil
	}
	m.user = make([]byte, len(user))
	copy(m.user, user)
	return nil
}

func (m *MemoryStorage) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.user = nil
	return nil
}
