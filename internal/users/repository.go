package users

import (
	"context"
	"sync"

	"github.com/odyssey-erp/steward/internal/shared"
)

// RepositoryPort defines data access methods for identities. Lookups return
// shared.ErrNotFound when nothing matches.
type RepositoryPort interface {
	ListIdentities(ctx context.Context) ([]Identity, error)
	GetIdentity(ctx context.Context, id int64) (Identity, error)
	FindByUsername(ctx context.Context, username string) (Identity, error)
	MaxID(ctx context.Context) (int64, error)
	InsertIdentity(ctx context.Context, identity Identity) error
	UpdateIdentity(ctx context.Context, identity Identity) error
	DeleteIdentity(ctx context.Context, id int64) error
}

// MemoryRepository keeps identities in insertion order in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	items []Identity
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// ListIdentities returns a snapshot in insertion order.
func (r *MemoryRepository) ListIdentities(ctx context.Context) ([]Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Identity, len(r.items))
	for i, item := range r.items {
		out[i] = item.Clone()
	}
	return out, nil
}

// GetIdentity fetches an identity by ID.
func (r *MemoryRepository) GetIdentity(ctx context.Context, id int64) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexOf(id); idx >= 0 {
		return r.items[idx].Clone(), nil
	}
	return Identity{}, shared.ErrNotFound
}

// FindByUsername fetches an identity by exact username.
func (r *MemoryRepository) FindByUsername(ctx context.Context, username string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.Username == username {
			return item.Clone(), nil
		}
	}
	return Identity{}, shared.ErrNotFound
}

// MaxID returns the highest stored ID, or 0 when empty.
func (r *MemoryRepository) MaxID(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var max int64
	for _, item := range r.items {
		if item.ID > max {
			max = item.ID
		}
	}
	return max, nil
}

// InsertIdentity appends an identity.
func (r *MemoryRepository) InsertIdentity(ctx context.Context, identity Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.Username == identity.Username {
			return shared.NewValidationError("username", "already taken")
		}
	}
	r.items = append(r.items, identity.Clone())
	return nil
}

// UpdateIdentity replaces the stored record with the same ID.
func (r *MemoryRepository) UpdateIdentity(ctx context.Context, identity Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(identity.ID)
	if idx < 0 {
		return shared.ErrNotFound
	}
	r.items[idx] = identity.Clone()
	return nil
}

// DeleteIdentity removes an identity, keeping the order of the rest.
func (r *MemoryRepository) DeleteIdentity(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id)
	if idx < 0 {
		return shared.ErrNotFound
	}
	r.items = append(r.items[:idx], r.items[idx+1:]...)
	return nil
}

func (r *MemoryRepository) indexOf(id int64) int {
	for i, item := range r.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

var _ RepositoryPort = (*MemoryRepository)(nil)
