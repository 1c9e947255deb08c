package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

var _ domain.Repository = (*UserRepository)(nil)

func NewUserRepository(seed ...*domain.User) *UserRepository {
	r := &UserRepository{users: make(map[string]*domain.User, len(seed))}
	for _, u := range seed {
		if u != nil {
			r.users[u.UID] = u.Clone()
		}
	}
	return r
}

func (r *UserRepository) Get(ctx context.Context, uid string) (*domain.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	_ = ctx
	if u == nil || u.UID == "" {
		return domain.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := u.Clone()
	now := time.Now().UTC()
	if cur, ok := r.users[u.UID]; ok {
		c.CreatedAt = cur.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.users[u.UID] = c
	return nil
}

func (r *UserRepository) SetRole(ctx context.Context, uid string, role domain.Role) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[uid]
	if !ok {
		return domain.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
