package auth

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
)

// StoredRoles lets the user record's role override the token claim, so a role toggle
// takes effect before the token expires.
type StoredRoles struct {
	inner identity.Provider
	users identity.Repository
}

var _ identity.Provider = (*StoredRoles)(nil)

func NewStoredRoles(inner identity.Provider, users identity.Repository) *StoredRoles {
	return &StoredRoles{inner: inner, users: users}
}

func (s *StoredRoles) Authenticate(ctx context.Context, token string) (identity.Identity, error) {
	id, err := s.inner.Authenticate(ctx, token)
	if err != nil {
		return identity.Identity{}, err
	}
	u, err := s.users.Get(ctx, id.UID)
	switch {
	case err == nil:
		id.Role = u.Role
		if id.Email == "" {
			id.Email = u.Email
		}
	case errors.Is(err, identity.ErrNotFound):
		// No record yet: the signed claim stands.
	default:
		return identity.Identity{}, err
	}
	return id, nil
}
