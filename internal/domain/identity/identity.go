package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthorized      = errors.New("identity: unauthorized")
	ErrForbidden         = errors.New("identity: forbidden")
	ErrProfileIncomplete = errors.New("identity: profile incomplete")
	ErrNotFound          = errors.New("identity: user not found")
	ErrInvalidRole       = errors.New("identity: invalid role")
)

// Role is the sole authorization axis.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", ErrInvalidRole
}

// Identity is the authenticated caller as yielded by the identity provider.
type Identity struct {
	UID   string
	Email string
	Role  Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func (i Identity) Anonymous() bool { return i.UID == "" }

// Provider authenticates a bearer credential.
type Provider interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

type ctxKey struct{}

// WithIdentity stores the authenticated caller on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller, or false for anonymous contexts.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.Anonymous() {
		return Identity{}, false
	}
	return id, true
}
