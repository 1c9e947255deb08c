package access

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
)

// Capability is one predicate an operation may require. A set of them is a conjunction.
type Capability string

const (
	CapAuthenticated Capability = "authenticated"
	CapAdmin         Capability = "admin"
)

// Customer and Admin are the two capability sets the storefront uses.
var (
	Customer = []Capability{CapAuthenticated}
	Admin    = []Capability{CapAuthenticated, CapAdmin}
)

type Guard struct {
	log observability.Logger
}

func NewGuard(logger observability.Logger) *Guard {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Guard{log: logger.With(observability.F("component", "access_guard"))}
}

// Require resolves the caller and checks every capability.
// No identity yields ErrUnauthorized; a missing role yields ErrForbidden.
func (g *Guard) Require(ctx context.Context, caps ...Capability) (identity.Identity, error) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		g.deny(ctx, id, caps, "anonymous")
		return identity.Identity{}, identity.ErrUnauthorized
	}
	for _, c := range caps {
		switch c {
		case CapAuthenticated:
		case CapAdmin:
			if !id.IsAdmin() {
				g.deny(ctx, id, caps, "role")
				return id, fmt.Errorf("%w: %s requires admin", identity.ErrForbidden, id.UID)
			}
		default:
			return id, fmt.Errorf("%w: unknown capability %q", identity.ErrForbidden, c)
		}
	}
	return id, nil
}

// RequireOrElevated passes elevated system contexts unconditionally, otherwise behaves like Require.
func (g *Guard) RequireOrElevated(ctx context.Context, caps ...Capability) error {
	if Elevated(ctx) {
		return nil
	}
	_, err := g.Require(ctx, caps...)
	return err
}

func (g *Guard) deny(ctx context.Context, id identity.Identity, caps []Capability, reason string) {
	logctx.FromOr(ctx, g.log).Debug("access_denied",
		observability.F("uid", id.UID),
		observability.F("required", caps),
		observability.F("reason", reason),
	)
}

type elevatedKey struct{}

// Elevate marks ctx as a system step acting with admin-equivalent authority.
// The caller's identity, if any, is kept as is.
func Elevate(ctx context.Context) context.Context {
	return context.WithValue(ctx, elevatedKey{}, true)
}

func Elevated(ctx context.Context) bool {
	v, _ := ctx.Value(elevatedKey{}).(bool)
	return v
}

type guarded[C any, R any] struct {
	guard *Guard
	inner application.UseCase[C, R]
	caps  []Capability
}

// Wrap gates uc behind caps. The inner use case only runs when the guard passes.
func Wrap[C any, R any](g *Guard, uc application.UseCase[C, R], caps ...Capability) application.UseCase[C, R] {
	return &guarded[C, R]{guard: g, inner: uc, caps: append([]Capability(nil), caps...)}
}

func (w *guarded[C, R]) Execute(ctx context.Context, cmd C) (R, error) {
	if _, err := w.guard.Require(ctx, w.caps...); err != nil {
		var zero R
		return zero, err
	}
	return w.inner.Execute(ctx, cmd)
}
