package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	domidentity "github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const identityService = "identity-service"

var ErrSelfDemotion = fmt.Errorf("%w: admins cannot remove their own admin role", domidentity.ErrForbidden)

type ProfileInput struct {
	DisplayName string
	Address     domidentity.ShippingAddress
}

type Service struct {
	users domidentity.Repository
	guard *access.Guard
	inst  *application.Instrument
}

func NewService(users domidentity.Repository, guard *access.Guard, tel observability.Observability) *Service {
	return &Service{users: users, guard: guard, inst: application.NewInstrument(identityService, tel)}
}

// Me returns the caller's profile, provisioning a record on first sight.
// The stored role wins over the token claim once a record exists.
func (s *Service) Me(ctx context.Context) (_ *domidentity.User, err error) {
	ctx, run := s.inst.Start(ctx, "identity.me", "Me")
	defer func() { run.End(err) }()

	caller, err := s.guard.Require(ctx, access.Customer...)
	if err != nil {
		return nil, err
	}
	u, provisioned, err := s.profile(ctx, caller)
	if provisioned {
		run.SetStatus("PROVISIONED")
	}
	return u, err
}

func (s *Service) profile(ctx context.Context, caller domidentity.Identity) (*domidentity.User, bool, error) {
	u, err := s.users.Get(ctx, caller.UID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, domidentity.ErrNotFound) {
		return nil, false, err
	}
	u = &domidentity.User{UID: caller.UID, Email: caller.Email, Role: caller.Role}
	if u.Role == "" {
		u.Role = domidentity.RoleCustomer
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, false, fmt.Errorf("identity: provision: %w", err)
	}
	u, err = s.users.Get(ctx, caller.UID)
	return u, true, err
}

// CompleteProfile stores the shipping section. Every required field must be present.
func (s *Service) CompleteProfile(ctx context.Context, in ProfileInput) (_ *domidentity.User, err error) {
	ctx, run := s.inst.Start(ctx, "identity.complete_profile", "CompleteProfile")
	defer func() { run.End(err) }()

	caller, err := s.guard.Require(ctx, access.Customer...)
	if err != nil {
		return nil, err
	}
	u, _, err := s.profile(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := in.Address.Validate(); err != nil {
		return nil, err
	}
	u.DisplayName = strings.TrimSpace(in.DisplayName)
	u.Address = in.Address
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("identity: save profile: %w", err)
	}
	return s.users.Get(ctx, u.UID)
}

func (s *Service) List(ctx context.Context) (_ []*domidentity.User, err error) {
	ctx, run := s.inst.Start(ctx, "identity.list", "ListUsers")
	defer func() { run.End(err) }()

	if _, err = s.guard.Require(ctx, access.Admin...); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	run.Annotate(observability.F("count", len(users)))
	return users, nil
}

// SetRole promotes or demotes a user. An admin may not demote themselves.
func (s *Service) SetRole(ctx context.Context, uid, role string) (_ *domidentity.User, err error) {
	ctx, run := s.inst.Start(ctx, "identity.set_role", "SetRole",
		attribute.String("user.uid", uid),
		attribute.String("user.role", role),
	)
	defer func() { run.End(err) }()

	caller, err := s.guard.Require(ctx, access.Admin...)
	if err != nil {
		return nil, err
	}
	if uid == "" {
		return nil, domain.Validation("user id is required")
	}
	r, err := domidentity.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if uid == caller.UID && r != domidentity.RoleAdmin {
		return nil, ErrSelfDemotion
	}
	if err := s.users.SetRole(ctx, uid, r); err != nil {
		return nil, err
	}
	return s.users.Get(ctx, uid)
}
