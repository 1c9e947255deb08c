package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/golang-jwt/jwt/v5"
)

var ErrSecretRequired = errors.New("auth: signing secret is required")

// Claims is the token payload: subject uid, email and role.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWT signs and verifies HS256 bearer tokens.
type JWT struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

var _ identity.Provider = (*JWT)(nil)

func NewJWT(secret, issuer string, ttl time.Duration) (*JWT, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWT{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue creates a signed token for id.
func (j *JWT) Issue(id identity.Identity) (string, error) {
	if id.Anonymous() {
		return "", identity.ErrUnauthorized
	}
	now := j.now()
	claims := Claims{
		UID:   id.UID,
		Email: id.Email,
		Role:  string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// Authenticate verifies token and returns its identity. Any failure is ErrUnauthorized.
func (j *JWT) Authenticate(ctx context.Context, token string) (identity.Identity, error) {
	_ = ctx
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return identity.Identity{}, identity.ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", identity.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UID == "" {
		return identity.Identity{}, fmt.Errorf("%w: %w", identity.ErrUnauthorized, jwt.ErrTokenInvalidClaims)
	}

	role, err := identity.ParseRole(claims.Role)
	if err != nil {
		role = identity.RoleCustomer
	}
	return identity.Identity{UID: claims.UID, Email: claims.Email, Role: role}, nil
}
