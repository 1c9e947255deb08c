package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `uid, email, display_name, role, address, created_at, updated_at`

type UserRepository struct {
	db *pgxpool.Pool
}

var _ domain.Repository = (*UserRepository)(nil)

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role string
	var address []byte
	if err := row.Scan(&u.UID, &u.Email, &u.DisplayName, &role, &address, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if len(address) > 0 {
		if err := json.Unmarshal(address, &u.Address); err != nil {
			return nil, fmt.Errorf("user %s: decode address: %w", u.UID, err)
		}
	}
	return &u, nil
}

func (r *UserRepository) Get(ctx context.Context, uid string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user repository: get %s: %w", uid, err)
	}
	return u, nil
}

func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	address, err := json.Marshal(u.Address)
	if err != nil {
		return fmt.Errorf("user repository: encode address: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO users (uid, email, display_name, role, address)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (uid) DO UPDATE
		SET email = EXCLUDED.email,
		    display_name = EXCLUDED.display_name,
		    role = EXCLUDED.role,
		    address = EXCLUDED.address,
		    updated_at = now()`,
		u.UID, u.Email, u.DisplayName, string(u.Role), string(address),
	)
	if err != nil {
		return fmt.Errorf("user repository: save %s: %w", u.UID, err)
	}
	return nil
}

func (r *UserRepository) SetRole(ctx context.Context, uid string, role domain.Role) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE uid = $1`, uid, string(role))
	if err != nil {
		return fmt.Errorf("user repository: set role %s: %w", uid, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("user repository: list: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("user repository: scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
