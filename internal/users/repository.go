package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaultledger/vaultledger/internal/platform/db"
	"github.com/vaultledger/vaultledger/internal/shared"
)

const userColumns = `id, email, full_name, password_hash, role, status, phone, address, birthday, gender, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users that are not deleted.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE status <> 'DELETED' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return notFound(scanUser(row))
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return notFound(scanUser(row))
}

// CreateUser inserts a user and returns the stored row.
func (r *Repository) CreateUser(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role, status, phone, address, birthday, gender, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
RETURNING `+userColumns,
		user.Email, user.FullName, user.PasswordHash, string(user.Role), string(user.Status),
		user.Profile.Phone, user.Profile.Address, user.Profile.Birthday, user.Profile.Gender, user.CreatedAt)
	created, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return User{}, shared.Wrap(shared.ErrConflict, "users: email already registered", nil)
		}
		return User{}, err
	}
	return created, nil
}

// UpdateUser persists role and status changes.
func (r *Repository) UpdateUser(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET role = $2, status = $3, updated_at = $4 WHERE id = $1 RETURNING `+userColumns,
		user.ID, string(user.Role), string(user.Status), user.UpdatedAt)
	return notFound(scanUser(row))
}

// SoftDeleteUser marks a user deleted.
func (r *Repository) SoftDeleteUser(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET status = 'DELETED', updated_at = $2 WHERE id = $1 AND status <> 'DELETED'`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var role, status string
	err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash, &role, &status,
		&user.Profile.Phone, &user.Profile.Address, &user.Profile.Birthday, &user.Profile.Gender,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	user.Role = rbacRole(role)
	user.Status = Status(status)
	return user, nil
}

func notFound(user User, err error) (User, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return user, err
}

var _ RepositoryPort = (*Repository)(nil)
