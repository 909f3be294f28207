package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

// UserPatch lists the user fields that may change after registration.
// Username, id and password hash are deliberately not representable.
type UserPatch struct {
	Role      *domain.Role
	Name      *string
	Address   *string
	AvatarRef *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Role == nil && p.Name == nil && p.Address == nil && p.AvatarRef == nil
}

// UserRepository defines persistence access for identities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error)
}

const usersTable = "users"

var userColumns = []string{
	"id", "username", "password_hash", "role", "name", "address", "avatar_ref", "created_at", "updated_at",
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, username, password_hash, role, name, address, avatar_ref, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.Profile.Name,
		user.Profile.Address,
		user.Profile.AvatarRef,
		user.CreatedAt,
	)
	if err != nil {
		return translate(err)
	}
	user.UpdatedAt = user.CreatedAt
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query, args := newSelect(usersTable, userColumns...).Where("id", id).Build()
	return r.fetchSingle(ctx, query, args...)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query, args := newSelect(usersTable, userColumns...).Where("username", username).Build()
	return r.fetchSingle(ctx, query, args...)
}

func (r *userRepository) Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}
	q := newUpdate(usersTable)
	if patch.Role != nil {
		q.Set("role", *patch.Role)
	}
	if patch.Name != nil {
		q.Set("name", *patch.Name)
	}
	if patch.Address != nil {
		q.Set("address", *patch.Address)
	}
	if patch.AvatarRef != nil {
		q.Set("avatar_ref", *patch.AvatarRef)
	}
	query, args := q.SetExpr("updated_at", "NOW()").
		Where("id", id).
		Returning(userColumns...).
		Build()
	return r.fetchSingle(ctx, query, args...)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.Profile.Name,
		&user.Profile.Address,
		&user.Profile.AvatarRef,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
