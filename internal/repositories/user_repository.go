package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"teamchat-service/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserRepository abstracts directory persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, org string) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser persists a new directory record.
func (r *UserRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, org) VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING id, name, email, password_hash, role, org, created_at`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Org).
		StructScan(&user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, name, email, password_hash, role, org, created_at FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByEmail fetches a user by email, for login.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, name, email, password_hash, role, org, created_at FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// ListUsers returns the directory, optionally scoped to one organization.
func (r *UserRepo) ListUsers(ctx context.Context, org string) ([]models.User, error) {
	var users []models.User
	if org != "" {
		err := r.db.SelectContext(ctx, &users,
			`SELECT id, name, email, password_hash, role, org, created_at FROM users WHERE org=$1 ORDER BY name ASC`, org)
		return users, err
	}
	err := r.db.SelectContext(ctx, &users,
		`SELECT id, name, email, password_hash, role, org, created_at FROM users ORDER BY name ASC`)
	return users, err
}
