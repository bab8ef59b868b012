package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"legaltrainer/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	FindByIdentity(ctx context.Context, kind models.IdentityKind, value string) (*models.User, error)

	// refresh helpers
	UpdateRefresh(ctx context.Context, userID int, token string, expiresAt time.Time) error
	RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error)
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)
}

const userColumns = `id, username, display_name, email, phone, bot_identity, password_hash,
	refresh_token, refresh_expires_at, refresh_revoked, created_at`

type userRepository struct {
	DB *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (username, display_name, email, phone, bot_identity, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.DB.QueryRowxContext(ctx, q,
		user.Username,
		user.DisplayName,
		user.Email,
		user.Phone,
		user.BotIdentity,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return r.getOne(ctx, "get user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "get user by username", `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// FindByIdentity looks a user up by email, phone or bot identity.
func (r *userRepository) FindByIdentity(ctx context.Context, kind models.IdentityKind, value string) (*models.User, error) {
	switch kind {
	case models.IdentityEmail, models.IdentityPhone, models.IdentityBot:
	default:
		return nil, fmt.Errorf("find user: unsupported identity kind %q", kind)
	}
	// kind is whitelisted above, safe to splice into the query
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + string(kind) + ` = $1`
	return r.getOne(ctx, "find user by "+string(kind), q, value)
}

func (r *userRepository) UpdateRefresh(ctx context.Context, userID int, token string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET refresh_token=$1, refresh_expires_at=$2, refresh_revoked=FALSE
		WHERE id=$3
	`
	if _, err := r.DB.ExecContext(ctx, q, token, expiresAt, userID); err != nil {
		return fmt.Errorf("update refresh: %w", err)
	}
	return nil
}

// RotateRefresh swaps oldToken for newToken. Returns nil, nil when oldToken is unknown.
func (r *userRepository) RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error) {
	q := `
		UPDATE users
		SET refresh_token=$1, refresh_expires_at=$2, refresh_revoked=FALSE
		WHERE refresh_token=$3 AND refresh_revoked=FALSE
		RETURNING ` + userColumns
	return r.getOne(ctx, "rotate refresh", q, newToken, newExpiresAt, oldToken)
}

func (r *userRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, "get user by refresh", `SELECT `+userColumns+` FROM users WHERE refresh_token = $1`, token)
}

func (r *userRepository) getOne(ctx context.Context, op, q string, args ...any) (*models.User, error) {
	var u models.User
	if err := r.DB.GetContext(ctx, &u, q, args...); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}
