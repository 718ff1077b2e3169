package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"skywatch/internal/domain"
)

const (
	uniqueViolationCode     = "23505"
	usernameUniqueIndexName = "users_username_key"
	emailUniqueIndexName    = "users_email_key"
)

var (
	// ErrDuplicateUsername y ErrDuplicateEmail provienen del índice único, no de un pre-chequeo.
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrDuplicate         = errors.New("duplicate record")
)

// UserRepository define el contrato de persistencia para cuentas.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByLogin(ctx context.Context, username, email string) (domain.User, error)
	FindConflicts(ctx context.Context, username, email, excludeID string) (Conflicts, error)
	Update(ctx context.Context, user domain.User) error
	LinkOAuth(ctx context.Context, id, provider, subject string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// Conflicts informa qué campos únicos ya están tomados por otra cuenta.
type Conflicts struct {
	Username bool
	Email    bool
}

func (c Conflicts) Any() bool {
	return c.Username || c.Email
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, first_name, last_name, profile_picture,
		is_verified, oauth_provider, oauth_id, created_at, updated_at`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.ProfilePicture,
		user.IsVerified,
		user.OAuthProvider,
		user.OAuthID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetByLogin busca por username o email; ambos son únicos así que hay a lo sumo una fila por campo.
func (r *PgUserRepository) GetByLogin(ctx context.Context, username, email string) (domain.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 OR email = $2
		ORDER BY (username = $1) DESC
		LIMIT 1
	`
	return scanUser(r.pool.QueryRow(ctx, query, username, email))
}

func (r *PgUserRepository) FindConflicts(ctx context.Context, username, email, excludeID string) (Conflicts, error) {
	const query = `
		SELECT
			COALESCE(bool_or(username = $1), FALSE),
			COALESCE(bool_or(email = $2), FALSE)
		FROM users
		WHERE (username = $1 OR email = $2)
		  AND ($3 = '' OR id::text <> $3)
	`
	var c Conflicts
	err := r.pool.QueryRow(ctx, query, username, email, excludeID).Scan(&c.Username, &c.Email)
	return c, err
}

func (r *PgUserRepository) Update(ctx context.Context, user domain.User) error {
	const query = `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, first_name = $5, last_name = $6,
		    profile_picture = $7, is_verified = $8, oauth_provider = $9, oauth_id = $10, updated_at = $11
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.ProfilePicture,
		user.IsVerified,
		user.OAuthProvider,
		user.OAuthID,
		user.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// LinkOAuth vincula la identidad federada y marca la cuenta como verificada.
func (r *PgUserRepository) LinkOAuth(ctx context.Context, id, provider, subject string, updatedAt time.Time) error {
	const query = `
		UPDATE users
		SET oauth_provider = $2, oauth_id = $3, is_verified = TRUE, updated_at = $4
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, provider, subject, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.ProfilePicture,
		&u.IsVerified,
		&u.OAuthProvider,
		&u.OAuthID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// mapWriteError traduce violaciones de unicidad de Postgres a errores del repositorio.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}
	switch pgErr.ConstraintName {
	case usernameUniqueIndexName:
		return fmt.Errorf("%w: %w", ErrDuplicate, ErrDuplicateUsername)
	case emailUniqueIndexName:
		return fmt.Errorf("%w: %w", ErrDuplicate, ErrDuplicateEmail)
	default:
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
}
