package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"skywatch/internal/domain"
)

// LocationRepository define la persistencia de ubicaciones guardadas.
// Todas las operaciones están acotadas al dueño.
type LocationRepository interface {
	Create(ctx context.Context, loc domain.Location) error
	ListByUser(ctx context.Context, userID, search string) ([]domain.Location, error)
	GetByID(ctx context.Context, userID, id string) (domain.Location, error)
	Update(ctx context.Context, loc domain.Location) (domain.Location, error)
	Delete(ctx context.Context, userID, id string) error
}

type PgLocationRepository struct {
	pool *pgxpool.Pool
}

func NewPgLocationRepository(pool *pgxpool.Pool) *PgLocationRepository {
	return &PgLocationRepository{pool: pool}
}

func (r *PgLocationRepository) Create(ctx context.Context, loc domain.Location) error {
	const query = `
		INSERT INTO saved_locations (id, user_id, name, latitude, longitude, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		loc.ID,
		loc.UserID,
		loc.Name,
		loc.Latitude,
		loc.Longitude,
		loc.CreatedAt,
		loc.UpdatedAt,
	)
	return err
}

func (r *PgLocationRepository) ListByUser(ctx context.Context, userID, search string) ([]domain.Location, error) {
	const query = `
		SELECT id, user_id, name, latitude, longitude, created_at, updated_at
		FROM saved_locations
		WHERE user_id = $1
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' ESCAPE '\')
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, userID, escapeLike(search))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]domain.Location, 0)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func (r *PgLocationRepository) GetByID(ctx context.Context, userID, id string) (domain.Location, error) {
	const query = `
		SELECT id, user_id, name, latitude, longitude, created_at, updated_at
		FROM saved_locations
		WHERE user_id = $1 AND id = $2
	`
	return scanLocation(r.pool.QueryRow(ctx, query, userID, id))
}

func (r *PgLocationRepository) Update(ctx context.Context, loc domain.Location) (domain.Location, error) {
	const query = `
		UPDATE saved_locations
		SET name = $3, latitude = $4, longitude = $5, updated_at = $6
		WHERE user_id = $1 AND id = $2
		RETURNING id, user_id, name, latitude, longitude, created_at, updated_at
	`
	return scanLocation(r.pool.QueryRow(ctx, query,
		loc.UserID,
		loc.ID,
		loc.Name,
		loc.Latitude,
		loc.Longitude,
		loc.UpdatedAt,
	))
}

func (r *PgLocationRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM saved_locations WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanLocation(row pgx.Row) (domain.Location, error) {
	var loc domain.Location
	err := row.Scan(
		&loc.ID,
		&loc.UserID,
		&loc.Name,
		&loc.Latitude,
		&loc.Longitude,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if err != nil {
		return domain.Location{}, err
	}
	return loc, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(strings.TrimSpace(s))
}
