package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const profileColumns = `
	id, username, gender, avatar_url, latitude, longitude, is_online,
	last_online, location_updated_at, age, bio, interests, location, created_at`

type profileRow struct {
	ID                uuid.UUID       `db:"id"`
	Username          string          `db:"username"`
	Gender            string          `db:"gender"`
	AvatarURL         sql.NullString  `db:"avatar_url"`
	Latitude          sql.NullFloat64 `db:"latitude"`
	Longitude         sql.NullFloat64 `db:"longitude"`
	IsOnline          bool            `db:"is_online"`
	LastOnline        time.Time       `db:"last_online"`
	LocationUpdatedAt sql.NullTime    `db:"location_updated_at"`
	Age               sql.NullInt64   `db:"age"`
	Bio               sql.NullString  `db:"bio"`
	Interests         pq.StringArray  `db:"interests"`
	Location          sql.NullString  `db:"location"`
	CreatedAt         time.Time       `db:"created_at"`
}

func (r *profileRow) toDomain() *domain.Profile {
	p := &domain.Profile{
		ID:           r.ID,
		DisplayName:  r.Username,
		Gender:       domain.Gender(r.Gender),
		IsOnline:     r.IsOnline,
		LastOnlineAt: r.LastOnline,
		Interests:    []string(r.Interests),
		CreatedAt:    r.CreatedAt,
	}
	if r.AvatarURL.Valid {
		p.AvatarRef = &r.AvatarURL.String
	}
	// Both or neither, as the table constraint guarantees.
	if r.Latitude.Valid && r.Longitude.Valid {
		lat, lon := r.Latitude.Float64, r.Longitude.Float64
		p.Latitude, p.Longitude = &lat, &lon
	}
	if r.LocationUpdatedAt.Valid {
		p.LocationUpdatedAt = &r.LocationUpdatedAt.Time
	}
	if r.Age.Valid {
		age := int(r.Age.Int64)
		p.Age = &age
	}
	if r.Bio.Valid {
		p.Bio = &r.Bio.String
	}
	if r.Location.Valid {
		p.FreeTextLocation = &r.Location.String
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}
	return p
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (
			id, username, gender, avatar_url, latitude, longitude, is_online,
			last_online, location_updated_at, age, bio, interests, location, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`
	interests := profile.Interests
	if interests == nil {
		interests = []string{}
	}
	err := r.db.QueryRowContext(
		ctx, query,
		profile.ID, profile.DisplayName, string(profile.Gender), profile.AvatarRef,
		profile.Latitude, profile.Longitude, profile.IsOnline,
		profile.LastOnlineAt, profile.LocationUpdatedAt, profile.Age, profile.Bio,
		pq.Array(interests), profile.FreeTextLocation, profile.CreatedAt,
	).Scan(&profile.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProfileAlreadyExists
		}
		return err
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var row profileRow
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *profileRepository) ListCandidates(ctx context.Context, q repository.CandidateQuery) ([]*domain.Profile, error) {
	var rows []profileRow
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE id <> $1
		  AND is_online = true
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		  AND location_updated_at >= $2
		LIMIT $3
	`
	if err := r.db.SelectContext(ctx, &rows, query, q.ExcludeID, q.UpdatedSince, q.Limit); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	profiles := make([]*domain.Profile, 0, len(rows))
	for i := range rows {
		profiles = append(profiles, rows[i].toDomain())
	}
	return profiles, nil
}

func (r *profileRepository) UpdateLocation(ctx context.Context, id uuid.UUID, c domain.Coordinates, at time.Time) error {
	query := `
		UPDATE profiles
		SET latitude = $1, longitude = $2, location_updated_at = $3, last_online = $3
		WHERE id = $4
	`
	return r.execOne(ctx, query, c.Lat, c.Lon, at, id)
}

func (r *profileRepository) UpdatePresence(ctx context.Context, id uuid.UUID, online bool, at time.Time) error {
	query := `UPDATE profiles SET is_online = $1, last_online = $2 WHERE id = $3`
	return r.execOne(ctx, query, online, at, id)
}

func (r *profileRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
