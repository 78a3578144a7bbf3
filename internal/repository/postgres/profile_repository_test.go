package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/gdugdh24/geopresence/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rowColumns = []string{
	"id", "username", "gender", "avatar_url", "latitude", "longitude", "is_online",
	"last_online", "location_updated_at", "age", "bio", "interests", "location", "created_at",
}

func newMockRepo(t *testing.T) (repository.ProfileRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewProfileRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestListCandidatesQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	self := uuid.New()
	since := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	other := uuid.New()
	updated := since.Add(30 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta(
		`FROM profiles WHERE id <> $1 AND is_online = true ` +
			`AND latitude IS NOT NULL AND longitude IS NOT NULL ` +
			`AND location_updated_at >= $2 LIMIT $3`,
	)).
		WithArgs(self, since, 25).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
			other.String(), "ketut", "female", nil, -8.65, 115.21, true,
			updated, updated, nil, nil, []byte("{surf,music}"), nil, since,
		))

	rows, err := repo.ListCandidates(context.Background(), repository.CandidateQuery{
		ExcludeID:    self,
		UpdatedSince: since,
		Limit:        25,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	p := rows[0]
	assert.Equal(t, other, p.ID)
	assert.Equal(t, "ketut", p.DisplayName)
	assert.Equal(t, domain.Gender("female"), p.Gender)
	assert.Nil(t, p.AvatarRef)
	pos, ok := p.Position()
	require.True(t, ok)
	assert.Equal(t, domain.Coordinates{Lat: -8.65, Lon: 115.21}, pos)
	require.NotNil(t, p.LocationUpdatedAt)
	assert.True(t, updated.Equal(*p.LocationUpdatedAt))
	assert.Equal(t, []string{"surf", "music"}, p.Interests)
}

func TestCreateInsertsDefaultRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	profile := domain.NewDefaultProfile(domain.Identity{ID: uuid.New(), Email: "made@example.com"}, now)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO profiles (`)+`.*`+regexp.QuoteMeta(`RETURNING created_at`)).
		WithArgs(
			profile.ID, "made", string(domain.DefaultGender), nil,
			nil, nil, true,
			now, nil, nil, nil,
			pq.Array([]string{}), nil, now,
		).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	require.NoError(t, repo.Create(context.Background(), profile))
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	profile := domain.NewDefaultProfile(domain.Identity{ID: uuid.New()}, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO profiles`)).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), profile)
	assert.ErrorIs(t, err, domain.ErrProfileAlreadyExists)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM profiles WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestUpdateLocationQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta(
		`UPDATE profiles SET latitude = $1, longitude = $2, location_updated_at = $3, last_online = $3 WHERE id = $4`,
	)

	mock.ExpectExec(query).
		WithArgs(-8.65, 115.21, at, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateLocation(context.Background(), id, domain.Coordinates{Lat: -8.65, Lon: 115.21}, at))

	mock.ExpectExec(query).
		WithArgs(-8.65, 115.21, at, id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateLocation(context.Background(), id, domain.Coordinates{Lat: -8.65, Lon: 115.21}, at)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestUpdatePresenceQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE profiles SET is_online = $1, last_online = $2 WHERE id = $3`)).
		WithArgs(false, at, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePresence(context.Background(), id, false, at))
}
