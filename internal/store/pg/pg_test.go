package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-std/internal/place"
	"place-std/internal/store"
)

var placeColumns = []string{"id", "name", "alt_names", "types", "located_in_id", "also_located_in_ids", "level", "country_id", "latitude", "longitude", "sources"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return AttachDB(db), mock
}

func TestPlace(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(placeQuery)).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(placeColumns).
			AddRow(4, "Springfield", "Capital City:wiki", "city~county seat", 3, "7~8", 4, 1500, 39.8, -89.64, "geonames:4250542"))

	p, err := s.Place(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", p.Name)
	assert.Equal(t, []place.AltName{{Name: "Capital City", Source: "wiki"}}, p.AltNames)
	assert.Equal(t, []string{"city", "county seat"}, p.Types)
	assert.Equal(t, 3, p.LocatedIn)
	assert.Equal(t, []int{7, 8}, p.AlsoLocatedIn)
	assert.Equal(t, 4, p.Level)
	assert.Equal(t, 1500, p.CountryID)
	assert.Equal(t, []place.Source{{Source: "geonames", ID: "4250542"}}, p.Sources)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceNullColumns(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(placeQuery)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(placeColumns).
			AddRow(1, "USA", nil, nil, nil, nil, 1, 1500, nil, nil, nil))

	p, err := s.Place(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, p.LocatedIn)
	assert.Empty(t, p.AlsoLocatedIn)
	assert.False(t, p.HasCoordinates())
}

func TestPlaceMissingAndFailing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(placeQuery)).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(placeColumns))
	mock.ExpectQuery(regexp.QuoteMeta(placeQuery)).
		WithArgs(100).
		WillReturnError(errors.New("connection refused"))

	_, err := s.Place(context.Background(), 99)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Place(context.Background(), 100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWords(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(wordsQuery)).
		WithArgs("springfield").
		WillReturnRows(sqlmock.NewRows([]string{"ids"}).AddRow("4,12"))
	mock.ExpectQuery(regexp.QuoteMeta(wordsQuery)).
		WithArgs("atlantis").
		WillReturnRows(sqlmock.NewRows([]string{"ids"}))
	mock.ExpectQuery(regexp.QuoteMeta(wordsQuery)).
		WithArgs("broken").
		WillReturnRows(sqlmock.NewRows([]string{"ids"}).AddRow("4,x"))

	ids, err := s.Words(context.Background(), "springfield")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 12}, ids)

	ids, err = s.Words(context.Background(), "atlantis")
	require.NoError(t, err)
	assert.Nil(t, ids)

	_, err = s.Words(context.Background(), "broken")
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
