package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Failure paths that are awkward to provoke on a real database are exercised
// against a mocked connection.

func TestAggregateStatsQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sentences`).
		WillReturnError(errors.New("disk I/O error"))

	s := &SQLStore{db: db, driver: DriverSQLite}
	_, err = s.AggregateStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count sentences")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDependenciesBeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	s := &SQLStore{db: db, driver: DriverSQLite}
	err = s.InsertDependencies(context.Background(), "id", []*Dependency{{TokenText: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDependenciesRollbackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM sentences WHERE id = \?`).
		WithArgs("sent-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectPrepare(`INSERT INTO dependencies`).
		ExpectExec().
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	s := &SQLStore{db: db, driver: DriverSQLite}
	err = s.InsertDependencies(context.Background(), "sent-1", []*Dependency{
		{Position: 0, TokenText: "x", ModelType: "spacy"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert dependency")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebindPostgres(t *testing.T) {
	s := &SQLStore{driver: DriverPostgres}
	got := s.rebind(`INSERT INTO t (a, b) VALUES (?, ?)`)
	assert.Equal(t, `INSERT INTO t (a, b) VALUES ($1, $2)`, got)

	s = &SQLStore{driver: DriverSQLite}
	assert.Equal(t, `SELECT ?`, s.rebind(`SELECT ?`))
}
