package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConstraintRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ConstraintRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewConstraintRepo(db)
}

func constraintColumns() []string {
	return []string{"id", "event_id", "kind", "guest_a", "guest_b", "table_id", "is_hard", "weight", "created_at"}
}

func TestConstraintCreate_PairRule(t *testing.T) {
	db, mock, repo := setupConstraintRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`INSERT INTO constraints`).
		WithArgs(5, "TOGETHER", 31, int64(32), nil, true, 0.0).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery(`SELECT id, event_id`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(constraintColumns()).
			AddRow(3, 5, "TOGETHER", 31, 32, nil, true, 0.0, now))

	c := &Constraint{
		EventID: 5,
		Kind:    "TOGETHER",
		GuestA:  31,
		GuestB:  sql.NullInt64{Int64: 32, Valid: true},
		IsHard:  true,
	}
	err := repo.Create(context.Background(), c)

	require.NoError(t, err)
	assert.Equal(t, uint64(3), c.ID)
	assert.Equal(t, int64(32), c.GuestB.Int64)
	assert.False(t, c.TableID.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintCreate_PinRule(t *testing.T) {
	db, mock, repo := setupConstraintRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`INSERT INTO constraints`).
		WithArgs(5, "AT_TABLE", 31, nil, int64(12), false, 7.5).
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectQuery(`SELECT id, event_id`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(constraintColumns()).
			AddRow(4, 5, "AT_TABLE", 31, nil, 12, false, 7.5, now))

	c := &Constraint{
		EventID: 5,
		Kind:    "AT_TABLE",
		GuestA:  31,
		TableID: sql.NullInt64{Int64: 12, Valid: true},
		Weight:  7.5,
	}
	err := repo.Create(context.Background(), c)

	require.NoError(t, err)
	assert.False(t, c.GuestB.Valid)
	assert.Equal(t, int64(12), c.TableID.Int64)
	assert.Equal(t, 7.5, c.Weight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintListByEvent(t *testing.T) {
	db, mock, repo := setupConstraintRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, event_id`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(constraintColumns()).
			AddRow(3, 5, "TOGETHER", 31, 32, nil, true, 0.0, now).
			AddRow(4, 5, "ACCESSIBLE", 33, nil, nil, true, 0.0, now))

	cons, err := repo.ListByEvent(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, cons, 2)
	assert.Equal(t, "TOGETHER", cons[0].Kind)
	assert.Equal(t, "ACCESSIBLE", cons[1].Kind)
	assert.False(t, cons[1].GuestB.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintGetByIDAndOwner_NotFound(t *testing.T) {
	db, mock, repo := setupConstraintRepo(t)
	defer db.Close()

	mock.ExpectQuery(`JOIN events e`).
		WithArgs(3, 99).
		WillReturnError(sql.ErrNoRows)

	c, err := repo.GetByIDAndOwner(context.Background(), 3, 99)

	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrConstraintNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintDeleteByIDAndOwner(t *testing.T) {
	db, mock, repo := setupConstraintRepo(t)
	defer db.Close()

	mock.ExpectExec(`DELETE c FROM constraints c`).
		WithArgs(3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteByIDAndOwner(context.Background(), 3, 1)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintDeleteByIDAndOwner_NotFound(t *testing.T) {
	db, mock, repo := setupConstraintRepo(t)
	defer db.Close()

	mock.ExpectExec(`DELETE c FROM constraints c`).
		WithArgs(3, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteByIDAndOwner(context.Background(), 3, 99)

	assert.ErrorIs(t, err, ErrConstraintNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
