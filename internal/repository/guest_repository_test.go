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

func setupGuestRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *GuestRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewGuestRepo(db)
}

func guestColumns() []string {
	return []string{"id", "event_id", "name", "group_name", "side", "dietary",
		"age_group", "rsvp_status", "needs_accessible", "notes", "created_at", "updated_at"}
}

func TestGuestCreate_Success(t *testing.T) {
	db, mock, repo := setupGuestRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`INSERT INTO guests`).
		WithArgs(5, "Aunt Priya", "Sharma family", "BRIDE", nil, "ADULT", "CONFIRMED", false, nil).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectQuery(`SELECT id, event_id`).
		WithArgs(31).
		WillReturnRows(sqlmock.NewRows(guestColumns()).
			AddRow(31, 5, "Aunt Priya", "Sharma family", "BRIDE", nil, "ADULT", "CONFIRMED", false, nil, now, now))

	g := &Guest{EventID: 5, Name: "Aunt Priya",
		GroupName: sql.NullString{String: "Sharma family", Valid: true},
		Side:      "BRIDE", AgeGroup: "ADULT", RSVPStatus: "CONFIRMED"}
	err := repo.Create(context.Background(), g)

	require.NoError(t, err)
	assert.Equal(t, uint64(31), g.ID)
	assert.Equal(t, now, g.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestCreateBulk_SingleStatement(t *testing.T) {
	db, mock, repo := setupGuestRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO guests`).
		WithArgs(
			5, "Leah", nil, "BRIDE", nil, "ADULT", "PENDING", false, nil,
			5, "Theo", "Okafor family", "GROOM", "vegan", "CHILD", "PENDING", true, nil,
		).
		WillReturnResult(sqlmock.NewResult(40, 2))

	err := repo.CreateBulk(context.Background(), []Guest{
		{EventID: 5, Name: "Leah", Side: "BRIDE", AgeGroup: "ADULT", RSVPStatus: "PENDING"},
		{EventID: 5, Name: "Theo",
			GroupName: sql.NullString{String: "Okafor family", Valid: true},
			Side:      "GROOM",
			Dietary:   sql.NullString{String: "vegan", Valid: true},
			AgeGroup:  "CHILD", RSVPStatus: "PENDING", NeedsAccessible: true},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestCreateBulk_EmptyIsNoop(t *testing.T) {
	db, mock, repo := setupGuestRepo(t)
	defer db.Close()

	err := repo.CreateBulk(context.Background(), nil)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestGetByIDAndOwner_ChecksEventOwnership(t *testing.T) {
	db, mock, repo := setupGuestRepo(t)
	defer db.Close()

	mock.ExpectQuery(`JOIN events e`).
		WithArgs(31, 99).
		WillReturnError(sql.ErrNoRows)

	g, err := repo.GetByIDAndOwner(context.Background(), 31, 99)

	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrGuestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestListSeatableByEvent_ExcludesDeclined(t *testing.T) {
	db, mock, repo := setupGuestRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`rsvp_status <> 'DECLINED'`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(guestColumns()).
			AddRow(31, 5, "Aunt Priya", "Sharma family", "BRIDE", nil, "ADULT", "CONFIRMED", false, nil, now, now).
			AddRow(32, 5, "Theo", nil, "GROOM", "vegan", "CHILD", "PENDING", true, "window seat", now, now))

	guests, err := repo.ListSeatableByEvent(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, guests, 2)
	assert.Equal(t, "Aunt Priya", guests[0].Name)
	assert.Equal(t, "Sharma family", guests[0].GroupName.String)
	assert.False(t, guests[1].GroupName.Valid)
	assert.Equal(t, "vegan", guests[1].Dietary.String)
	assert.True(t, guests[1].NeedsAccessible)
	assert.Equal(t, "window seat", guests[1].Notes.String)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestCountByEventAndRSVP_BucketsCounts(t *testing.T) {
	db, mock, repo := setupGuestRepo(t)
	defer db.Close()

	mock.ExpectQuery(`GROUP BY rsvp_status`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"rsvp_status", "count"}).
			AddRow("CONFIRMED", 42).
			AddRow("PENDING", 7).
			AddRow("DECLINED", 3))

	counts, err := repo.CountByEventAndRSVP(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"CONFIRMED": 42, "PENDING": 7, "DECLINED": 3}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestUpdateByIDAndOwner_Success(t *testing.T) {
	db, mock, repo := setupGuestRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE guests g`).
		WithArgs("Aunt Priya", "Sharma family", "BRIDE", nil, "SENIOR", "CONFIRMED", true, nil, 31, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	g := &Guest{ID: 31, Name: "Aunt Priya",
		GroupName: sql.NullString{String: "Sharma family", Valid: true},
		Side:      "BRIDE", AgeGroup: "SENIOR", RSVPStatus: "CONFIRMED", NeedsAccessible: true}
	err := repo.UpdateByIDAndOwner(context.Background(), g, 1)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestDeleteByIDAndOwner_RemovesDependents(t *testing.T) {
	db, mock, repo := setupGuestRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE g FROM guests g`).
		WithArgs(31, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM constraints`).
		WithArgs(31, 31).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM assignments`).
		WithArgs(31).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteByIDAndOwner(context.Background(), 31, 1)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestDeleteByIDAndOwner_NotFound(t *testing.T) {
	db, mock, repo := setupGuestRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE g FROM guests g`).
		WithArgs(31, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteByIDAndOwner(context.Background(), 31, 99)

	assert.ErrorIs(t, err, ErrGuestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
