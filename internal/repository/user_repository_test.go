package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *UserRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewUserRepo(db)
}

func TestUserCreate_NormalizesEmail(t *testing.T) {
	db, mock, repo := setupUserRepo(t)
	defer db.Close()

	// bcrypt output is salted, the hash argument cannot be pinned down
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("planner@example.com", "Dana", sqlmock.AnyArg(), "PLANNER").
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.Create(context.Background(), "  Planner@Example.COM ", "Dana", "s3cret-pw", "PLANNER", 4)

	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db, mock, repo := setupUserRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("planner@example.com", "Dana", sqlmock.AnyArg(), "PLANNER").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'planner@example.com' for key 'users.email'"))

	_, err := repo.Create(context.Background(), "planner@example.com", "Dana", "s3cret-pw", "PLANNER", 4)

	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmail(t *testing.T) {
	db, mock, repo := setupUserRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id,email,name`).
		WithArgs("planner@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "role", "is_active", "created_at", "updated_at"}).
			AddRow(1, "planner@example.com", "Dana", "$2a$04$hash", "PLANNER", true, now, now))

	u, err := repo.GetByEmail(context.Background(), "Planner@Example.com")

	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	assert.Equal(t, "Dana", u.Name)
	assert.Equal(t, "PLANNER", u.Role)
	assert.True(t, u.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}
