package repository_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/vendmach/vending-service/internal/models"
	repository "github.com/vendmach/vending-service/internal/repository/postgres"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
)

func userRow(u models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "username", "password_hash", "role", "balance", "machine_id", "created_at"}).
		AddRow(u.ID, u.Name, u.Username, u.PasswordHash, u.Role, u.Balance, u.MachineID, u.CreatedAt)
}

func TestPostgresUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		user := &models.User{Name: "Alice", Username: "alice", PasswordHash: "hash", Role: models.RoleUser, Balance: 100}
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(user.Name, user.Username, user.PasswordHash, user.Role, user.Balance, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int32(1), now))

		err := repo.Create(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, int32(1), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UsernameExists", func(t *testing.T) {
		user := &models.User{Name: "Alice", Username: "alice", PasswordHash: "hash", Role: models.RoleUser}
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(user.Name, user.Username, user.PasswordHash, user.Role, user.Balance, nil).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUsernameExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingFields", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Username: "alice"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}

func TestPostgresUserRepository_GetByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`SELECT id, name, username, password_hash, role, balance, machine_id, created_at FROM users WHERE username = $1`)

	t.Run("Success", func(t *testing.T) {
		expected := models.User{ID: 1, Name: "Alice", Username: "alice", PasswordHash: "hash", Role: models.RoleUser, Balance: 100, CreatedAt: time.Now()}
		mock.ExpectQuery(query).WithArgs("alice").WillReturnRows(userRow(expected))

		user, err := repo.GetByUsername(ctx, "alice")
		assert.NoError(t, err)
		assert.Equal(t, &expected, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("bob").WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByUsername(ctx, "bob")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyUsername", func(t *testing.T) {
		user, err := repo.GetByUsername(ctx, "")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}

func TestPostgresUserRepository_Query(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("DefaultsToFirstPage", func(t *testing.T) {
		expected := models.User{ID: 1, Name: "Alice", Username: "alice", PasswordHash: "hash", Role: models.RoleUser, Balance: 100, CreatedAt: time.Now()}
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, username, password_hash, role, balance, machine_id, created_at FROM users ORDER BY id LIMIT $1 OFFSET $2`)).
			WithArgs(5, 0).
			WillReturnRows(userRow(expected))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int32(1)))

		users, count, err := repo.Query(ctx, models.Query{})
		assert.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Equal(t, int32(1), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FilterSortAndPagination", func(t *testing.T) {
		expected := models.User{ID: 2, Name: "Bob", Username: "bob", PasswordHash: "hash", Role: models.RoleUser, Balance: 300, CreatedAt: time.Now()}
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, username, password_hash, role, balance, machine_id, created_at FROM users WHERE role = $1 AND balance > $2 ORDER BY balance DESC LIMIT $3 OFFSET $4`)).
			WithArgs("user", 200, 10, 10).
			WillReturnRows(userRow(expected))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE role = $1 AND balance > $2`)).
			WithArgs("user", 200).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int32(11)))

		users, count, err := repo.Query(ctx, models.Query{
			Filter: []models.Filter{
				{Field: "role", Value: "user", Option: models.FilterEq},
				{Field: "balance", Value: 200, Option: models.FilterGt},
			},
			Sort:       &models.Sort{Field: "balance", Order: "desc"},
			Pagination: &models.Pagination{Page: 2, PageSize: 10},
		})
		assert.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Equal(t, int32(11), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("IgnoresUnknownFields", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, username, password_hash, role, balance, machine_id, created_at FROM users ORDER BY id LIMIT $1 OFFSET $2`)).
			WithArgs(5, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "username", "password_hash", "role", "balance", "created_at"}))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int32(0)))

		users, count, err := repo.Query(ctx, models.Query{
			Filter: []models.Filter{
				{Field: "password_hash", Value: "x", Option: models.FilterEq},
				{Field: "id; DROP TABLE users", Value: 1, Option: models.FilterEq},
			},
		})
		assert.NoError(t, err)
		assert.Empty(t, users)
		assert.Equal(t, int32(0), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_SetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`UPDATE users SET balance = $1 WHERE id = $2 RETURNING balance`)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int32(500), int32(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int32(500)))

		balance, err := repo.SetBalance(ctx, 1, 500)
		assert.NoError(t, err)
		assert.Equal(t, int32(500), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NegativeBalance", func(t *testing.T) {
		balance, err := repo.SetBalance(ctx, 1, -1)
		assert.Equal(t, int32(0), balance)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("UserNotFound", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int32(500), int32(9)).WillReturnError(sql.ErrNoRows)

		balance, err := repo.SetBalance(ctx, 9, 500)
		assert.Equal(t, int32(0), balance)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
