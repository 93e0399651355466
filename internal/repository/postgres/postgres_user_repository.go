package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/vendmach/vending-service/internal/models"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("%w: user is nil", pkgerrors.ErrInvalidInput)
	}
	if user.Username == "" || user.PasswordHash == "" {
		return fmt.Errorf("%w: username and password are required", pkgerrors.ErrInvalidInput)
	}

	query := `
	INSERT INTO users (name, username, password_hash, role, balance, machine_id)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at
	`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.Balance,
		user.MachineID,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return pkgerrors.ErrUsernameExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int32) (*models.User, error) {
	query := `SELECT id, name, username, password_hash, role, balance, machine_id, created_at FROM users WHERE id = $1`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.Role, &user.Balance, &user.MachineID, &user.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", pkgerrors.ErrInvalidInput)
	}

	query := `SELECT id, name, username, password_hash, role, balance, machine_id, created_at FROM users WHERE username = $1`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.Role, &user.Balance, &user.MachineID, &user.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT id, name, username, password_hash, role, balance, machine_id, created_at FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.Role, &user.Balance, &user.MachineID, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// queryableUserFields whitelists filter/sort fields accepted by Query.
var queryableUserFields = map[string]bool{
	"id":       true,
	"name":     true,
	"username": true,
	"role":     true,
	"balance":  true,
}

func (r *PostgresUserRepository) Query(ctx context.Context, q models.Query) ([]models.User, int32, error) {
	where := []string{}
	args := []interface{}{}

	for _, f := range q.Filter {
		if !queryableUserFields[f.Field] {
			continue // skip invalid filters
		}
		args = append(args, f.Value)
		n := len(args)
		switch f.Option {
		case models.FilterEq:
			where = append(where, fmt.Sprintf("%s = $%d", f.Field, n))
		case models.FilterGt:
			where = append(where, fmt.Sprintf("%s > $%d", f.Field, n))
		case models.FilterLt:
			where = append(where, fmt.Sprintf("%s < $%d", f.Field, n))
		case models.FilterContains:
			where = append(where, fmt.Sprintf("%s::text LIKE '%%' || $%d || '%%'", f.Field, n))
		case models.FilterStartsWith:
			where = append(where, fmt.Sprintf("%s::text LIKE $%d || '%%'", f.Field, n))
		default:
			args = args[:n-1]
		}
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	orderClause := " ORDER BY id"
	if q.Sort != nil && queryableUserFields[q.Sort.Field] {
		dir := "ASC"
		if strings.EqualFold(q.Sort.Order, "desc") {
			dir = "DESC"
		}
		orderClause = fmt.Sprintf(" ORDER BY %s %s", q.Sort.Field, dir)
	}

	page, pageSize := 1, 5
	if q.Pagination != nil {
		if q.Pagination.Page > 0 {
			page = q.Pagination.Page
		}
		if q.Pagination.PageSize > 0 {
			pageSize = q.Pagination.PageSize
		}
	}
	args = append(args, pageSize, (page-1)*pageSize)
	limitClause := fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	query := `SELECT id, name, username, password_hash, role, balance, machine_id, created_at FROM users` +
		whereClause + orderClause + limitClause
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.Role, &user.Balance, &user.MachineID, &user.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var count int32
	countQuery := `SELECT COUNT(*) FROM users` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	return users, count, nil
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id int32) (*models.User, error) {
	query := `DELETE FROM users WHERE id = $1 RETURNING id, name, username, password_hash, role, balance, machine_id, created_at`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.Role, &user.Balance, &user.MachineID, &user.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetBalance(ctx context.Context, userID int32) (int32, error) {
	var balance int32
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, pkgerrors.ErrUserNotFound
	case err != nil:
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (r *PostgresUserRepository) SetBalance(ctx context.Context, userID, balance int32) (int32, error) {
	if balance < 0 {
		return 0, fmt.Errorf("%w: balance cannot be negative", pkgerrors.ErrInvalidInput)
	}
	var newBalance int32
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET balance = $1 WHERE id = $2 RETURNING balance`,
		balance, userID).Scan(&newBalance)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, pkgerrors.ErrUserNotFound
	case err != nil:
		return 0, fmt.Errorf("failed to set balance: %w", err)
	}
	return newBalance, nil
}
