package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vendmach/vending-service/internal/models"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
)

type PostgresProductRepository struct {
	db *sql.DB
}

func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

func (r *PostgresProductRepository) Create(ctx context.Context, p *models.Product) error {
	if p == nil {
		return fmt.Errorf("%w: product is nil", pkgerrors.ErrInvalidInput)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", pkgerrors.ErrInvalidInput)
	}
	query := `INSERT INTO products (name, price, image) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, p.Name, p.Price, p.Image).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id int32) (*models.Product, error) {
	query := `SELECT id, name, price, image, created_at FROM products WHERE id = $1`
	var p models.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrProductNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *PostgresProductRepository) List(ctx context.Context) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, price, image, created_at FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresProductRepository) Update(ctx context.Context, p *models.Product) error {
	if p == nil {
		return fmt.Errorf("%w: product is nil", pkgerrors.ErrInvalidInput)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", pkgerrors.ErrInvalidInput)
	}
	query := `UPDATE products SET name = $1, price = $2, image = $3 WHERE id = $4 RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, p.Name, p.Price, p.Image, p.ID).Scan(&p.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return pkgerrors.ErrProductNotFound
	case err != nil:
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *PostgresProductRepository) Delete(ctx context.Context, id int32) (*models.Product, error) {
	query := `DELETE FROM products WHERE id = $1 RETURNING id, name, price, image, created_at`
	var p models.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrProductNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return &p, nil
}
