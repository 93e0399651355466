package repository

import (
	"context"

	"github.com/vendmach/vending-service/internal/models"
)

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id int32) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int32) (*models.Product, error)
}
