package repository

import (
	"context"

	"github.com/vendmach/vending-service/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int32) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Query(ctx context.Context, q models.Query) ([]models.User, int32, error)
	Delete(ctx context.Context, id int32) (*models.User, error)
	GetBalance(ctx context.Context, userID int32) (int32, error)
	SetBalance(ctx context.Context, userID, balance int32) (int32, error)
}
