package repository

import (
	"context"

	"github.com/vendmach/vending-service/internal/models"
)

type MachineRepository interface {
	Create(ctx context.Context, m *models.VendingMachine, slotCount int32) error
	GetByID(ctx context.Context, id int32) (*models.VendingMachine, error)
	List(ctx context.Context) ([]models.VendingMachine, error)
	Rename(ctx context.Context, id int32, name string) (*models.VendingMachine, error)
	Delete(ctx context.Context, id int32) (*models.VendingMachine, error)
}
