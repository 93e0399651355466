package repository

import (
	"context"

	"github.com/vendmach/vending-service/internal/models"
)

// SlotPurchaseView is the slot snapshot the ledger needs when creating a
// transaction: the slot itself plus the assigned product's price.
type SlotPurchaseView struct {
	Slot         models.Slot
	ProductPrice int32
}

type SlotRepository interface {
	Create(ctx context.Context, s *models.Slot) error
	GetByID(ctx context.Context, id int32) (*models.Slot, error)
	GetForPurchase(ctx context.Context, id int32) (*SlotPurchaseView, error)
	List(ctx context.Context) ([]models.Slot, error)
	ListByMachine(ctx context.Context, machineID int32, productName string) ([]models.SlotDetails, error)
	Update(ctx context.Context, s *models.Slot) error
	AssignProduct(ctx context.Context, slotID int32, productID *int32, stock int32) (*models.Slot, error)
	Delete(ctx context.Context, id int32) (*models.Slot, error)
}
