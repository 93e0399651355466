package repository

import (
	"context"

	"github.com/vendmach/vending-service/internal/models"
)

type TransactionRepository interface {
	// Create inserts the transaction with its pre-generated code. A code
	// collision with an existing row is reported as ErrCodeCollision so the
	// caller can regenerate and retry.
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id int32) (*models.Transaction, error)
	GetByCode(ctx context.Context, code string) (*models.Transaction, error)
	List(ctx context.Context) ([]models.Transaction, error)

	// ApproveByCode runs the whole approval unit inside a single database
	// transaction: lock the row by code, verify machine and confirmation
	// state, decrement slot stock and user balance, flip has_confirmed.
	// Either every mutation commits or none does.
	ApproveByCode(ctx context.Context, code string, machineID int32) (*models.ApprovalResult, error)

	// DeleteUnconfirmed removes the transaction only while it is still
	// unconfirmed; ErrAlreadyConfirmed otherwise.
	DeleteUnconfirmed(ctx context.Context, id int32) (*models.Transaction, error)
}
