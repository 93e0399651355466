package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vendmach/vending-service/internal/models"
	"github.com/vendmach/vending-service/internal/repository"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
)

type PostgresSlotRepository struct {
	db *sql.DB
}

func NewPostgresSlotRepository(db *sql.DB) *PostgresSlotRepository {
	return &PostgresSlotRepository{db: db}
}

const slotColumns = `id, index, stock, product_id, vending_machine_id, created_at`

func scanSlot(row interface{ Scan(...interface{}) error }, s *models.Slot) error {
	return row.Scan(&s.ID, &s.Index, &s.Stock, &s.ProductID, &s.VendingMachineID, &s.CreatedAt)
}

func (r *PostgresSlotRepository) Create(ctx context.Context, s *models.Slot) error {
	if s == nil {
		return fmt.Errorf("%w: slot is nil", pkgerrors.ErrInvalidInput)
	}
	if s.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", pkgerrors.ErrInvalidInput)
	}
	query := `INSERT INTO slots (index, stock, product_id, vending_machine_id)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, s.Index, s.Stock, s.ProductID, s.VendingMachineID).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (r *PostgresSlotRepository) GetByID(ctx context.Context, id int32) (*models.Slot, error) {
	var s models.Slot
	err := scanSlot(r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id), &s)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrSlotNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &s, nil
}

// GetForPurchase loads the slot together with the assigned product's price,
// in one query, for the availability check at transaction creation.
func (r *PostgresSlotRepository) GetForPurchase(ctx context.Context, id int32) (*repository.SlotPurchaseView, error) {
	query := `
		SELECT s.id, s.index, s.stock, s.product_id, s.vending_machine_id, s.created_at,
		       COALESCE(p.price, 0)
		FROM slots s
		LEFT JOIN products p ON p.id = s.product_id
		WHERE s.id = $1`
	var view repository.SlotPurchaseView
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&view.Slot.ID, &view.Slot.Index, &view.Slot.Stock, &view.Slot.ProductID,
		&view.Slot.VendingMachineID, &view.Slot.CreatedAt, &view.ProductPrice,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrSlotNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get slot for purchase: %w", err)
	}
	return &view, nil
}

func (r *PostgresSlotRepository) List(ctx context.Context) ([]models.Slot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+slotColumns+` FROM slots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	slots := []models.Slot{}
	for rows.Next() {
		var s models.Slot
		if err := scanSlot(rows, &s); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *PostgresSlotRepository) ListByMachine(ctx context.Context, machineID int32, productName string) ([]models.SlotDetails, error) {
	query := `
		SELECT s.id, s.index, s.stock, s.product_id, s.vending_machine_id, s.created_at,
		       p.id, p.name, p.price, p.image, p.created_at
		FROM slots s
		LEFT JOIN products p ON p.id = s.product_id
		WHERE s.vending_machine_id = $1
		  AND ($2 = '' OR p.name ILIKE '%' || $2 || '%')
		ORDER BY s.index`
	rows, err := r.db.QueryContext(ctx, query, machineID, productName)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots by machine: %w", err)
	}
	defer rows.Close()

	slots := []models.SlotDetails{}
	for rows.Next() {
		var d models.SlotDetails
		var pID, pPrice sql.NullInt32
		var pName, pImage sql.NullString
		var pCreated sql.NullTime
		err := rows.Scan(&d.ID, &d.Index, &d.Stock, &d.ProductID, &d.VendingMachineID, &d.CreatedAt,
			&pID, &pName, &pPrice, &pImage, &pCreated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot details: %w", err)
		}
		if pID.Valid {
			d.Product = &models.Product{
				ID:        pID.Int32,
				Name:      pName.String,
				Price:     pPrice.Int32,
				Image:     pImage.String,
				CreatedAt: pCreated.Time,
			}
		}
		slots = append(slots, d)
	}
	return slots, rows.Err()
}

func (r *PostgresSlotRepository) Update(ctx context.Context, s *models.Slot) error {
	if s == nil {
		return fmt.Errorf("%w: slot is nil", pkgerrors.ErrInvalidInput)
	}
	if s.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", pkgerrors.ErrInvalidInput)
	}
	query := `UPDATE slots SET index = $1, stock = $2, product_id = $3, vending_machine_id = $4
		WHERE id = $5 RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, s.Index, s.Stock, s.ProductID, s.VendingMachineID, s.ID).
		Scan(&s.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return pkgerrors.ErrSlotNotFound
	case err != nil:
		return fmt.Errorf("failed to update slot: %w", err)
	}
	return nil
}

func (r *PostgresSlotRepository) AssignProduct(ctx context.Context, slotID int32, productID *int32, stock int32) (*models.Slot, error) {
	if stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", pkgerrors.ErrInvalidInput)
	}
	query := `UPDATE slots SET product_id = $1, stock = $2 WHERE id = $3 RETURNING ` + slotColumns
	var s models.Slot
	err := scanSlot(r.db.QueryRowContext(ctx, query, productID, stock, slotID), &s)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrSlotNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to assign product to slot: %w", err)
	}
	return &s, nil
}

func (r *PostgresSlotRepository) Delete(ctx context.Context, id int32) (*models.Slot, error) {
	var s models.Slot
	err := scanSlot(r.db.QueryRowContext(ctx, `DELETE FROM slots WHERE id = $1 RETURNING `+slotColumns, id), &s)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrSlotNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to delete slot: %w", err)
	}
	return &s, nil
}
