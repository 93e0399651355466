package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vendmach/vending-service/internal/models"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
)

type PostgresMachineRepository struct {
	db *sql.DB
}

func NewPostgresMachineRepository(db *sql.DB) *PostgresMachineRepository {
	return &PostgresMachineRepository{db: db}
}

// Create inserts the machine and, when slotCount > 0, its empty slots in the
// same database transaction so a half-created machine never becomes visible.
func (r *PostgresMachineRepository) Create(ctx context.Context, m *models.VendingMachine, slotCount int32) error {
	if m == nil {
		return fmt.Errorf("%w: machine is nil", pkgerrors.ErrInvalidInput)
	}
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	err = dbTx.QueryRowContext(ctx,
		`INSERT INTO vending_machines (name) VALUES ($1) RETURNING id, created_at`,
		m.Name).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vending machine: %w", err)
	}

	for i := int32(0); i < slotCount; i++ {
		var slot models.Slot
		err = dbTx.QueryRowContext(ctx,
			`INSERT INTO slots (index, stock, vending_machine_id) VALUES ($1, 0, $2) RETURNING id, created_at`,
			i, m.ID).Scan(&slot.ID, &slot.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create slot %d: %w", i, err)
		}
		slot.Index = i
		slot.VendingMachineID = m.ID
		m.Slots = append(m.Slots, slot)
	}

	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vending machine: %w", err)
	}
	return nil
}

func (r *PostgresMachineRepository) GetByID(ctx context.Context, id int32) (*models.VendingMachine, error) {
	var m models.VendingMachine
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM vending_machines WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrMachineNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get vending machine: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE vending_machine_id = $1 ORDER BY index`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get machine slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Slot
		if err := scanSlot(rows, &s); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		m.Slots = append(m.Slots, s)
	}
	return &m, rows.Err()
}

func (r *PostgresMachineRepository) List(ctx context.Context) ([]models.VendingMachine, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM vending_machines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list vending machines: %w", err)
	}
	defer rows.Close()

	machines := []models.VendingMachine{}
	for rows.Next() {
		var m models.VendingMachine
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vending machine: %w", err)
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

func (r *PostgresMachineRepository) Rename(ctx context.Context, id int32, name string) (*models.VendingMachine, error) {
	var m models.VendingMachine
	err := r.db.QueryRowContext(ctx,
		`UPDATE vending_machines SET name = $1 WHERE id = $2 RETURNING id, name, created_at`,
		name, id).Scan(&m.ID, &m.Name, &m.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrMachineNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to rename vending machine: %w", err)
	}
	return &m, nil
}

func (r *PostgresMachineRepository) Delete(ctx context.Context, id int32) (*models.VendingMachine, error) {
	var m models.VendingMachine
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM vending_machines WHERE id = $1 RETURNING id, name, created_at`, id).
		Scan(&m.ID, &m.Name, &m.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrMachineNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to delete vending machine: %w", err)
	}
	return &m, nil
}
