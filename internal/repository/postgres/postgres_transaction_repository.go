package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/vendmach/vending-service/internal/infrastructure/observability"
	"github.com/vendmach/vending-service/internal/models"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

const transactionColumns = `id, code, user_id, slot_id, product_id, vending_machine_id, has_confirmed, created_at`

func scanTransaction(row interface{ Scan(...interface{}) error }, tx *models.Transaction) error {
	return row.Scan(&tx.ID, &tx.Code, &tx.UserID, &tx.SlotID, &tx.ProductID, &tx.VendingMachineID, &tx.HasConfirmed, &tx.CreatedAt)
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "CreateTransaction")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateTransaction", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateTransaction").Observe(time.Since(start).Seconds())
	}()

	if tx == nil {
		err = fmt.Errorf("%w: transaction is nil", pkgerrors.ErrInvalidInput)
		return err
	}
	if len(tx.Code) != 8 {
		err = fmt.Errorf("%w: code must be 8 digits", pkgerrors.ErrInvalidInput)
		slog.Error("invalid redemption code", "method", "Create", "code_len", len(tx.Code))
		return err
	}

	span.SetAttributes(
		attribute.Int("user_id", int(tx.UserID)),
		attribute.Int("slot_id", int(tx.SlotID)),
		attribute.Int("vending_machine_id", int(tx.VendingMachineID)),
	)

	query := `INSERT INTO transactions (code, user_id, slot_id, product_id, vending_machine_id, has_confirmed)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query, tx.Code, tx.UserID, tx.SlotID, tx.ProductID, tx.VendingMachineID).
		Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			slog.Warn("redemption code collision", "method", "Create", "code", tx.Code)
			err = pkgerrors.ErrCodeCollision
			return err
		}
		slog.Error("failed to create transaction", "method", "Create", "user_id", tx.UserID, "slot_id", tx.SlotID, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	slog.Info("transaction created", "method", "Create", "id", tx.ID, "user_id", tx.UserID, "slot_id", tx.SlotID)
	return nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id int32) (*models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "GetTransactionByID")
	span.SetAttributes(attribute.Int("transaction_id", int(id)))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetTransactionByID", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetTransactionByID").Observe(time.Since(start).Seconds())
	}()

	var tx models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	err = scanTransaction(r.db.QueryRowContext(ctx, query, id), &tx)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrTransactionNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get transaction", "method", "GetByID", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction by id: %w", err)
	}
	return &tx, nil
}

func (r *PostgresTransactionRepository) GetByCode(ctx context.Context, code string) (*models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "GetTransactionByCode")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetTransactionByCode", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetTransactionByCode").Observe(time.Since(start).Seconds())
	}()

	var tx models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE code = $1`
	err = scanTransaction(r.db.QueryRowContext(ctx, query, code), &tx)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrTransactionNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get transaction", "method", "GetByCode", "error", err)
		return nil, fmt.Errorf("failed to get transaction by code: %w", err)
	}
	return &tx, nil
}

func (r *PostgresTransactionRepository) List(ctx context.Context) ([]models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "ListTransactions")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ListTransactions", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ListTransactions").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Error("failed to list transactions", "method", "List", "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		if err = scanTransaction(rows, &tx); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// ApproveByCode is the ledger's integrity-critical unit. The confirm flag,
// the stock decrement and the balance decrement commit together or not at
// all. The transaction row is locked first so two concurrent approvals of
// the same code serialize, and the conditional stock update guarantees a
// slot with one unit left admits exactly one winner.
func (r *PostgresTransactionRepository) ApproveByCode(ctx context.Context, code string, machineID int32) (*models.ApprovalResult, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "ApproveTransaction")
	span.SetAttributes(attribute.Int("vending_machine_id", int(machineID)))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ApproveTransaction", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ApproveTransaction").Observe(time.Since(start).Seconds())
	}()

	dbTx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		slog.Error("failed to begin transaction", "method", "ApproveByCode", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	var tx models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE code = $1 FOR UPDATE`
	err = scanTransaction(dbTx.QueryRowContext(ctx, query, code), &tx)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrTransactionNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to lock transaction", "method", "ApproveByCode", "error", err)
		return nil, fmt.Errorf("failed to lock transaction: %w", err)
	}

	if tx.VendingMachineID != machineID {
		err = pkgerrors.ErrWrongMachine
		slog.Warn("approval at wrong machine", "transaction_id", tx.ID, "expected_machine", tx.VendingMachineID, "got_machine", machineID)
		return nil, err
	}
	if tx.HasConfirmed {
		err = pkgerrors.ErrAlreadyConfirmed
		return nil, err
	}

	var product models.Product
	err = dbTx.QueryRowContext(ctx, `SELECT id, name, price FROM products WHERE id = $1`, tx.ProductID).
		Scan(&product.ID, &product.Name, &product.Price)
	if err != nil {
		slog.Error("failed to load product", "method", "ApproveByCode", "product_id", tx.ProductID, "error", err)
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	var newStock, slotIndex int32
	err = dbTx.QueryRowContext(ctx,
		`UPDATE slots SET stock = stock - 1 WHERE id = $1 AND stock > 0 RETURNING stock, index`,
		tx.SlotID).Scan(&newStock, &slotIndex)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrOutOfStock
		slog.Warn("slot out of stock at approval", "transaction_id", tx.ID, "slot_id", tx.SlotID)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to decrement stock", "method", "ApproveByCode", "slot_id", tx.SlotID, "error", err)
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	var newBalance int32
	err = dbTx.QueryRowContext(ctx,
		`UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1 RETURNING balance`,
		product.Price, tx.UserID).Scan(&newBalance)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrInsufficientFunds
		slog.Warn("balance below price at approval", "transaction_id", tx.ID, "user_id", tx.UserID, "price", product.Price)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to decrement balance", "method", "ApproveByCode", "user_id", tx.UserID, "error", err)
		return nil, fmt.Errorf("failed to decrement balance: %w", err)
	}

	_, err = dbTx.ExecContext(ctx, `UPDATE transactions SET has_confirmed = TRUE WHERE id = $1`, tx.ID)
	if err != nil {
		slog.Error("failed to confirm transaction", "method", "ApproveByCode", "transaction_id", tx.ID, "error", err)
		return nil, fmt.Errorf("failed to confirm transaction: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit approval", "method", "ApproveByCode", "transaction_id", tx.ID, "error", err)
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	tx.HasConfirmed = true
	slog.Info("transaction approved", "transaction_id", tx.ID, "user_id", tx.UserID, "slot_id", tx.SlotID, "new_stock", newStock, "new_balance", newBalance)
	return &models.ApprovalResult{
		Transaction: tx,
		Dispense: models.DispenseInfo{
			SlotID:       tx.SlotID,
			SlotIndex:    slotIndex,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductPrice: product.Price,
		},
		NewStock:   newStock,
		NewBalance: newBalance,
	}, nil
}

func (r *PostgresTransactionRepository) DeleteUnconfirmed(ctx context.Context, id int32) (*models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "DeleteTransaction")
	span.SetAttributes(attribute.Int("transaction_id", int(id)))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("DeleteTransaction", status).Inc()
		observability.RepositoryDuration.WithLabelValues("DeleteTransaction").Observe(time.Since(start).Seconds())
	}()

	var tx models.Transaction
	query := `DELETE FROM transactions WHERE id = $1 AND has_confirmed = FALSE RETURNING ` + transactionColumns
	err = scanTransaction(r.db.QueryRowContext(ctx, query, id), &tx)
	if stderrors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing row from a confirmed one.
		var confirmed bool
		checkErr := r.db.QueryRowContext(ctx, `SELECT has_confirmed FROM transactions WHERE id = $1`, id).Scan(&confirmed)
		if stderrors.Is(checkErr, sql.ErrNoRows) {
			err = pkgerrors.ErrTransactionNotFound
			return nil, err
		}
		if checkErr != nil {
			err = checkErr
			return nil, fmt.Errorf("failed to delete transaction: %w", err)
		}
		err = pkgerrors.ErrAlreadyConfirmed
		return nil, err
	}
	if err != nil {
		slog.Error("failed to delete transaction", "method", "DeleteUnconfirmed", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}

	slog.Info("transaction cancelled", "transaction_id", id, "user_id", tx.UserID)
	return &tx, nil
}
