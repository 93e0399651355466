package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/vendmach/vending-service/internal/infrastructure/kafka"
	"github.com/vendmach/vending-service/internal/models"
	"github.com/vendmach/vending-service/internal/repository"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// maxCodeAttempts bounds the generate-and-insert retry loop when a freshly
// drawn redemption code collides with a live transaction.
const maxCodeAttempts = 5

const transactionsTopic = "transactions"

// LedgerService owns the transaction lifecycle: creation against a stocked
// slot, lookup by redemption code, machine-side approval and cancellation.
// Approval is the only path that mutates stock and balance.
type LedgerService interface {
	Create(ctx context.Context, userID, slotID int32) (*models.Transaction, error)
	LookupByCode(ctx context.Context, code string) (*models.Transaction, error)
	Approve(ctx context.Context, code string, machineID int32) (*models.ApprovalResult, error)
	Cancel(ctx context.Context, id, actorID int32, actorRole models.Role) (*models.Transaction, error)
	List(ctx context.Context) ([]models.Transaction, error)
}

type ledgerService struct {
	transactionRepo repository.TransactionRepository
	slotRepo        repository.SlotRepository
	userRepo        repository.UserRepository
	producer        kafka.KafkaProducer
}

func NewLedgerService(
	transactionRepo repository.TransactionRepository,
	slotRepo repository.SlotRepository,
	userRepo repository.UserRepository,
	producer kafka.KafkaProducer,
) *ledgerService {
	return &ledgerService{
		transactionRepo: transactionRepo,
		slotRepo:        slotRepo,
		userRepo:        userRepo,
		producer:        producer,
	}
}

// newRedemptionCode draws an 8-digit numeric string uniformly from
// [10000000, 99999999].
func newRedemptionCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000000))
	if err != nil {
		return "", fmt.Errorf("failed to draw redemption code: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()+10000000), nil
}

func (s *ledgerService) publishEvent(eventType string, tx *models.Transaction) {
	event := models.TransactionEvent{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		TransactionID:    tx.ID,
		Code:             tx.Code,
		UserID:           tx.UserID,
		SlotID:           tx.SlotID,
		ProductID:        tx.ProductID,
		VendingMachineID: tx.VendingMachineID,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal transaction event", "event_type", eventType, "error", err)
		return
	}
	// Fire-and-forget: the ledger's state is already committed, a lost
	// event only delays cache invalidation.
	if err := s.producer.Send(context.Background(), transactionsTopic, event.EventID, eventBytes); err != nil {
		slog.Error("failed to send transaction event", "event_type", eventType, "transaction_id", tx.ID, "error", err)
	}
}

func (s *ledgerService) Create(ctx context.Context, userID, slotID int32) (*models.Transaction, error) {
	tracer := otel.Tracer("ledger-service")
	ctx, span := tracer.Start(ctx, "CreateTransaction")
	defer span.End()

	view, err := s.slotRepo.GetForPurchase(ctx, slotID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot lookup failed")
		slog.Error("failed to load slot", "slot_id", slotID, "error", err)
		return nil, err
	}
	// The availability check here is advisory only; approval re-checks
	// stock under a row lock and is the authoritative gate.
	if view.Slot.ProductID == nil || view.Slot.Stock <= 0 {
		span.SetStatus(codes.Error, "slot out of stock")
		return nil, pkgerrors.ErrOutOfStock
	}

	balance, err := s.userRepo.GetBalance(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "balance lookup failed")
		slog.Error("failed to load balance", "user_id", userID, "error", err)
		return nil, err
	}
	if balance < view.ProductPrice {
		span.SetStatus(codes.Error, "insufficient balance")
		slog.Warn("insufficient balance for purchase", "user_id", userID, "balance", balance, "price", view.ProductPrice)
		return nil, pkgerrors.ErrInsufficientFunds
	}

	tx := &models.Transaction{
		UserID:           userID,
		SlotID:           slotID,
		ProductID:        *view.Slot.ProductID,
		VendingMachineID: view.Slot.VendingMachineID,
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		tx.Code, err = newRedemptionCode()
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInternal, err)
		}
		err = s.transactionRepo.Create(ctx, tx)
		if stderrors.Is(err, pkgerrors.ErrCodeCollision) {
			slog.Warn("redemption code collision, retrying", "attempt", attempt+1)
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transaction insert failed")
			return nil, err
		}

		slog.Info("transaction created", "transaction_id", tx.ID, "user_id", userID, "slot_id", slotID)
		s.publishEvent(models.EventTransactionCreated, tx)
		return tx, nil
	}

	span.SetStatus(codes.Error, "code space exhausted")
	slog.Error("redemption code attempts exhausted", "user_id", userID, "slot_id", slotID, "attempts", maxCodeAttempts)
	return nil, pkgerrors.ErrCodeExhausted
}

func (s *ledgerService) LookupByCode(ctx context.Context, code string) (*models.Transaction, error) {
	tracer := otel.Tracer("ledger-service")
	ctx, span := tracer.Start(ctx, "LookupByCode")
	defer span.End()

	if code == "" {
		return nil, fmt.Errorf("%w: code is required", pkgerrors.ErrInvalidInput)
	}

	tx, err := s.transactionRepo.GetByCode(ctx, code)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return tx, nil
}

func (s *ledgerService) Approve(ctx context.Context, code string, machineID int32) (*models.ApprovalResult, error) {
	tracer := otel.Tracer("ledger-service")
	ctx, span := tracer.Start(ctx, "ApproveTransaction")
	defer span.End()

	if code == "" {
		return nil, fmt.Errorf("%w: code is required", pkgerrors.ErrInvalidInput)
	}

	result, err := s.transactionRepo.ApproveByCode(ctx, code, machineID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "approval failed")
		return nil, err
	}

	slog.Info("transaction approved",
		"transaction_id", result.Transaction.ID,
		"vending_machine_id", machineID,
		"slot_index", result.Dispense.SlotIndex,
		"new_stock", result.NewStock)
	s.publishEvent(models.EventTransactionApproved, &result.Transaction)
	return result, nil
}

func (s *ledgerService) Cancel(ctx context.Context, id, actorID int32, actorRole models.Role) (*models.Transaction, error) {
	tracer := otel.Tracer("ledger-service")
	ctx, span := tracer.Start(ctx, "CancelTransaction")
	defer span.End()

	tx, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	// Users may cancel only their own transactions; admins may cancel any.
	if actorRole != models.RoleAdmin && tx.UserID != actorID {
		span.SetStatus(codes.Error, "actor does not own transaction")
		slog.Warn("cancel forbidden", "transaction_id", id, "owner_id", tx.UserID, "actor_id", actorID)
		return nil, pkgerrors.ErrForbidden
	}

	deleted, err := s.transactionRepo.DeleteUnconfirmed(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	slog.Info("transaction cancelled", "transaction_id", id, "actor_id", actorID)
	s.publishEvent(models.EventTransactionCancelled, deleted)
	return deleted, nil
}

func (s *ledgerService) List(ctx context.Context) ([]models.Transaction, error) {
	tracer := otel.Tracer("ledger-service")
	ctx, span := tracer.Start(ctx, "ListTransactions")
	defer span.End()

	transactions, err := s.transactionRepo.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return transactions, nil
}
