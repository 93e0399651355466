package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/vendmach/vending-service/internal/infrastructure/redis"
	"github.com/vendmach/vending-service/internal/models"
	"github.com/vendmach/vending-service/internal/repository"
	"go.opentelemetry.io/otel"
)

const inventoryCacheTTL = 5 * time.Minute

// InventoryService is the administrative surface over products, machines
// and slots. It never touches stock on behalf of a purchase; that is the
// ledger's job.
type InventoryService interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int32) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int32) (*models.Product, error)

	CreateMachine(ctx context.Context, name string, slotCount int32) (*models.VendingMachine, error)
	GetMachine(ctx context.Context, id int32) (*models.VendingMachine, error)
	ListMachines(ctx context.Context) ([]models.VendingMachine, error)
	RenameMachine(ctx context.Context, id int32, name string) (*models.VendingMachine, error)
	DeleteMachine(ctx context.Context, id int32) (*models.VendingMachine, error)

	CreateSlot(ctx context.Context, s *models.Slot) error
	GetSlot(ctx context.Context, id int32) (*models.Slot, error)
	ListSlots(ctx context.Context) ([]models.Slot, error)
	ListSlotsByMachine(ctx context.Context, machineID int32, productName string) ([]models.SlotDetails, error)
	UpdateSlot(ctx context.Context, s *models.Slot) error
	AssignProduct(ctx context.Context, slotID int32, productID *int32, stock int32) (*models.Slot, error)
	DeleteSlot(ctx context.Context, id int32) (*models.Slot, error)
}

type inventoryService struct {
	productRepo repository.ProductRepository
	machineRepo repository.MachineRepository
	slotRepo    repository.SlotRepository
	redisClient redis.RedisClient
}

func NewInventoryService(
	productRepo repository.ProductRepository,
	machineRepo repository.MachineRepository,
	slotRepo repository.SlotRepository,
	redisClient redis.RedisClient,
) *inventoryService {
	return &inventoryService{
		productRepo: productRepo,
		machineRepo: machineRepo,
		slotRepo:    slotRepo,
		redisClient: redisClient,
	}
}

func (s *inventoryService) invalidateMachine(ctx context.Context, machineID int32) {
	if err := s.redisClient.Del(ctx, redis.InventoryKey(machineID)); err != nil {
		slog.Error("failed to invalidate machine cache", "vending_machine_id", machineID, "error", err)
	}
}

func (s *inventoryService) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.productRepo.Create(ctx, p)
}

func (s *inventoryService) GetProduct(ctx context.Context, id int32) (*models.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

func (s *inventoryService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.productRepo.List(ctx)
}

func (s *inventoryService) UpdateProduct(ctx context.Context, p *models.Product) error {
	return s.productRepo.Update(ctx, p)
}

func (s *inventoryService) DeleteProduct(ctx context.Context, id int32) (*models.Product, error) {
	return s.productRepo.Delete(ctx, id)
}

func (s *inventoryService) CreateMachine(ctx context.Context, name string, slotCount int32) (*models.VendingMachine, error) {
	tracer := otel.Tracer("inventory-service")
	ctx, span := tracer.Start(ctx, "CreateMachine")
	defer span.End()

	m := &models.VendingMachine{Name: name}
	if err := s.machineRepo.Create(ctx, m, slotCount); err != nil {
		span.RecordError(err)
		return nil, err
	}
	slog.Info("vending machine created", "vending_machine_id", m.ID, "name", name, "slot_count", slotCount)
	return m, nil
}

// GetMachine serves the machine with its slots from Redis when possible;
// the Kafka consumer and the mutating paths below drop the cached entry.
func (s *inventoryService) GetMachine(ctx context.Context, id int32) (*models.VendingMachine, error) {
	tracer := otel.Tracer("inventory-service")
	ctx, span := tracer.Start(ctx, "GetMachine")
	defer span.End()

	key := redis.InventoryKey(id)
	cached, err := s.redisClient.Get(ctx, key)
	if err == nil {
		var m models.VendingMachine
		if err := json.Unmarshal([]byte(cached), &m); err == nil {
			return &m, nil
		}
		slog.Error("failed to unmarshal cached machine", "vending_machine_id", id, "error", err)
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Error("failed to read machine cache", "vending_machine_id", id, "error", err)
	}

	m, err := s.machineRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if machineBytes, err := json.Marshal(m); err == nil {
		if err := s.redisClient.Set(ctx, key, string(machineBytes), inventoryCacheTTL); err != nil {
			slog.Error("failed to cache machine", "vending_machine_id", id, "error", err)
		}
	}
	return m, nil
}

func (s *inventoryService) ListMachines(ctx context.Context) ([]models.VendingMachine, error) {
	return s.machineRepo.List(ctx)
}

func (s *inventoryService) RenameMachine(ctx context.Context, id int32, name string) (*models.VendingMachine, error) {
	m, err := s.machineRepo.Rename(ctx, id, name)
	if err != nil {
		return nil, err
	}
	s.invalidateMachine(ctx, id)
	return m, nil
}

func (s *inventoryService) DeleteMachine(ctx context.Context, id int32) (*models.VendingMachine, error) {
	m, err := s.machineRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateMachine(ctx, id)
	return m, nil
}

func (s *inventoryService) CreateSlot(ctx context.Context, slot *models.Slot) error {
	if err := s.slotRepo.Create(ctx, slot); err != nil {
		return err
	}
	s.invalidateMachine(ctx, slot.VendingMachineID)
	return nil
}

func (s *inventoryService) GetSlot(ctx context.Context, id int32) (*models.Slot, error) {
	return s.slotRepo.GetByID(ctx, id)
}

func (s *inventoryService) ListSlots(ctx context.Context) ([]models.Slot, error) {
	return s.slotRepo.List(ctx)
}

func (s *inventoryService) ListSlotsByMachine(ctx context.Context, machineID int32, productName string) ([]models.SlotDetails, error) {
	return s.slotRepo.ListByMachine(ctx, machineID, productName)
}

func (s *inventoryService) UpdateSlot(ctx context.Context, slot *models.Slot) error {
	if err := s.slotRepo.Update(ctx, slot); err != nil {
		return err
	}
	s.invalidateMachine(ctx, slot.VendingMachineID)
	return nil
}

func (s *inventoryService) AssignProduct(ctx context.Context, slotID int32, productID *int32, stock int32) (*models.Slot, error) {
	slot, err := s.slotRepo.AssignProduct(ctx, slotID, productID, stock)
	if err != nil {
		return nil, err
	}
	s.invalidateMachine(ctx, slot.VendingMachineID)
	return slot, nil
}

func (s *inventoryService) DeleteSlot(ctx context.Context, id int32) (*models.Slot, error) {
	slot, err := s.slotRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateMachine(ctx, slot.VendingMachineID)
	return slot, nil
}
