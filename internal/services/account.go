package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vendmach/vending-service/internal/infrastructure/auth"
	"github.com/vendmach/vending-service/internal/infrastructure/kafka"
	"github.com/vendmach/vending-service/internal/infrastructure/redis"
	"github.com/vendmach/vending-service/internal/models"
	"github.com/vendmach/vending-service/internal/repository"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const usersTopic = "users"

// AccountService covers identity and user administration: sign-up, login
// with token issuance, and the admin-only user management surface.
type AccountService interface {
	SignUp(ctx context.Context, name, username, password, role string, machineID *int32) (*models.User, string, error)
	Login(ctx context.Context, username, password string) (*models.User, string, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int32) (*models.User, error)
	QueryUsers(ctx context.Context, q models.Query) ([]models.User, int32, error)
	DeleteUser(ctx context.Context, id int32) (*models.User, error)
	SetBalance(ctx context.Context, id, balance int32) (int32, error)
}

type accountService struct {
	userRepo    repository.UserRepository
	redisClient redis.RedisClient
	producer    kafka.KafkaProducer
	jwtSecret   string
	tokenTTL    time.Duration
}

func NewAccountService(
	userRepo repository.UserRepository,
	redisClient redis.RedisClient,
	producer kafka.KafkaProducer,
	jwtSecret string,
	tokenTTL time.Duration,
) *accountService {
	return &accountService{
		userRepo:    userRepo,
		redisClient: redisClient,
		producer:    producer,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
	}
}

// issueToken signs a token for the user and stores it in Redis so the auth
// middleware can treat the stored copy as the only valid one.
func (s *accountService) issueToken(ctx context.Context, user *models.User) (string, error) {
	token, err := auth.GenerateToken(s.jwtSecret, s.tokenTTL, user)
	if err != nil {
		slog.Error("failed to generate JWT", "user_id", user.ID, "error", err)
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	if err := s.redisClient.Set(ctx, redis.TokenKey(user.ID), token, s.tokenTTL); err != nil {
		slog.Error("failed to store token", "user_id", user.ID, "error", err)
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

func (s *accountService) SignUp(ctx context.Context, name, username, password, role string, machineID *int32) (*models.User, string, error) {
	tracer := otel.Tracer("account-service")
	ctx, span := tracer.Start(ctx, "SignUp")
	defer span.End()

	if name == "" || username == "" || password == "" {
		span.SetStatus(codes.Error, "missing fields")
		return nil, "", fmt.Errorf("%w: name, username and password are required", pkgerrors.ErrInvalidInput)
	}

	userRole := models.RoleUser
	if role != "" {
		parsed, err := models.ParseRole(role)
		if err != nil {
			span.SetStatus(codes.Error, "invalid role")
			return nil, "", fmt.Errorf("%w: %s", pkgerrors.ErrInvalidRole, role)
		}
		userRole = parsed
	}

	// A machine account is bound to exactly one vending machine; its token
	// carries that binding and Approve enforces it.
	if userRole == models.RoleMachine && machineID == nil {
		span.SetStatus(codes.Error, "machine account without machine id")
		return nil, "", fmt.Errorf("%w: machine accounts require vendingMachineId", pkgerrors.ErrInvalidInput)
	}
	if userRole != models.RoleMachine {
		machineID = nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to hash password", "username", username, "error", err)
		return nil, "", fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		Name:         name,
		Username:     username,
		PasswordHash: string(hash),
		Role:         userRole,
		MachineID:    machineID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user creation failed")
		slog.Error("failed to create user", "username", username, "error", err)
		return nil, "", err
	}

	token, err := s.issueToken(ctx, user)
	if err != nil {
		span.RecordError(err)
		return nil, "", err
	}

	event := map[string]interface{}{
		"event_id":   uuid.NewString(),
		"event_type": models.EventUserRegistered,
		"user_id":    user.ID,
		"username":   username,
		"role":       user.Role,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if eventBytes, err := json.Marshal(event); err == nil {
		if err := s.producer.Send(context.Background(), usersTopic, fmt.Sprintf("%d", user.ID), eventBytes); err != nil {
			slog.Error("failed to send user registration event", "user_id", user.ID, "error", err)
		}
	}

	slog.Info("user registered", "user_id", user.ID, "username", username, "role", user.Role)
	return user, token, nil
}

func (s *accountService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	tracer := otel.Tracer("account-service")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		slog.Warn("login failed", "username", username, "error", err)
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, "", pkgerrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("invalid password", "username", username)
		span.SetStatus(codes.Error, "password mismatch")
		return nil, "", pkgerrors.ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, user)
	if err != nil {
		span.RecordError(err)
		return nil, "", err
	}

	slog.Info("user logged in", "username", username, "user_id", user.ID)
	return user, token, nil
}

func (s *accountService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.List(ctx)
}

func (s *accountService) GetUser(ctx context.Context, id int32) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *accountService) QueryUsers(ctx context.Context, q models.Query) ([]models.User, int32, error) {
	return s.userRepo.Query(ctx, q)
}

// DeleteUser refuses to remove admin accounts.
func (s *accountService) DeleteUser(ctx context.Context, id int32) (*models.User, error) {
	tracer := otel.Tracer("account-service")
	ctx, span := tracer.Start(ctx, "DeleteUser")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		span.SetStatus(codes.Error, "admin protected")
		return nil, pkgerrors.ErrAdminProtected
	}

	deleted, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	// Revoke the deleted user's token immediately.
	if err := s.redisClient.Del(ctx, redis.TokenKey(id)); err != nil {
		slog.Error("failed to revoke token of deleted user", "user_id", id, "error", err)
	}
	slog.Info("user deleted", "user_id", id, "username", deleted.Username)
	return deleted, nil
}

func (s *accountService) SetBalance(ctx context.Context, id, balance int32) (int32, error) {
	tracer := otel.Tracer("account-service")
	ctx, span := tracer.Start(ctx, "SetBalance")
	defer span.End()

	newBalance, err := s.userRepo.SetBalance(ctx, id, balance)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	slog.Info("balance updated", "user_id", id, "balance", newBalance)
	return newBalance, nil
}
