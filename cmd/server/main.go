package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vendmach/vending-service/internal/api"
	"github.com/vendmach/vending-service/internal/config"
	"github.com/vendmach/vending-service/internal/infrastructure/kafka"
	"github.com/vendmach/vending-service/internal/infrastructure/redis"
	"github.com/vendmach/vending-service/internal/observability"
	core "github.com/vendmach/vending-service/internal/repository/postgres"
	service "github.com/vendmach/vending-service/internal/services"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown := observability.Setup("vending-service")
	defer shutdown(context.Background())

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	userRepo := core.NewPostgresUserRepository(db)
	productRepo := core.NewPostgresProductRepository(db)
	machineRepo := core.NewPostgresMachineRepository(db)
	slotRepo := core.NewPostgresSlotRepository(db)
	transactionRepo := core.NewPostgresTransactionRepository(db)

	redisClient, err := redis.NewClient(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	producer := kafka.NewProducer([]string{cfg.KafkaBroker})
	defer producer.Close()

	ledger := service.NewLedgerService(transactionRepo, slotRepo, userRepo, producer)
	accounts := service.NewAccountService(userRepo, redisClient, producer, cfg.JWTSecret, cfg.TokenTTL)
	inventory := service.NewInventoryService(productRepo, machineRepo, slotRepo, redisClient)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumer := kafka.NewConsumer([]string{cfg.KafkaBroker}, "transactions", "vending-service-group", redisClient)
	go consumer.Consume(consumerCtx)
	defer consumer.Close()
	defer stopConsumer()

	handler := api.NewHandler(ledger, accounts, inventory, cfg.Debug)
	router := api.SetupRouter(handler, redisClient, cfg.JWTSecret)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
