package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gradientlab/ticketflow-go/internal/application"
	"github.com/gradientlab/ticketflow-go/internal/application/processor"
	"github.com/gradientlab/ticketflow-go/internal/broker"
	"github.com/gradientlab/ticketflow-go/internal/config"
	"github.com/gradientlab/ticketflow-go/internal/domain/ticket"
	"github.com/gradientlab/ticketflow-go/internal/llm"
	"github.com/gradientlab/ticketflow-go/internal/repository"
)

func main() {
	// Load configuration from environment variables and .env file
	cfg := config.LoadConfig()

	if cfg.StoreBackend == config.StoreMemory {
		// A standalone worker cannot share in-process state with the API.
		log.Fatal("STORE_BACKEND=memory only works with the embedded worker; run the api binary instead")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	var repo ticket.Repository
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		gormRepo := repository.NewGormTicketRepo(db)
		if err := gormRepo.AutoMigrate(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		repo = gormRepo
	default:
		repo = repository.NewRedisTicketRepo(rdb)
	}

	svc := application.NewTicketService(repo, broker.NewRedisProducer(rdb, cfg.StreamKey))
	llmSvc := llm.NewService(llm.NewMockClient(
		time.Duration(cfg.MockLLMMinDelayMs)*time.Millisecond,
		time.Duration(cfg.MockLLMMaxDelayMs)*time.Millisecond,
	))
	consumer := broker.NewRedisConsumer(rdb, cfg.StreamKey, cfg.ConsumerGroup, cfg.WorkerName)
	proc := processor.New(svc, llmSvc, consumer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan
		log.Println("Shutdown signal")
		cancel()
	}()

	log.Printf("Starting ticket worker %s (group %s)", cfg.WorkerName, cfg.ConsumerGroup)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("Processor error: %v", err)
	}
}
