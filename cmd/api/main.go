package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gradientlab/ticketflow-go/internal/api/handlers"
	"github.com/gradientlab/ticketflow-go/internal/api/middleware"
	"github.com/gradientlab/ticketflow-go/internal/api/routes"
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

	var (
		repo     ticket.Repository
		producer broker.Producer
		consumer broker.Consumer
	)

	if cfg.StoreBackend == config.StoreMemory {
		// Single-process mode without Redis: in-memory store and broker,
		// worker forced on since nothing else could consume the events.
		mem := broker.NewMemoryBroker()
		repo = repository.NewMemoryTicketRepo()
		producer = mem
		consumer = mem.Consumer(cfg.ConsumerGroup, cfg.WorkerName)
		cfg.WorkerEmbedded = true
		log.Println("Running with in-memory store and broker")
	} else {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		producer = broker.NewRedisProducer(rdb, cfg.StreamKey)
		consumer = broker.NewRedisConsumer(rdb, cfg.StreamKey, cfg.ConsumerGroup, cfg.WorkerName)

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
	}

	svc := application.NewTicketService(repo, producer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan
		log.Println("Shutdown signal")
		cancel()
	}()

	if cfg.WorkerEmbedded {
		llmSvc := llm.NewService(llm.NewMockClient(
			time.Duration(cfg.MockLLMMinDelayMs)*time.Millisecond,
			time.Duration(cfg.MockLLMMaxDelayMs)*time.Millisecond,
		))
		proc := processor.New(svc, llmSvc, consumer)
		go func() {
			if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Processor error: %v", err)
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	router.Use(middleware.CORSMiddleware())

	routes.RegisterRoutes(router, cfg.AppName, handlers.NewTicketHandler(svc))

	port := ":" + cfg.ServerPort
	log.Printf("Starting API server on %s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
}
