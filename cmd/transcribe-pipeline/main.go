package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/newm4n/pranoto.ai/pkg/cache"
	"github.com/newm4n/pranoto.ai/pkg/config"
	"github.com/newm4n/pranoto.ai/pkg/database"
	minioPkg "github.com/newm4n/pranoto.ai/pkg/minio"
	"github.com/newm4n/pranoto.ai/pkg/pipeline"
	"github.com/newm4n/pranoto.ai/pkg/rabbitmq"
	"github.com/newm4n/pranoto.ai/pkg/stages"
	"github.com/newm4n/pranoto.ai/pkg/toolrunner"
	"github.com/newm4n/pranoto.ai/pkg/types"
)

func main() {
	log.Println("=== Transcribe Pipeline Worker Starting ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}

	log.Printf("Config:\n")
	log.Printf("  RabbitMQ URL: %s\n", cfg.RabbitURL)
	log.Printf("  MinIO Endpoint: %s\n", cfg.MinioEndpoint)
	log.Printf("  Bucket Name: %s\n", cfg.BucketName)
	log.Printf("  PostgreSQL: %s:%s/%s\n", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	log.Printf("  Redis: %s:%s\n", cfg.RedisHost, cfg.RedisPort)
	log.Printf("  Scratch Dir: %s\n", cfg.ScratchDir)
	log.Printf("  Whisper Model: %s\n", cfg.WhisperModel)
	log.Printf("  Stages: %v\n", cfg.Stages)

	// Initialize PostgreSQL
	videos, err := database.NewPostgresStore(database.Config{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DBName:   cfg.PostgresDB,
		MaxPool:  cfg.PostgresMaxPool,
	})
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL: %s", err)
	}
	defer videos.Close()
	log.Println("✓ PostgreSQL connected")

	// Initialize Redis
	statusCache, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %s", err)
	}
	defer statusCache.Close()
	log.Println("✓ Redis connected")

	// Initialize MinIO client
	minioClient, err := minioPkg.InitClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO client: %s", err)
	}
	log.Println("✓ MinIO connected")

	store := minioPkg.NewStore(minioClient, cfg.BucketName)

	// Ensure bucket exists
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("Failed to ensure bucket exists: %s", err)
	}

	runner := toolrunner.NewRunner()
	orchestrator := pipeline.NewOrchestrator()
	defer orchestrator.Close()

	if cfg.HasStage(config.StageConvert) {
		producer, err := rabbitmq.NewProducer(cfg.RabbitURL, types.QueueAudioConverted)
		if err != nil {
			log.Fatalf("Failed to create producer: %s", err)
		}
		defer producer.Close()

		consumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, types.QueueVideoUploaded)
		if err != nil {
			log.Fatalf("Failed to create consumer: %s", err)
		}

		convert := stages.NewConvert(
			store,
			videos,
			statusCache,
			producer,
			runner,
			cfg.ScratchDir,
			cfg.FFmpegPath,
			cfg.ConvertTimeout,
		)
		orchestrator.Register(consumer, convert.Handle)
	}

	if cfg.HasStage(config.StageTranscribe) {
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, types.QueueAudioConverted)
		if err != nil {
			log.Fatalf("Failed to create consumer: %s", err)
		}

		transcribe := stages.NewTranscribe(
			store,
			videos,
			statusCache,
			runner,
			cfg.ScratchDir,
			cfg.WhisperPath,
			cfg.WhisperModel,
			cfg.TranscribeTimeout,
		)
		orchestrator.Register(consumer, transcribe.Handle)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\n[!] Shutdown signal received, closing...")
		cancel()
	}()

	log.Println("\n=== Transcribe Pipeline Worker Ready ===")
	if err := orchestrator.Run(ctx); err != nil {
		log.Fatalf("Pipeline stopped: %s", err)
	}
	log.Println("Pipeline stopped")
}
