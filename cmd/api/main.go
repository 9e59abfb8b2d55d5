package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buildstream-notify/internal/application/realtime"
	"github.com/buildstream-notify/internal/config"
	"github.com/buildstream-notify/internal/infrastructure/dynamo"
	jwtinfra "github.com/buildstream-notify/internal/infrastructure/jwt"
	s3infra "github.com/buildstream-notify/internal/infrastructure/s3"
	"github.com/buildstream-notify/internal/infrastructure/sns"
	transporthttp "github.com/buildstream-notify/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 archive for dead-letter payloads.
	s3Client := s3infra.NewClient(cfg)
	archive := s3infra.NewArchive(s3Client, cfg.DeadLetterBucket)

	// SNS ops alerts (optional — graceful fallback).
	var opsAlerts sns.AlertPublisher
	if p, err := sns.NewPublisher(cfg); err == nil {
		opsAlerts = p
	} else {
		log.Printf("WARN: ops alerts not available: %v", err)
	}

	hub := realtime.NewHub(cfg.StreamBuffer)

	deps := &transporthttp.Deps{
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		LookupRepo: dynamo.NewLookupRepo(dynamoClient,
			cfg.DynamoTables.Users, cfg.DynamoTables.Projects, cfg.DynamoTables.Conversations),
		DeadLetterRepo: dynamo.NewDeadLetterRepo(dynamoClient, cfg.DynamoTables.DeadLetters),
		Archive:        archive,
		OpsAlerts:      opsAlerts,
		Hub:            hub,
		JWTProvider:    jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the stream endpoint holds its connection open
		// indefinitely.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
