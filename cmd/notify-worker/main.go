package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"formdrop-api/config"
	"formdrop-api/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	var maxAttempts int
	flag.IntVar(&maxAttempts, "max-attempts", 3, "delivery attempts before a message is dropped")
	flag.Parse()

	settings := config.LoadSettings()
	if settings.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is required for the notification worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := config.NewRedisClient(ctx, settings.RedisAddr, settings.RedisPassword)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer client.Close()

	mailer := config.LoadMailer()
	if !mailer.Configured() {
		log.Fatal("SMTP is not configured")
	}

	worker := services.NewQueueWorker(
		services.NewQueueNotifier(client, settings.NotifyQueueKey),
		services.NewMailNotifier(mailer),
		services.QueueWorkerConfig{
			SendTimeout: settings.NotifyTimeout,
			MaxAttempts: maxAttempts,
		},
	)

	log.Printf("notify-worker: consuming %s", settings.NotifyQueueKey)
	if err := worker.Run(ctx); err != nil {
		log.Fatalf("notify-worker: %v", err)
	}
	log.Println("notify-worker: stopped")
}
