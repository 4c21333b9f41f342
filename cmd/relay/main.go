package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"otomoto-watcher/internal/bot"
	"otomoto-watcher/internal/config"
	"otomoto-watcher/internal/kafka"
	"otomoto-watcher/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogFile != "" {
		rw, err := logging.Setup(cfg.LogFile)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer rw.Close()
	}

	if err := cfg.ValidateRelay(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	api, err := bot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatal("Error creating bot:", err)
	}
	notifier := bot.NewNotifier(api, cfg.Telegram.ChatID)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Println("🔔 Starting Kafka consumer for notifications...")
		if err := consumer.ProcessEvents(ctx, notifier); err != nil {
			log.Printf("❌ Kafka consumer error: %v", err)
		}
	}()

	go bot.NewCommands(notifier, producer).Listen(ctx, api)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("Shutdown signal received, stopping relay")
}
