package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"otomoto-watcher/internal/config"
	"otomoto-watcher/internal/kafka"
	"otomoto-watcher/internal/logging"

	"github.com/robfig/cron/v3"
)

func main() {
	daemon := flag.Bool("daemon", false, "run on the SCRAPE_CRON schedule instead of once")
	flag.Parse()

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

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service, err := NewWatcherService(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create watcher service: %v", err)
	}
	defer service.cleanup()

	if !*daemon {
		log.Println("Starting otomoto watcher run...")
		if _, err := service.runOnce(ctx); err != nil {
			service.cleanup()
			log.Fatalf("❌ Run failed: %v", err)
		}
		return
	}

	runDaemon(ctx, cancel, service)
}

func runDaemon(ctx context.Context, cancel context.CancelFunc, service *WatcherService) {
	cfg := service.cfg

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(cfg.Cron, func() {
		log.Println("Starting scheduled run...")
		if _, err := service.runOnce(ctx); err != nil {
			log.Printf("❌ Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		service.cleanup()
		log.Fatalf("Invalid SCRAPE_CRON %q: %v", cfg.Cron, err)
	}
	c.Start()

	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled() {
		service.consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ScrapeGroupID)
		go func() {
			defer close(consumerDone)
			log.Println("Starting Kafka consumer for scrape requests...")
			if err := service.consumer.ProcessEvents(ctx, service); err != nil {
				log.Printf("Consumer error: %v", err)
			}
			log.Println("Kafka consumer stopped")
		}()
	} else {
		close(consumerDone)
	}

	log.Println("✅ Watcher is running!")
	log.Printf("⏰ Schedule: %s", cfg.Cron)
	log.Println("Press Ctrl+C to stop...")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("Shutdown signal received, stopping Watcher")
	cancel()
	<-c.Stop().Done()
	<-consumerDone
	service.waitForManualRuns()
	log.Println("Watcher stopped gracefully")
}
