package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"otomoto-watcher/internal/bot"
	"otomoto-watcher/internal/cache"
	"otomoto-watcher/internal/config"
	"otomoto-watcher/internal/database"
	"otomoto-watcher/internal/geo"
	"otomoto-watcher/internal/kafka"
	"otomoto-watcher/internal/pipeline"
	"otomoto-watcher/internal/report"
	"otomoto-watcher/internal/scraper"
	"otomoto-watcher/internal/state"
	"otomoto-watcher/internal/storage"
)

const geocoderUserAgent = "otomoto-watcher/1.0 (listing distance lookup)"

var errRunInProgress = errors.New("a run is already in progress")

type WatcherService struct {
	cfg *config.Config

	store    state.Store
	db       *database.DB
	redis    *cache.RedisCache
	geocoder geo.Geocoder
	notifier *bot.Notifier
	producer *kafka.Producer
	consumer *kafka.Consumer
	archive  *storage.S3Archive

	// ctx bounds manual runs; manual tracks them so shutdown can wait.
	ctx     context.Context
	running sync.Mutex
	manual  sync.WaitGroup
}

func NewWatcherService(ctx context.Context, cfg *config.Config) (*WatcherService, error) {
	log.Println("Initializing Watcher Service components...")
	s := &WatcherService{ctx: ctx, cfg: cfg, geocoder: geo.Noop{}}

	switch cfg.State.Backend {
	case "postgres":
		db, err := database.Connect(cfg.State.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		s.db = db
		s.store = state.NewSQLStore(db)
		log.Println("Database connected")
	default:
		s.store = state.NewFileStore(cfg.State.SeenFile, cfg.State.HistoryFile)
		log.Printf("State files: %s, %s", cfg.State.SeenFile, cfg.State.HistoryFile)
	}

	if cfg.Geo.Geocoder == "nominatim" {
		s.geocoder = geo.NewNominatim(cfg.Geo.URL, geocoderUserAgent, cfg.Search.RequestTimeout)
		log.Printf("Geocoder: %s", cfg.Geo.URL)
	}

	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("Warning: Redis connection failed: %v", err)
			log.Printf("Geocoding will only be cached per run")
			redisCache.Close()
		} else {
			s.redis = redisCache
			log.Println("Redis connected successfully")
		}
	}

	if cfg.Telegram.Enabled() {
		api, err := bot.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return nil, err
		}
		s.notifier = bot.NewNotifier(api, cfg.Telegram.ChatID)
	}

	if cfg.Kafka.Enabled() {
		s.producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Println("Kafka producer created")
	}

	if cfg.Report.Enabled && cfg.Report.S3.Bucket != "" {
		s3cfg := cfg.Report.S3
		archive, err := storage.NewS3Archive(ctx, storage.S3Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			Prefix:          s3cfg.Prefix,
		})
		if err != nil {
			return nil, err
		}
		s.archive = archive
		log.Printf("Reports archived to s3://%s/%s", s3cfg.Bucket, s3cfg.Prefix)
	}

	return s, nil
}

// runOnce builds a fresh crawler and geocode memo for this run only.
func (s *WatcherService) runOnce(ctx context.Context) (*pipeline.Result, error) {
	if !s.running.TryLock() {
		return nil, errRunInProgress
	}
	defer s.running.Unlock()

	crawler, err := scraper.NewPageCrawler(scraper.CrawlerConfig{
		SearchURL:      s.cfg.Search.URL,
		PageDelay:      s.cfg.Search.PageDelay,
		RequestTimeout: s.cfg.Search.RequestTimeout,
		UserAgent:      s.cfg.Search.UserAgent,
		Selectors:      s.cfg.Search.Selectors,
	})
	if err != nil {
		return nil, err
	}

	var details scraper.DetailSource
	if s.cfg.Search.DetailEnrichment {
		details = crawler
	}

	var distances scraper.DistanceResolver
	if s.cfg.Geo.Geocoder != "none" {
		layers := []geo.Cache{geo.NewMemoryCache()}
		if s.redis != nil {
			layers = append(layers, s.redis)
		}
		distances = geo.NewLocator(s.geocoder, geo.NewLayeredCache(layers...), s.cfg.Geo.Reference)
	}

	opts := pipeline.Options{
		Source:     crawler,
		Normalizer: scraper.NewNormalizer(scraper.NewExtractor(s.cfg.Search.Selectors), details, distances),
		Store:      s.store,
	}

	var sender report.Sender
	if s.notifier != nil {
		opts.Dispatchers = append(opts.Dispatchers, s.notifier)
		sender = s.notifier
	}
	if s.producer != nil {
		opts.Dispatchers = append(opts.Dispatchers, s.producer)
		opts.Summaries = s.producer
	}
	if s.cfg.Report.Enabled {
		var archive report.Archiver
		if s.archive != nil {
			archive = s.archive
		}
		opts.Reporter = report.NewGenerator(s.cfg.Report.Dir, sender, archive)
	}

	return pipeline.New(opts).Run(ctx)
}

func (s *WatcherService) HandleScrapeRequest(event kafka.ScrapeRequestEvent) error {
	log.Printf("Received scrape_request event from %v - triggering manual run", event.Timestamp)

	s.manual.Add(1)
	go func() {
		defer s.manual.Done()
		if _, err := s.runOnce(s.ctx); err != nil {
			log.Printf("❌ Manual run failed: %v", err)
		}
	}()
	return nil
}

// waitForManualRuns blocks until every run started by HandleScrapeRequest
// has returned.
func (s *WatcherService) waitForManualRuns() {
	s.manual.Wait()
}

func (s *WatcherService) HandleListingEvent(event kafka.ListingEvent) error {
	return nil
}

func (s *WatcherService) HandleRunSummary(event kafka.RunSummaryEvent) error {
	return nil
}

func (s *WatcherService) cleanup() {
	log.Println("Cleaning up resources...")

	if s.consumer != nil {
		if err := s.consumer.Close(); err != nil {
			log.Printf("Error closing consumer: %v", err)
		}
	}
	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			log.Printf("Error closing producer: %v", err)
		}
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	log.Println("Cleanup completed")
}
