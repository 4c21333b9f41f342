package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"otomoto-watcher/internal/geo"
	"otomoto-watcher/internal/scraper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultSearchURL = "https://www.otomoto.pl/osobowe/volvo/v60--v60-cross-country--v90--v90-cross-country/od-2020?search%5Bfilter_enum_damaged%5D=0&search%5Bfilter_enum_fuel_type%5D=diesel&search%5Bfilter_float_engine_power%3Afrom%5D=190&search%5Bfilter_float_mileage%3Ato%5D=140000&search%5Bfilter_float_price%3Ato%5D=140000&search%5Border%5D=relevance_web&search%5Badvanced_search_expanded%5D=true"

const defaultConfigFile = "config.yaml"

// Warsaw city centre.
var DefaultReference = geo.Point{Lat: 52.2297, Lon: 21.0122}

type Config struct {
	Telegram TelegramConfig
	Search   SearchConfig
	State    StateConfig
	Geo      GeoConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Report   ReportConfig
	Cron     string
	LogFile  string
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

type SearchConfig struct {
	URL              string
	PageDelay        time.Duration
	RequestTimeout   time.Duration
	UserAgent        string
	DetailEnrichment bool
	Selectors        scraper.Selectors
}

type StateConfig struct {
	Backend     string
	SeenFile    string
	HistoryFile string
	DatabaseDSN string
}

type GeoConfig struct {
	Geocoder  string
	URL       string
	Reference geo.Point
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	Topic         string
	GroupID       string
	ScrapeGroupID string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type ReportConfig struct {
	Enabled bool
	Dir     string
	S3      S3Config
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// fileConfig is the optional YAML file. Only the search section and the
// reference point can be set there; anything left empty keeps its env value.
type fileConfig struct {
	Search struct {
		URL              string            `yaml:"url"`
		PageDelay        time.Duration     `yaml:"page_delay"`
		RequestTimeout   time.Duration     `yaml:"request_timeout"`
		UserAgent        string            `yaml:"user_agent"`
		DetailEnrichment *bool             `yaml:"detail_enrichment"`
		Selectors        scraper.Selectors `yaml:"selectors"`
	} `yaml:"search"`
	Reference *geo.Point `yaml:"reference"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	chatID, err := getEnvInt64("TELEGRAM_CHAT_ID")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			Token:  os.Getenv("TELEGRAM_TOKEN"),
			ChatID: chatID,
		},
		Search: SearchConfig{
			URL:              getEnv("SEARCH_URL", DefaultSearchURL),
			PageDelay:        getEnvDuration("PAGE_DELAY", time.Second),
			RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
			UserAgent:        os.Getenv("USER_AGENT"),
			DetailEnrichment: getEnvBool("DETAIL_ENRICHMENT", false),
		},
		State: StateConfig{
			Backend:     getEnv("STATE_BACKEND", "file"),
			SeenFile:    getEnv("SEEN_FILE", "sent_links.json"),
			HistoryFile: getEnv("HISTORY_FILE", "price_history.json"),
			DatabaseDSN: os.Getenv("DATABASE_DSN"),
		},
		Geo: GeoConfig{
			Geocoder: getEnv("GEOCODER", "none"),
			URL:      getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
			Reference: geo.Point{
				Lat: getEnvFloat("REFERENCE_LAT", DefaultReference.Lat),
				Lon: getEnvFloat("REFERENCE_LON", DefaultReference.Lon),
			},
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:         getEnv("KAFKA_TOPIC", "otomoto-events"),
			GroupID:       getEnv("KAFKA_GROUP_ID", "otomoto-relay"),
			ScrapeGroupID: getEnv("KAFKA_SCRAPE_GROUP_ID", "otomoto-watcher"),
		},
		Report: ReportConfig{
			Enabled: getEnvBool("REPORT_ENABLED", true),
			Dir:     getEnv("REPORT_DIR", "reports"),
			S3: S3Config{
				Bucket:          os.Getenv("REPORT_S3_BUCKET"),
				Region:          getEnv("REPORT_S3_REGION", "eu-central-1"),
				Endpoint:        os.Getenv("REPORT_S3_ENDPOINT"),
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				Prefix:          getEnv("REPORT_S3_PREFIX", "otomoto"),
			},
		},
		Cron:    getEnv("SCRAPE_CRON", "*/30 * * * *"),
		LogFile: os.Getenv("LOG_FILE"),
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile() error {
	path, explicit := os.LookupEnv("CONFIG_FILE")
	if !explicit || path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	s := fc.Search
	if s.URL != "" {
		c.Search.URL = s.URL
	}
	if s.PageDelay > 0 {
		c.Search.PageDelay = s.PageDelay
	}
	if s.RequestTimeout > 0 {
		c.Search.RequestTimeout = s.RequestTimeout
	}
	if s.UserAgent != "" {
		c.Search.UserAgent = s.UserAgent
	}
	if s.DetailEnrichment != nil {
		c.Search.DetailEnrichment = *s.DetailEnrichment
	}
	c.Search.Selectors = s.Selectors.Merge(c.Search.Selectors)
	if fc.Reference != nil {
		c.Geo.Reference = *fc.Reference
	}

	log.Printf("Loaded config file %s", path)
	return nil
}

// Validate checks the watcher's configuration.
func (c *Config) Validate() error {
	if c.Search.URL == "" {
		return errors.New("SEARCH_URL is empty")
	}
	if (c.Telegram.Token == "") != (c.Telegram.ChatID == 0) {
		return errors.New("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if !c.Telegram.Enabled() && !c.Kafka.Enabled() {
		return errors.New("no notification sink: set TELEGRAM_TOKEN/TELEGRAM_CHAT_ID or KAFKA_BROKERS")
	}

	switch c.State.Backend {
	case "file":
	case "postgres":
		if c.State.DatabaseDSN == "" {
			return errors.New("STATE_BACKEND=postgres requires DATABASE_DSN")
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.State.Backend)
	}

	switch c.Geo.Geocoder {
	case "none", "nominatim":
	default:
		return fmt.Errorf("unknown GEOCODER %q", c.Geo.Geocoder)
	}

	return nil
}

// ValidateRelay checks what the Kafka to Telegram relay needs.
func (c *Config) ValidateRelay() error {
	if !c.Telegram.Enabled() {
		return errors.New("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID are required")
	}
	if !c.Kafka.Enabled() {
		return errors.New("KAFKA_BROKERS is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
