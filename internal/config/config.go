package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv       = "PAPERINGEST_CONFIG"
	logLevelEnv         = "LOG_LEVEL"
	feedURLEnv          = "FEED_URL"
	maxItemsEnv         = "MAX_ITEMS"
	enricherEndpointEnv = "ENRICHER_ENDPOINT"
	enricherAPIKeyEnv   = "ENRICHER_API_KEY"
	enricherModelEnv    = "ENRICHER_MODEL"
	sinkKindEnv         = "SINK_KIND"
	databaseDSNEnv      = "DATABASE_DSN"
	sqlitePathEnv       = "SQLITE_PATH"
	badgerPathEnv       = "BADGER_PATH"
	azureConnStringEnv  = "AZURE_STORAGE_CONNECTION_STRING"
	azureContainerEnv   = "AZURE_CONTAINER"
	s3BucketEnv         = "S3_BUCKET"
	awsRegionEnv        = "AWS_REGION"
	dynamoTableEnv      = "DYNAMODB_TABLE"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
)

// Sink kinds.
const (
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
	SinkBadger   = "badger"
	SinkDynamoDB = "dynamodb"
	SinkS3       = "s3"
	SinkAzure    = "azure"
)

// Blob key strategies.
const (
	BlobKeyTitle  = "title"
	BlobKeyRemote = "remote"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging" toml:"logging"`
	Pipeline      PipelineConfig     `yaml:"pipeline" toml:"pipeline"`
	Schedule      ScheduleConfig     `yaml:"schedule" toml:"schedule"`
	Sources       []SourceConfig     `yaml:"sources" toml:"sources"`
	Fetch         FetchConfig        `yaml:"fetch" toml:"fetch"`
	Enricher      EnricherConfig     `yaml:"enricher" toml:"enricher"`
	Sink          SinkConfig         `yaml:"sink" toml:"sink"`
	Notifications NotificationConfig `yaml:"notifications" toml:"notifications"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// PipelineConfig bounds a single run and selects optional stages.
type PipelineConfig struct {
	Name                string `yaml:"name" toml:"name"`
	MaxItems            int    `yaml:"maxItems" toml:"max_items"`
	MaxTextLength       int    `yaml:"maxTextLength" toml:"max_text_length"`
	StageTimeoutSeconds int    `yaml:"stageTimeoutSeconds" toml:"stage_timeout_seconds"`
	Download            bool   `yaml:"download" toml:"download"`
	Enrich              bool   `yaml:"enrich" toml:"enrich"`
	LockFile            string `yaml:"lockFile" toml:"lock_file"`
}

// StageTimeout converts the configured seconds into a duration.
func (p PipelineConfig) StageTimeout() time.Duration {
	return time.Duration(p.StageTimeoutSeconds) * time.Second
}

// ScheduleConfig defines whether and how often the pipeline repeats.
// A zero interval runs once and exits.
type ScheduleConfig struct {
	IntervalMinutes int            `yaml:"intervalMinutes" toml:"interval_minutes"`
	Timezone        string         `yaml:"timezone" toml:"timezone"`
	location        *time.Location `yaml:"-" toml:"-"`
}

// Interval converts the configured minutes into a duration.
func (s ScheduleConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Location resolves the scheduler timezone string to a time.Location.
func (s ScheduleConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// SourceConfig describes one feed with the scanner strategy that reads it.
type SourceConfig struct {
	Name    string            `yaml:"name" toml:"name"`
	Scanner string            `yaml:"scanner" toml:"scanner"`
	URL     string            `yaml:"url" toml:"url"`
	Options map[string]string `yaml:"options" toml:"options"`
}

// FetchConfig tunes document downloads.
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeoutSeconds" toml:"timeout_seconds"`
	MaxBytes       int64  `yaml:"maxBytes" toml:"max_bytes"`
	UserAgent      string `yaml:"userAgent" toml:"user_agent"`
}

// EnricherConfig defines how to contact the OpenAI-compatible model.
type EnricherConfig struct {
	Endpoint     string  `yaml:"endpoint" toml:"endpoint"`
	APIKey       string  `yaml:"apiKey" toml:"api_key"`
	Model        string  `yaml:"model" toml:"model"`
	SystemPrompt string  `yaml:"systemPrompt" toml:"system_prompt"`
	Temperature  float64 `yaml:"temperature" toml:"temperature"`
	MaxTokens    int     `yaml:"maxTokens" toml:"max_tokens"`
}

// SinkConfig selects and configures the persistence backend.
type SinkConfig struct {
	Kind        string         `yaml:"kind" toml:"kind"`
	Table       string         `yaml:"table" toml:"table"`
	AutoMigrate bool           `yaml:"autoMigrate" toml:"auto_migrate"`
	BlobKey     string         `yaml:"blobKey" toml:"blob_key"`
	DSN         string         `yaml:"dsn" toml:"dsn"`
	SQLitePath  string         `yaml:"sqlitePath" toml:"sqlite_path"`
	BadgerPath  string         `yaml:"badgerPath" toml:"badger_path"`
	Azure       AzureConfig    `yaml:"azure" toml:"azure"`
	S3          S3Config       `yaml:"s3" toml:"s3"`
	DynamoDB    DynamoDBConfig `yaml:"dynamodb" toml:"dynamodb"`
}

// AzureConfig addresses a blob container.
type AzureConfig struct {
	ConnectionString string `yaml:"connectionString" toml:"connection_string"`
	Container        string `yaml:"container" toml:"container"`
}

// S3Config addresses a bucket; Endpoint is set for S3-compatible stores.
type S3Config struct {
	Bucket   string `yaml:"bucket" toml:"bucket"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
	Region   string `yaml:"region" toml:"region"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
}

// DynamoDBConfig addresses a table keyed by paper_id.
type DynamoDBConfig struct {
	Table  string `yaml:"table" toml:"table"`
	Region string `yaml:"region" toml:"region"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram" toml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken" toml:"bot_token"`
	ChatID   string `yaml:"chatId" toml:"chat_id"`
}

// IsBlob reports whether the sink stores objects rather than records.
func (s SinkConfig) IsBlob() bool {
	return s.Kind == SinkS3 || s.Kind == SinkAzure
}

// Load builds the configuration: defaults, then the optional file at path
// (or $PAPERINGEST_CONFIG), then environment overrides. It does not validate.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, cfg)
	default:
		err = yaml.Unmarshal(raw, cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(feedURLEnv); v != "" {
		// A single feed URL from the environment replaces the configured list.
		c.Sources = []SourceConfig{{Name: "feed", Scanner: "rss", URL: v}}
	}

	if v := os.Getenv(maxItemsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.MaxItems = n
		} else {
			log.Printf("config: ignoring %s=%q: %v", maxItemsEnv, v, err)
		}
	}

	if v := os.Getenv(enricherEndpointEnv); v != "" {
		c.Enricher.Endpoint = v
	}
	if v := os.Getenv(enricherAPIKeyEnv); v != "" {
		c.Enricher.APIKey = v
	}
	if v := os.Getenv(enricherModelEnv); v != "" {
		c.Enricher.Model = v
	}

	if v := os.Getenv(sinkKindEnv); v != "" {
		c.Sink.Kind = strings.ToLower(v)
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Sink.DSN = v
	}
	if v := os.Getenv(sqlitePathEnv); v != "" {
		c.Sink.SQLitePath = v
	}
	if v := os.Getenv(badgerPathEnv); v != "" {
		c.Sink.BadgerPath = v
	}
	if v := os.Getenv(azureConnStringEnv); v != "" {
		c.Sink.Azure.ConnectionString = v
	}
	if v := os.Getenv(azureContainerEnv); v != "" {
		c.Sink.Azure.Container = v
	}
	if v := os.Getenv(s3BucketEnv); v != "" {
		c.Sink.S3.Bucket = v
	}
	if v := os.Getenv(awsRegionEnv); v != "" {
		c.Sink.S3.Region = v
		c.Sink.DynamoDB.Region = v
	}
	if v := os.Getenv(dynamoTableEnv); v != "" {
		c.Sink.DynamoDB.Table = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Schedule.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Schedule.location = loc
}
