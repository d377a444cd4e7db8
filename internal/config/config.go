package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Lambda images ship without a zoneinfo database

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"desmoines-weekly-events/internal/extraction"
)

// Config aggregates runtime configuration for the refresh job, the API and the tools.
type Config struct {
	Region       RegionConfig       `yaml:"region"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	Gemini       GeminiConfig       `yaml:"gemini"`
	Ticketmaster TicketmasterConfig `yaml:"ticketmaster"`
	OpenWeather  OpenWeatherConfig  `yaml:"openweather"`
	Extraction   ExtractionConfig   `yaml:"extraction"`
	Storage      StorageConfig      `yaml:"storage"`
	HTTP         HTTPConfig         `yaml:"http"`
	Lambda       LambdaConfig       `yaml:"lambda"`
}

// RegionConfig describes the covered area
type RegionConfig struct {
	City        string  `yaml:"city"`
	State       string  `yaml:"state"`
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
	RadiusMiles int     `yaml:"radiusMiles"`
	Timezone    string  `yaml:"timezone"`
}

// OpenAIConfig contains chat completion settings for generated listings
type OpenAIConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"maxTokens"`
}

// GeminiConfig contains settings for generated local activities
type GeminiConfig struct {
	APIKey          string  `yaml:"apiKey"`
	Model           string  `yaml:"model"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"maxOutputTokens"`
}

// TicketmasterConfig contains the Discovery API key
type TicketmasterConfig struct {
	APIKey string `yaml:"apiKey"`
}

// OpenWeatherConfig contains the OpenWeather API key
type OpenWeatherConfig struct {
	APIKey string `yaml:"apiKey"`
}

// ExtractionConfig tunes parsing, validation and the retry budget
type ExtractionConfig struct {
	MinValidEvents   int                  `yaml:"minValidEvents"`
	MaxRetries       int                  `yaml:"maxRetries"`
	AttemptTimeout   time.Duration        `yaml:"attemptTimeout"`
	RequiredFields   int                  `yaml:"requiredFields"`
	KeepUnclassified bool                 `yaml:"keepUnclassified"`
	Sentinels        extraction.Sentinels `yaml:"sentinels"`
}

// StorageConfig names the S3 bucket and DynamoDB tables
type StorageConfig struct {
	Bucket             string `yaml:"bucket"`
	Region             string `yaml:"region"`
	SnapshotsTable     string `yaml:"snapshotsTable"`
	SubscriptionsTable string `yaml:"subscriptionsTable"`
}

// HTTPConfig controls the local server
type HTTPConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LambdaConfig names the functions the API can invoke
type LambdaConfig struct {
	RefreshFunctionName string `yaml:"refreshFunctionName"`
}

// Load reads an optional .env file, an optional YAML file at CONFIG_PATH,
// then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration for Des Moines
func Default() *Config {
	return &Config{
		Region: RegionConfig{
			City:        "Des Moines",
			State:       "Iowa",
			Latitude:    41.5868,
			Longitude:   -93.6250,
			RadiusMiles: 50,
			Timezone:    "America/Chicago",
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		Gemini: GeminiConfig{
			Model:           "gemini-2.5-flash",
			Temperature:     0.2,
			MaxOutputTokens: 2048,
		},
		Extraction: ExtractionConfig{
			MinValidEvents: extraction.DefaultMinValidEvents,
			MaxRetries:     extraction.DefaultMaxRetries,
			AttemptTimeout: extraction.DefaultAttemptTimeout,
			RequiredFields: 3,
			Sentinels:      extraction.DefaultSentinels(),
		},
		Storage: StorageConfig{
			Region:             "us-west-2",
			SnapshotsTable:     "weekly-events-snapshots",
			SubscriptionsTable: "weekly-events-subscriptions",
		},
		HTTP: HTTPConfig{
			Address:         ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Region.City, "REGION_CITY")
	setString(&cfg.Region.Timezone, "REGION_TIMEZONE")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAI.Model, "OPENAI_MODEL")
	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "GEMINI_MODEL")
	setString(&cfg.Ticketmaster.APIKey, "TICKETMASTER_API_KEY")
	setString(&cfg.OpenWeather.APIKey, "OPENWEATHER_API_KEY")
	setString(&cfg.Storage.Bucket, "S3_BUCKET_NAME")
	setString(&cfg.Storage.Region, "AWS_REGION")
	setString(&cfg.Storage.SnapshotsTable, "SNAPSHOTS_TABLE")
	setString(&cfg.Storage.SubscriptionsTable, "SUBSCRIPTIONS_TABLE")
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setString(&cfg.Lambda.RefreshFunctionName, "REFRESH_FUNCTION_NAME")

	if v := os.Getenv("REGION_RADIUS_MILES"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse REGION_RADIUS_MILES: %w", err)
		}
		cfg.Region.RadiusMiles = parsed
	}
	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		parsed, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("parse OPENAI_TEMPERATURE: %w", err)
		}
		cfg.OpenAI.Temperature = float32(parsed)
	}
	if v := os.Getenv("EXTRACTION_MIN_VALID_EVENTS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse EXTRACTION_MIN_VALID_EVENTS: %w", err)
		}
		cfg.Extraction.MinValidEvents = parsed
	}
	if v := os.Getenv("EXTRACTION_MAX_RETRIES"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse EXTRACTION_MAX_RETRIES: %w", err)
		}
		cfg.Extraction.MaxRetries = parsed
	}
	if v := os.Getenv("EXTRACTION_ATTEMPT_TIMEOUT"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse EXTRACTION_ATTEMPT_TIMEOUT: %w", err)
		}
		cfg.Extraction.AttemptTimeout = parsed
	}
	if v := os.Getenv("EXTRACTION_KEEP_UNCLASSIFIED"); v != "" {
		cfg.Extraction.KeepUnclassified = v == "1" || strings.EqualFold(v, "true")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks values that would otherwise fail at first use
func (c *Config) Validate() error {
	var errs []error
	if c.Region.RadiusMiles <= 0 {
		errs = append(errs, errors.New("region.radiusMiles must be positive"))
	}
	if _, err := time.LoadLocation(c.Region.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("region.timezone: %w", err))
	}
	if c.Extraction.MinValidEvents <= 0 {
		errs = append(errs, errors.New("extraction.minValidEvents must be positive"))
	}
	if c.Extraction.MaxRetries < 0 {
		errs = append(errs, errors.New("extraction.maxRetries must not be negative"))
	}
	if c.Extraction.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("extraction.attemptTimeout must be positive"))
	}
	if c.Extraction.RequiredFields < 1 || c.Extraction.RequiredFields > 4 {
		errs = append(errs, errors.New("extraction.requiredFields must be between 1 and 4"))
	}
	if c.HTTP.Address == "" {
		errs = append(errs, errors.New("http.address is required"))
	}
	return errors.Join(errs...)
}

// Area returns the city and state, e.g. "Des Moines, Iowa"
func (r RegionConfig) Area() string {
	if r.State == "" {
		return r.City
	}
	return r.City + ", " + r.State
}

// Location returns the configured timezone, or UTC if it cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Region.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ExtractionSettings returns the parser and validator configuration
func (c *Config) ExtractionSettings() extraction.Config {
	return extraction.Config{
		Sentinels:        c.Extraction.Sentinels,
		RequiredFields:   c.Extraction.RequiredFields,
		KeepUnclassified: c.Extraction.KeepUnclassified,
	}
}

// PromptBuilder returns the newsletter prompt builder for the region
func (c *Config) PromptBuilder() extraction.PromptBuilder {
	return extraction.PromptBuilder{Region: c.Region.City, RadiusMiles: c.Region.RadiusMiles}
}
