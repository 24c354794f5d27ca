package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	AWS        AWSConfig        `yaml:"aws"`
	Payments   PaymentsConfig   `yaml:"payments"`
	Currency   CurrencyConfig   `yaml:"currency"`
	Redis      RedisConfig      `yaml:"redis"`
	AI         AIConfig         `yaml:"ai"`
	RateLimits RateLimitsConfig `yaml:"rate_limits"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AuthConfig selects how bearer tokens from the identity provider are verified.
// JWKSURL takes precedence; HMACSecret is meant for local development.
type AuthConfig struct {
	JWKSURL    string `yaml:"jwks_url"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
	HMACSecret string `yaml:"hmac_secret"`
}

// StorageConfig holds uploaded file storage configuration
type StorageConfig struct {
	Driver        string `yaml:"driver"` // s3 or local
	LocalDir      string `yaml:"local_dir"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// AWSConfig holds S3 configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
	PublicURL string `yaml:"public_url"`
}

// PaymentsConfig holds payment provider configuration
type PaymentsConfig struct {
	BaseURL      string `yaml:"base_url"`
	SecretKey    string `yaml:"secret_key"`
	WebhookHash  string `yaml:"webhook_hash"`
	RedirectURL  string `yaml:"redirect_url"`
	AutoComplete bool   `yaml:"auto_complete"`
}

// CurrencyConfig holds exchange rate configuration
type CurrencyConfig struct {
	APIURL     string        `yaml:"api_url"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// RedisConfig holds the optional shared cache configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AIConfig holds the text generation configuration
type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key"`
	Model        string `yaml:"model"`
}

// RateLimitsConfig holds per-client request budgets per window
type RateLimitsConfig struct {
	Auth         int `yaml:"auth_per_minute"`
	API          int `yaml:"api_per_minute"`
	Admin        int `yaml:"admin_per_minute"`
	Upload       int `yaml:"upload_per_hour"`
	Contact      int `yaml:"contact_per_hour"`
	PersonalRoom int `yaml:"personal_room_per_hour"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file, then applies defaults and
// environment overrides. A .env file in the working directory is loaded
// first if present. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = "uploads"
	}
	if c.Storage.PublicBaseURL == "" {
		c.Storage.PublicBaseURL = "/uploads"
	}
	if c.Payments.BaseURL == "" {
		c.Payments.BaseURL = "https://api.flutterwave.com/v3"
	}
	if c.Currency.APIURL == "" {
		c.Currency.APIURL = "https://api.exchangerate-api.com/v4/latest"
	}
	if c.Currency.TTL == 0 {
		c.Currency.TTL = time.Hour
	}
	if c.Currency.MaxEntries == 0 {
		c.Currency.MaxEntries = 32
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-1.5-flash"
	}
	rl := &c.RateLimits
	setDefault(&rl.Auth, 10)
	setDefault(&rl.API, 100)
	setDefault(&rl.Admin, 200)
	setDefault(&rl.Upload, 20)
	setDefault(&rl.Contact, 5)
	setDefault(&rl.PersonalRoom, 10)
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (c *Config) applyEnv() {
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Auth.JWKSURL, "JWKS_URL")
	setString(&c.Auth.Issuer, "AUTH_ISSUER")
	setString(&c.Auth.Audience, "AUTH_AUDIENCE")
	setString(&c.Auth.HMACSecret, "AUTH_HMAC_SECRET")
	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.AWS.Region, "AWS_REGION")
	setString(&c.AWS.S3Bucket, "AWS_S3_BUCKET")
	setString(&c.AWS.AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.AWS.SecretKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.AWS.Endpoint, "AWS_ENDPOINT")
	setString(&c.Payments.SecretKey, "FLW_SECRET_KEY")
	setString(&c.Payments.WebhookHash, "FLW_WEBHOOK_HASH")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.AI.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDefault(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
