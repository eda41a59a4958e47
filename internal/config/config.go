// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Ledger       LedgerConfig
	ContentStore ContentStoreConfig
	Rewards      RewardsConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey string
	TokenTTL  int // in hours
}

// LedgerConfig describes the external chain node this service mirrors.
// ModuleAddress is the account that published the AdMarket module; all
// entry-point names are qualified against it.
type LedgerConfig struct {
	NodeURL           string
	ModuleAddress     string
	SenderAddress     string
	SubmitTimeout     int // in seconds
	FinalityTimeout   int // in seconds
	FinalityPollDelay int // in milliseconds
}

type ContentStoreConfig struct {
	APIURL        string
	GatewayURL    string
	UploadTimeout int // in seconds
	MaxFileSize   int64
}

// RewardsConfig parameterizes the accounting engine. UnitsPerToken is the
// fixed-point conversion ratio between tracked reward units and the display
// token. EnforceBudget and StrictReferential default to off; campaigns
// overspend and orphaned campaign rows are tolerated unless opted in.
type RewardsConfig struct {
	UnitsPerToken     int64
	EnforceBudget     bool
	StrictReferential bool
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "4000"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "admarket_mirror"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			TokenTTL:  getEnvAsInt("JWT_TOKEN_TTL", 168), // 7 days
		},
		Ledger: LedgerConfig{
			NodeURL:           getEnv("LEDGER_NODE_URL", "https://fullnode.devnet.aptoslabs.com"),
			ModuleAddress:     getEnv("LEDGER_MODULE_ADDRESS", ""),
			SenderAddress:     getEnv("LEDGER_SENDER_ADDRESS", ""),
			SubmitTimeout:     getEnvAsInt("LEDGER_SUBMIT_TIMEOUT", 30),
			FinalityTimeout:   getEnvAsInt("LEDGER_FINALITY_TIMEOUT", 60),
			FinalityPollDelay: getEnvAsInt("LEDGER_FINALITY_POLL_DELAY_MS", 500),
		},
		ContentStore: ContentStoreConfig{
			APIURL:        getEnv("IPFS_API_URL", "http://127.0.0.1:5001"),
			GatewayURL:    getEnv("IPFS_GATEWAY_URL", "https://ipfs.io"),
			UploadTimeout: getEnvAsInt("IPFS_UPLOAD_TIMEOUT", 120),
			MaxFileSize:   getEnvAsInt64("IPFS_MAX_FILE_SIZE", 200*1024*1024),
		},
		Rewards: RewardsConfig{
			UnitsPerToken:     getEnvAsInt64("REWARDS_UNITS_PER_APT", 100000),
			EnforceBudget:     getEnvAsBool("REWARDS_ENFORCE_BUDGET", false),
			StrictReferential: getEnvAsBool("REWARDS_STRICT_REFERENTIAL", false),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "dev-secret-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Ledger.ModuleAddress == "" && c.Environment == "production" {
		return fmt.Errorf("ledger module address is required in production")
	}

	if c.Rewards.UnitsPerToken <= 0 {
		return fmt.Errorf("rewards units-per-token ratio must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
