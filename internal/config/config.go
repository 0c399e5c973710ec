package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	APIBaseURL          string
	EncryptionKeyBase64 string
	PrefsDBPath         string
	RequestTimeout      time.Duration
	InboxPageSize       int
	Timezone            string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("WEBMAIL_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	timeout, err := time.ParseDuration(getEnvOrDefault("WEBMAIL_REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEBMAIL_REQUEST_TIMEOUT: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnvOrDefault("WEBMAIL_INBOX_PAGE_SIZE", "50"))
	if err != nil || pageSize <= 0 {
		return nil, fmt.Errorf("invalid WEBMAIL_INBOX_PAGE_SIZE: must be a positive integer")
	}

	config := &Config{
		Environment:         env,
		APIBaseURL:          os.Getenv("WEBMAIL_API_URL"),
		EncryptionKeyBase64: os.Getenv("WEBMAIL_ENCRYPTION_KEY_BASE64"),
		PrefsDBPath:         getEnvOrDefault("WEBMAIL_PREFS_DB", "./data/webmail.db"),
		RequestTimeout:      timeout,
		InboxPageSize:       pageSize,
		Timezone:            getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("WEBMAIL_API_URL is required")
	}

	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("WEBMAIL_ENCRYPTION_KEY_BASE64 is required")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
