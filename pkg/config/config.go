// Package config provides configuration management for the budget sync
// service. It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Monzo MonzoConfig
	Data  DataConfig
	Slack SlackConfig
	Sync  SyncConfig
	Debug bool
}

// MonzoConfig represents Monzo API credentials and endpoints.
type MonzoConfig struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	APIURL       string
	AuthURL      string
}

// DataConfig represents local data file locations.
type DataConfig struct {
	Dir         string
	DBPath      string
	RulesPath   string
	BudgetsPath string
}

// SlackConfig represents notification delivery settings.
type SlackConfig struct {
	WebhookURL string
}

// SyncConfig represents scheduler and run tuning.
type SyncConfig struct {
	Interval   time.Duration
	RunTimeout time.Duration
	DigestHour int
}

// Load loads configuration from environment variables.
// It automatically loads a .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	interval, err := parseDurationEnv("SYNC_INTERVAL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	runTimeout, err := parseDurationEnv("SYNC_RUN_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	digestHour, err := parseIntEnv("DIGEST_HOUR", 8)
	if err != nil {
		return nil, err
	}
	if digestHour < 0 || digestHour > 23 {
		return nil, fmt.Errorf("DIGEST_HOUR must be between 0 and 23, got %d", digestHour)
	}

	config := &Config{
		Monzo: MonzoConfig{
			ClientID:     os.Getenv("MONZO_CLIENT_ID"),
			ClientSecret: os.Getenv("MONZO_CLIENT_SECRET"),
			AccessToken:  os.Getenv("MONZO_ACCESS_TOKEN"),
			RefreshToken: os.Getenv("MONZO_REFRESH_TOKEN"),
			APIURL:       getEnvOrDefault("MONZO_API_URL", "https://api.monzo.com"),
			AuthURL:      getEnvOrDefault("MONZO_AUTH_URL", "https://api.monzo.com"),
		},
		Data: DataConfig{
			Dir:         getEnvOrDefault("BUDGET_DATA_DIR", "./data"),
			DBPath:      os.Getenv("BUDGET_DB_PATH"),
			RulesPath:   os.Getenv("BUDGET_RULES_PATH"),
			BudgetsPath: os.Getenv("BUDGET_BUDGETS_PATH"),
		},
		Slack: SlackConfig{
			WebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		},
		Sync: SyncConfig{
			Interval:   interval,
			RunTimeout: runTimeout,
			DigestHour: digestHour,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate checks that the named configuration keys are set. Keys follow a
// section.field shape, e.g. "monzo.clientId".
func (c *Config) Validate(required ...string) error {
	var missing []string

	for _, key := range required {
		var value string
		switch key {
		case "monzo.clientId":
			value = c.Monzo.ClientID
		case "monzo.clientSecret":
			value = c.Monzo.ClientSecret
		case "monzo.accessToken":
			value = c.Monzo.AccessToken
		case "monzo.refreshToken":
			value = c.Monzo.RefreshToken
		case "monzo.apiUrl":
			value = c.Monzo.APIURL
		case "data.dir":
			value = c.Data.Dir
		case "slack.webhookUrl":
			value = c.Slack.WebhookURL
		default:
			return fmt.Errorf("unknown configuration key: %s", key)
		}
		if value == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}
	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}
	return parsed, nil
}
