package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string   `mapstructure:"PORT"`
	Env                 string   `mapstructure:"ENV"`
	DatabaseURL         string   `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins         []string `mapstructure:"CORS_ORIGINS"`
	PIIEncryptionKey    string   `mapstructure:"PII_ENCRYPTION_KEY"`
	PIIPreviousKeys     []string `mapstructure:"PII_PREVIOUS_KEYS"`
	GroupOfficeURL      string   `mapstructure:"GROUPOFFICE_URL"`
	GroupOfficeUsername string   `mapstructure:"GROUPOFFICE_USERNAME"`
	GroupOfficePassword string   `mapstructure:"GROUPOFFICE_PASSWORD"`
	GroupOfficeNotebook int      `mapstructure:"GROUPOFFICE_NOTEBOOK_ID"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("GROUPOFFICE_NOTEBOOK_ID", 1)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("PII_ENCRYPTION_KEY")
	v.BindEnv("PII_PREVIOUS_KEYS")
	v.BindEnv("GROUPOFFICE_URL")
	v.BindEnv("GROUPOFFICE_USERNAME")
	v.BindEnv("GROUPOFFICE_PASSWORD")
	v.BindEnv("GROUPOFFICE_NOTEBOOK_ID")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.PIIPreviousKeys == nil {
		keys := v.GetString("PII_PREVIOUS_KEYS")
		if keys != "" {
			cfg.PIIPreviousKeys = strings.Split(keys, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production
// PII_ENCRYPTION_KEY is required and must be a valid 64-character hex string
// (32 bytes when decoded).
func (c *Config) Validate() error {
	if c.IsProduction() && c.PIIEncryptionKey == "" {
		return fmt.Errorf("PII_ENCRYPTION_KEY is required in production")
	}
	if c.PIIEncryptionKey != "" {
		if _, err := c.EncryptionKey(); err != nil {
			return err
		}
	}

	for _, k := range c.PIIPreviousKeys {
		decoded, err := hex.DecodeString(k)
		if err != nil || len(decoded) != 32 {
			return fmt.Errorf("PII_PREVIOUS_KEYS entries must be 32-byte hex keys")
		}
	}

	if c.IsProduction() && c.GroupOfficeURL != "" {
		if c.GroupOfficeUsername == "" || c.GroupOfficePassword == "" {
			return fmt.Errorf("GROUPOFFICE_USERNAME and GROUPOFFICE_PASSWORD are required when GROUPOFFICE_URL is set")
		}
	}

	return nil
}

// EncryptionKey returns the decoded PII key. Outside production a missing key
// falls back to an all-zero key so local setups work without secrets.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.PIIEncryptionKey == "" {
		if c.IsProduction() {
			return nil, fmt.Errorf("PII_ENCRYPTION_KEY is required in production")
		}
		return make([]byte, 32), nil
	}
	keyBytes, err := hex.DecodeString(c.PIIEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("PII_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("PII_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
	}
	return keyBytes, nil
}

// PreviousKeys returns the decoded retired PII keys, oldest first. Data
// encrypted under these keys stays readable until it is re-encrypted.
func (c *Config) PreviousKeys() ([][]byte, error) {
	keys := make([][]byte, 0, len(c.PIIPreviousKeys))
	for _, k := range c.PIIPreviousKeys {
		decoded, err := hex.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("PII_PREVIOUS_KEYS entry is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("PII_PREVIOUS_KEYS entries must be 32 bytes, got %d", len(decoded))
		}
		keys = append(keys, decoded)
	}
	return keys, nil
}
