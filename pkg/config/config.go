// Package config loads handler settings from the environment.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("config")

// Config holds everything the handlers need
type Config struct {
	NotionToken   string
	NotionURL     string
	NotionVersion string
	NotionTimeout time.Duration
	DatabaseID    string
	AuthSecret    string

	PageSize int
	MaxPages int

	TenantConfig     string
	TenantConfigFile string

	RedisURL string
	LogLevel string

	// SimpleEnabled exposes the email-only endpoint, for local testing
	SimpleEnabled bool
}

// SecretGetter fetches a decrypted secret by name
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

func getEnv(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warnw("ignoring invalid integer", "key", key, "value", v)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warnw("ignoring invalid boolean", "key", key, "value", v)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warnw("ignoring invalid duration", "key", key, "value", v)
		return def
	}
	return d
}

// FromEnv reads the plain environment
func FromEnv() Config {
	return Config{
		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionURL:        getEnv("NOTION_URL", "https://api.notion.com"),
		NotionVersion:    getEnv("NOTION_VERSION", "2022-06-28"),
		NotionTimeout:    getEnvDuration("NOTION_TIMEOUT", 10*time.Second),
		DatabaseID:       getEnv("NOTION_DATABASE_ID", ""),
		AuthSecret:       getEnv("AUTH_SECRET", ""),
		PageSize:         getEnvInt("PAGE_SIZE", 50),
		MaxPages:         getEnvInt("MAX_PAGES", 10),
		TenantConfig:     getEnv("TENANT_CONFIG", ""),
		TenantConfigFile: getEnv("TENANT_CONFIG_FILE", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		SimpleEnabled:    getEnvBool("SIMPLE_ENABLED", false),
	}
}

// Load reads the environment and replaces secrets named by *_PARAMETER variables
func Load(ctx context.Context, sg SecretGetter) (Config, error) {

	c := FromEnv()

	overrides := []struct {
		env string
		dst *string
	}{
		{env: "NOTION_TOKEN_PARAMETER", dst: &c.NotionToken},
		{env: "AUTH_SECRET_PARAMETER", dst: &c.AuthSecret},
	}

	for _, o := range overrides {
		name := getEnv(o.env, "")
		if name == "" {
			continue
		}
		if sg == nil {
			return c, fmt.Errorf("%v is set but no secret store is available", o.env)
		}
		v, err := sg.GetSecret(ctx, name)
		if err != nil {
			return c, fmt.Errorf("could not read %v: %w", o.env, err)
		}
		*o.dst = v
	}

	return c, nil
}

// Validate checks the values every handler requires
func (c Config) Validate(needSecret bool) error {

	var missing []string
	if c.NotionToken == "" {
		missing = append(missing, "NOTION_TOKEN")
	}
	if c.DatabaseID == "" {
		missing = append(missing, "NOTION_DATABASE_ID")
	}
	if needSecret && c.AuthSecret == "" {
		missing = append(missing, "AUTH_SECRET")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing environment variable: %v", strings.Join(missing, ", "))
	}
	return nil
}
