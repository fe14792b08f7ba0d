// Package portal wires configuration, the tenant directory and the Notion client
// into the dependencies shared by every handler.
package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sayshey/clientportal/internal/client"
	"github.com/sayshey/clientportal/pkg/auth"
	"github.com/sayshey/clientportal/pkg/config"
	"github.com/sayshey/clientportal/pkg/enrich"
	"github.com/sayshey/clientportal/pkg/notion"
	"github.com/sayshey/clientportal/pkg/tenant"
)

var log = logging.Logger("portal")

// titleCacheEntries bounds the in-process title cache
const titleCacheEntries = 1024

// Env is everything a handler needs to serve a request
type Env struct {
	Config    config.Config
	Notion    *notion.Service
	Directory *tenant.Directory
	Keyring   *auth.Keyring
	Enricher  *enrich.Enricher
	Now       func() time.Time

	// Err is set when the function was deployed without a usable configuration
	Err error
}

// Ready reports whether the environment can serve requests
func (e *Env) Ready(needSecret bool) error {
	if e == nil {
		return fmt.Errorf("no environment")
	}
	if e.Err != nil {
		return e.Err
	}
	return e.Config.Validate(needSecret)
}

// Clock returns the current time
func (e *Env) Clock() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// New builds an Env from a loaded Config.
// Configuration problems are recorded on Err so handlers can answer with a 500.
func New(c config.Config) *Env {

	env := &Env{Config: c, Now: time.Now}

	if level := c.LogLevel; level != "" {
		if err := logging.SetLogLevel("*", level); err != nil {
			log.Warnw("ignoring invalid log level", "level", level)
		}
	}

	base, err := url.Parse(c.NotionURL)
	if err != nil {
		env.Err = fmt.Errorf("could not parse NOTION_URL: %w", err)
		return env
	}

	env.Notion = notion.New(&client.Client{
		BaseURL:    base,
		HTTPClient: &http.Client{Timeout: c.NotionTimeout},
		Token:      c.NotionToken,
		Version:    c.NotionVersion,
	})

	dir, err := tenant.Load(c.TenantConfig, c.TenantConfigFile)
	if err != nil {
		env.Err = err
		return env
	}
	env.Directory = dir
	env.Keyring = auth.NewKeyring(c.AuthSecret, dir)

	var cache enrich.Cache = enrich.NewMemoryCache(titleCacheEntries, enrich.DefaultTTL)
	if c.RedisURL != "" {
		opt, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			log.Warnw("invalid REDIS_URL, using memory cache", "err", err)
		} else {
			cache = enrich.NewRedisCache(redis.NewClient(opt), "portal:title:", enrich.DefaultTTL)
		}
	}
	env.Enricher = enrich.New(env.Notion, enrich.WithCache(cache))

	log.Infow("portal configured", "clients", len(dir.Clients), "users", len(dir.Users), "redis", c.RedisURL != "")
	return env
}

// FromEnv loads the configuration, consulting SSM only when a parameter is named
func FromEnv(ctx context.Context) *Env {

	var sg config.SecretGetter
	if needsSSM() {
		sg = config.NewSSMSecretsFromEnv()
	}

	c, err := config.Load(ctx, sg)
	if err != nil {
		log.Errorw("could not load configuration", "err", err)
		return &Env{Config: c, Now: time.Now, Err: err}
	}
	return New(c)
}

func needsSSM() bool {
	for _, k := range []string{"NOTION_TOKEN_PARAMETER", "AUTH_SECRET_PARAMETER"} {
		if v, ok := os.LookupEnv(k); ok && v != "" {
			return true
		}
	}
	return false
}
