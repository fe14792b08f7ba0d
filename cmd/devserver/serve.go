package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sayshey/clientportal/internal/gateway"
	"github.com/sayshey/clientportal/pkg/clientdata"
	"github.com/sayshey/clientportal/pkg/config"
	"github.com/sayshey/clientportal/pkg/portal"
	"github.com/sayshey/clientportal/pkg/secure"
	"github.com/sayshey/clientportal/pkg/simple"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "serve /api/client-data, /api/secure-notion and /api/simple-notion",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   3000,
			Usage:   "port to bind the server to",
		},
		&cli.StringFlag{
			Name:    "tenant-config",
			Aliases: []string{"t"},
			EnvVars: []string{"TENANT_CONFIG_FILE"},
			Usage:   "path to the tenant directory YAML",
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Aliases: []string{"redis"},
			EnvVars: []string{"REDIS_URL"},
			Usage:   "url for a redis instance caching relation titles",
		},
		&cli.BoolFlag{
			Name:    "simple",
			EnvVars: []string{"SIMPLE_ENABLED"},
			Usage:   "enable the email only endpoint",
		},
		&cli.BoolFlag{
			Name:  "ssm",
			Usage: "resolve NOTION_TOKEN_PARAMETER and AUTH_SECRET_PARAMETER from AWS SSM",
		},
	},
	Action: func(cCtx *cli.Context) error {

		ctx, stop := signal.NotifyContext(cCtx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var sg config.SecretGetter
		if cCtx.Bool("ssm") {
			sg = config.NewSSMSecretsFromEnv()
		}

		cfg, err := config.Load(ctx, sg)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if cCtx.IsSet("tenant-config") {
			cfg.TenantConfig = ""
			cfg.TenantConfigFile = cCtx.String("tenant-config")
		}
		cfg.RedisURL = cCtx.String("redis-url")
		cfg.SimpleEnabled = cCtx.Bool("simple")

		env := portal.New(cfg)
		if err := env.Ready(false); err != nil {
			return fmt.Errorf("configuring portal: %w", err)
		}

		mux := http.NewServeMux()
		mux.Handle("/api/client-data", gateway.Adapt(clientdata.NewHandler(env).Handle))
		mux.Handle("/api/secure-notion", gateway.Adapt(secure.NewHandler(env).Handle))
		mux.Handle("/api/simple-notion", gateway.Adapt(simple.NewHandler(env).Handle))

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cCtx.Int("port")),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdown); err != nil {
				log.Warnw("shutdown failed", "err", err)
			}
		}()

		log.Infow("listening", "addr", srv.Addr, "simple", cfg.SimpleEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	},
}
