package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gavel-mod/gavel/ledger"
	"github.com/gavel-mod/gavel/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "gavel",
		Usage:   "moderation review-context service",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/gavel/gavel.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		backfillCmd,
	}

	return app.Run(args)
}

func configLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the review-context service",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "relay",
			Usage:   "relay URL(s) to query events from; can be repeated",
			Value:   cli.NewStringSlice("wss://relay.damus.io"),
			EnvVars: []string{"GAVEL_RELAYS"},
		},
		&cli.IntFlag{
			Name:    "relay-query-rate-limit",
			Usage:   "max queries per second against the relay pool",
			Value:   20,
			EnvVars: []string{"GAVEL_RELAY_QUERY_RATE_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "mgmt-endpoint",
			Usage:   "relay management API endpoint (enforcement lists)",
			EnvVars: []string{"GAVEL_MGMT_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "mgmt-auth",
			Usage:   "Authorization header value for the management API",
			EnvVars: []string{"GAVEL_MGMT_AUTH"},
		},
		&cli.StringFlag{
			Name:    "block-status-host",
			Usage:   "media enforcement service for content-hash block status",
			EnvVars: []string{"GAVEL_BLOCK_STATUS_HOST"},
		},
		&cli.StringFlag{
			Name:    "block-status-api-key",
			EnvVars: []string{"GAVEL_BLOCK_STATUS_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "optional redis for cross-replica response caching",
			EnvVars: []string{"GAVEL_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the HTTP API",
			Value:   ":2510",
			EnvVars: []string{"GAVEL_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics",
			Value:   ":2511",
			EnvVars: []string{"GAVEL_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := configLogger()

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		srv, err := NewServer(ctx, db, Config{
			Logger:            logger,
			Relays:            cctx.StringSlice("relay"),
			RelayQueryRate:    cctx.Int("relay-query-rate-limit"),
			MgmtEndpoint:      cctx.String("mgmt-endpoint"),
			MgmtAuth:          cctx.String("mgmt-auth"),
			BlockStatusHost:   cctx.String("block-status-host"),
			BlockStatusAPIKey: cctx.String("block-status-api-key"),
			RedisURL:          cctx.String("redis-url"),
			Bind:              cctx.String("bind"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "err", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		return srv.RunAPI()
	},
}

var backfillCmd = &cli.Command{
	Name:  "backfill",
	Usage: "recompute derived review state from the historical decision log",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "human-action",
			Usage:   "action value counted as human review; can be repeated. Default: everything except auto_hidden",
			EnvVars: []string{"GAVEL_HUMAN_ACTIONS"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		configLogger()

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}
		led, err := ledger.NewLedger(db, ledger.Config{
			HumanActions: cctx.StringSlice("human-action"),
		}, nil)
		if err != nil {
			return err
		}
		return led.Backfill(ctx)
	},
}
