package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gavel-mod/gavel/blockstatus"
	"github.com/gavel-mod/gavel/cachestore"
	"github.com/gavel-mod/gavel/ledger"
	"github.com/gavel-mod/gavel/modstatus"
	"github.com/gavel-mod/gavel/report"
	"github.com/gavel-mod/gavel/reputation"
	"github.com/gavel-mod/gavel/store"
	"github.com/gavel-mod/gavel/thread"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"gorm.io/gorm"
)

type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
	httpd  *http.Server

	events      store.EventStore
	contexts    *report.ContextBuilder
	reputation  *reputation.Aggregator
	modStatus   *modstatus.Resolver
	blockStatus *blockstatus.Resolver
	ledger      *ledger.Ledger
	cache       cachestore.CacheStore
}

type Config struct {
	Logger            *slog.Logger
	Relays            []string
	RelayQueryRate    int
	MgmtEndpoint      string
	MgmtAuth          string
	BlockStatusHost   string
	BlockStatusAPIKey string
	RedisURL          string
	Bind              string
}

func NewServer(ctx context.Context, db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	events, err := store.NewRelayStore(ctx, store.RelayStoreConfig{
		Relays:         config.Relays,
		QueryRateLimit: config.RelayQueryRate,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	rep := reputation.NewAggregator(events, logger)
	threads := thread.NewFetcher(events, logger)

	// enforcement lists are an optional relay capability; without a
	// management endpoint every status resolves to not-banned, degraded
	var lists store.ModerationLists
	if config.MgmtEndpoint != "" {
		lists = modstatus.NewManagementClient(config.MgmtEndpoint, config.MgmtAuth)
	} else {
		lists = unsupportedLists{}
	}

	var blockSource blockstatus.Source
	if config.BlockStatusHost != "" {
		blockSource = blockstatus.NewHTTPSource(config.BlockStatusHost, config.BlockStatusAPIKey)
	} else {
		blockSource = noneSource{}
	}

	var cache cachestore.CacheStore
	if config.RedisURL != "" {
		cache, err = cachestore.NewRedisCacheStore(config.RedisURL, 30*time.Second)
		if err != nil {
			return nil, err
		}
	} else {
		cache = cachestore.NewMemCacheStore(10_000, 30*time.Second)
	}

	led, err := ledger.NewLedger(db, ledger.Config{}, logger)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		logger:      logger,
		events:      events,
		contexts:    report.NewContextBuilder(threads, rep, logger),
		reputation:  rep,
		modStatus:   modstatus.NewResolver(lists, logger),
		blockStatus: blockstatus.NewResolver(blockSource, logger),
		ledger:      led,
		cache:       cache,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	e.GET("/_health", srv.handleHealthCheck)
	e.GET("/report-context/:id", srv.handleReportContext)
	e.GET("/user-stats/:pubkey", srv.handleUserStats)
	e.GET("/mod-status", srv.handleModStatus)
	e.POST("/mod-status/refetch", srv.handleModStatusRefetch)
	e.POST("/block-status", srv.handleBlockStatus)
	e.GET("/queue", srv.handleQueue)
	e.POST("/decisions", srv.handleAppendDecision)

	srv.echo = e
	srv.httpd = &http.Server{
		Handler:        e,
		Addr:           config.Bind,
		ReadTimeout:    time.Minute,
		WriteTimeout:   time.Minute,
		MaxHeaderBytes: 1 * (1024 * 1024),
	}
	return srv, nil
}

// unsupportedLists stands in when no management endpoint is configured.
type unsupportedLists struct{}

func (unsupportedLists) ListBannedPubkeys(ctx context.Context) ([]store.BannedPubkey, error) {
	return nil, store.ErrUnsupported
}

func (unsupportedLists) ListBannedEvents(ctx context.Context) ([]store.BannedEvent, error) {
	return nil, store.ErrUnsupported
}

// noneSource stands in when no media enforcement service is configured.
type noneSource struct{}

func (noneSource) HashStatus(ctx context.Context, hash string) (blockstatus.Action, error) {
	return blockstatus.ActionNone, nil
}

func (srv *Server) RunAPI() error {
	srv.logger.Info("starting API server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		srv.logger.Info("received OS exit signal", "signal", sig)
		if err := srv.Shutdown(); err != nil {
			srv.logger.Error("HTTP server shutdown error", "err", err)
		}
		close(quit)
	}()
	<-quit
	srv.logger.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) RunMetrics(listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, mux)
}

func (srv *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.httpd.Shutdown(ctx)
}
