package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gobridge/bridge-points/config"
	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/ethclient"
	"github.com/gobridge/bridge-points/logging"
	"github.com/gobridge/bridge-points/monitor"
	"github.com/gobridge/bridge-points/monitor/alerts"
	"github.com/gobridge/bridge-points/points"
	"github.com/gobridge/bridge-points/presenter"
	"github.com/gobridge/bridge-points/repository"
)

const (
	defaultMetricsHost = ":2112"
	shutdownTimeout    = 30 * time.Second
)

var configPath = flag.String("config", "config.yml", "path to the config file")

func main() {
	flag.Parse()

	logger := logging.New()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithError(err).Fatal("can't load .env file")
	}

	cfg, err := config.ReadConfigFromFile(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)

	dbConn, err := db.ConnectToDBAndMigrate(cfg.DBConfig)
	if err != nil {
		logger.WithError(err).Fatal("can't connect to database and apply migrations")
	}
	defer dbConn.Close()
	repo := repository.NewRepo(dbConn)

	pending, err := points.NewPendingStore(cfg.Pending)
	if err != nil {
		logger.WithError(err).Fatal("can't initialize pending finalize store")
	}
	defer pending.Close()

	correlator := points.NewCorrelator(logger.WithField("service", "correlator"), repo, pending, points.NewAwardRule(cfg.Award))
	service := points.NewService(repo, cfg.Levels.Thresholds)

	metricsHost := defaultMetricsHost
	if cfg.Metrics != nil && cfg.Metrics.Host != "" {
		metricsHost = cfg.Metrics.Host
	}
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		err := http.ListenAndServe(metricsHost, nil)
		if err != nil {
			logger.WithError(err).Fatal("can't start listener for prometheus metrics")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	// backfills run on their own context so a stop lets in-flight pages finish
	runCtx, abort := context.WithCancel(context.Background())
	defer abort()

	if cfg.Presenter != nil {
		pr := presenter.NewPresenter(logger.WithField("service", "presenter"), service)
		go func() {
			if err := pr.Serve(ctx, cfg.Presenter.Host); err != nil {
				logger.WithError(err).Fatal("can't serve presenter")
			}
		}()
	}

	clients := make(map[string]ethclient.Client, len(cfg.Chains))
	for _, key := range enabledChains(cfg) {
		chainCfg := cfg.Chains[key]
		client, err2 := ethclient.NewClient(chainCfg.RPC.Host, chainCfg.RPC.Timeout, chainCfg.RPC.RPS, chainCfg.ChainID)
		if err2 != nil {
			logger.WithField("chain", key).WithError(err2).Fatal("can't dial rpc client")
		}
		clients[key] = client
	}

	m, err := monitor.NewMonitor(ctx, logger, repo, cfg, clients, correlator)
	if err != nil {
		logger.WithError(err).Fatal("can't initialize monitor")
	}
	if err = m.Start(runCtx); err != nil {
		logger.WithError(err).Fatal("can't start monitor")
	}

	alertManager := alerts.NewAlertManager(logger.WithField("service", "alerts"), repo, pending, cfg.Alerts)
	go alertManager.Start(ctx, m.IsSynced)

	<-ctx.Done()
	logger.Warn("caught termination signal, gracefully terminating")
	m.Stop()
	stopped := make(chan struct{})
	go func() {
		m.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("in-flight backfills did not finish in time, aborting them")
		abort()
		<-stopped
	}
}

func enabledChains(cfg *config.Config) []string {
	disabled := make(map[string]bool, len(cfg.DisabledChains))
	for _, key := range cfg.DisabledChains {
		disabled[key] = true
	}
	var enabled map[string]bool
	if cfg.EnabledChains != nil {
		enabled = make(map[string]bool, len(cfg.EnabledChains))
		for _, key := range cfg.EnabledChains {
			enabled[key] = true
		}
	}
	keys := make([]string, 0, len(cfg.Chains))
	for _, key := range cfg.ChainKeys() {
		if disabled[key] || (enabled != nil && !enabled[key]) {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}
