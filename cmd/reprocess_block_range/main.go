package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/gobridge/bridge-points/config"
	"github.com/gobridge/bridge-points/db"
	"github.com/gobridge/bridge-points/ethclient"
	"github.com/gobridge/bridge-points/logging"
	"github.com/gobridge/bridge-points/monitor"
	"github.com/gobridge/bridge-points/points"
	"github.com/gobridge/bridge-points/repository"
)

var (
	configPath = flag.String("config", "config.yml", "path to the config file")
	chain      = flag.String("chain", "", "chain key to reprocess events in")
	event      = flag.String("event", "", "event name to reprocess, all bridge events if empty")
	fromBlock  = flag.Uint64("fromBlock", 0, "starting block")
	toBlock    = flag.Uint64("toBlock", 0, "ending block")
)

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

	if *chain == "" {
		logger.Fatal("chain is not specified")
	}
	chainCfg, ok := cfg.Chains[*chain]
	if !ok || chainCfg == nil {
		logger.WithField("chain", *chain).Fatal("config for given chain is not found")
	}
	if *fromBlock < chainCfg.DeploymentBlock {
		fromBlock = &chainCfg.DeploymentBlock
	}
	if *toBlock == 0 {
		logger.Fatal("toBlock is not specified")
	}
	if *toBlock < *fromBlock {
		logger.WithFields(logrus.Fields{
			"from_block": *fromBlock,
			"to_block":   *toBlock,
		}).Fatal("toBlock < fromBlock")
	}
	events := monitor.BridgeEvents
	if *event != "" {
		events = []string{*event}
	}

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
	correlator := points.NewCorrelator(logger, repo, pending, points.NewAwardRule(cfg.Award))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	chainLogger := logger.WithField("chain", *chain)
	client, err := ethclient.NewClient(chainCfg.RPC.Host, chainCfg.RPC.Timeout, chainCfg.RPC.RPS, chainCfg.ChainID)
	if err != nil {
		chainLogger.WithError(err).Fatal("can't dial rpc client")
	}

	m, err := monitor.NewChainMonitor(ctx, chainLogger, repo, cfg, chainCfg, client, correlator)
	if err != nil {
		chainLogger.WithError(err).Fatal("can't initialize chain monitor")
	}

	for _, name := range events {
		if err = m.ProcessBlockRange(ctx, name, *fromBlock, *toBlock); err != nil {
			chainLogger.WithField("event", name).WithError(err).Fatal("can't manually process block range")
		}
	}
	chainLogger.Info("block range reprocessed")
}
