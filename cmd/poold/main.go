// Command poold hosts a single pool against a LevelDB-backed store, wiring
// together configuration, logging, and metrics the way
// services/lendingd/main.go wires its gRPC server - trimmed of the gRPC/TLS/
// otel transport layer this module has no equivalent surface for, since
// spec.md's pool core has no wire protocol of its own (spec §1).
package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nhbchain/lendpool/config"
	"github.com/nhbchain/lendpool/observability/logging"
	"github.com/nhbchain/lendpool/pool"
	"github.com/nhbchain/lendpool/storage"
)

func main() {
	var (
		cfgPath  string
		dataDir  string
		logPath  string
		poolAddr string
	)
	flag.StringVar(&cfgPath, "config", "poold.toml", "path to pool configuration")
	flag.StringVar(&dataDir, "data-dir", "./data", "leveldb data directory")
	flag.StringVar(&logPath, "log-file", "", "rotating log file path (stdout only if empty)")
	flag.StringVar(&poolAddr, "pool-address", "", "hex address identifying this pool")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LENDPOOL_ENV"))
	var logger = logging.Setup("poold", env)
	if logPath != "" {
		logger = logging.SetupRotating("poold", env, &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     28,
			Compress:   true,
		})
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := storage.NewLevelDB(dataDir)
	if err != nil {
		log.Fatalf("open leveldb: %v", err)
	}
	defer db.Close()

	seq := func() uint64 { return uint64(time.Now().Unix()) }
	store := storage.New(db, seq)

	p := pool.NewPool(common.HexToAddress(poolAddr), cfg.ToPoolConfig(), store, nil, nil, nil, logger)

	for _, r := range cfg.ToReserveConfigs() {
		if _, err := p.InitReserve(p.Config.Admin, r.Asset, r.Config); err != nil {
			logger.Warn("skip reserve init", "asset", r.Asset.Hex(), "error", err)
		}
	}

	registry := prometheus.NewRegistry()
	pool.NewMetrics(registry, p.Address.Hex())

	logger.Info("poold ready", "pool", p.Address.Hex(), "data_dir", dataDir)
	select {}
}
