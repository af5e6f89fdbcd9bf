// Command shieldpoold is the shielded-pool daemon: it wires the Postgres
// persistence layer, the cryptographic engine and the gossipsub event bus
// for one pool, then blocks until shut down. It exposes no endpoint of its
// own for submitting operations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/shieldpool/core/internal/events"
	"github.com/shieldpool/core/internal/storage"
	"github.com/shieldpool/core/internal/zkp"
	"github.com/shieldpool/core/pkg/common"
	"github.com/shieldpool/core/pkg/types"
)

const (
	version = "0.1.0"
	banner  = `
   _____ _     _      _     _                     _
  / ____| |   (_)    | |   | |                   | |
 | (___ | |__  _  ___| | __| |_ __   ___   ___ | |
  \___ \| '_ \| |/ _ \ |/ _' | '_ \ / _ \ / _ \| |
  ____) | | | | |  __/ | (_| | |_) | (_) | (_) | |
 |_____/|_| |_|_|\___|_|\__,_| .__/ \___/ \___/|_|
                              | |
                              |_|
  shieldpoold v%s
`
)

// Config holds daemon configuration.
type Config struct {
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	ListenAddr string

	PoolID        string
	TreeDepth     int
	RelayerFeeBps int

	LogLevel string
	DataDir  string
}

func main() {
	cfg := parseFlags()

	fmt.Printf(banner, version)

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("daemon exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DBHost, "db-host", "localhost", "PostgreSQL host")
	flag.IntVar(&cfg.DBPort, "db-port", 5432, "PostgreSQL port")
	flag.StringVar(&cfg.DBUser, "db-user", "shieldpool", "PostgreSQL user")
	flag.StringVar(&cfg.DBPassword, "db-password", "", "PostgreSQL password")
	flag.StringVar(&cfg.DBName, "db-name", "shieldpool", "PostgreSQL database name")

	flag.StringVar(&cfg.ListenAddr, "listen", "/ip4/0.0.0.0/tcp/9000", "event-bus listen address")

	flag.StringVar(&cfg.PoolID, "pool-id", "", "hex-encoded 32-byte pool identifier (required)")
	flag.IntVar(&cfg.TreeDepth, "tree-depth", zkp.DefaultTreeDepth, "Merkle tree depth")
	flag.IntVar(&cfg.RelayerFeeBps, "relayer-fee-bps", 0, "relayer fee cap in basis points")

	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&cfg.DataDir, "data-dir", "./data", "data directory")

	flag.Parse()
	return cfg
}

func run(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	if cfg.PoolID == "" {
		return fmt.Errorf("missing required -pool-id")
	}
	idBytes, err := common.HexToBytes(cfg.PoolID)
	if err != nil {
		return fmt.Errorf("invalid -pool-id: %w", err)
	}
	poolIDHash := types.HashFromBytes(idBytes)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	logger.Info("connecting to database", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))
	dbConfig := &storage.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  "disable",
		MaxConns: 20,
	}

	store, err := storage.NewPostgresStore(ctx, dbConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()
	logger.Info("database connected")

	tree := zkp.NewCommitmentTree(store.Tree(poolIDHash), cfg.TreeDepth)
	nullifiers := zkp.NewNullifierSet(store.Nullifiers(poolIDHash))
	vk := zkp.NewVKDataAccount(store.VKData(poolIDHash))
	tokens := zkp.NewInMemoryTokenLedger() // transparent leg: real deployments swap in the token-module boundary (§1)

	engine := zkp.NewEngine(poolIDHash, store.PoolScalars(poolIDHash), tree, nullifiers, vk, tokens, nil)
	if err := engine.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	logger.Info("engine initialized",
		zap.Uint64("leaf_count", tree.LeafCount()),
		zap.String("root", tree.Root().String()),
	)

	busCfg := events.DefaultConfig()
	busCfg.ListenAddrs = []string{cfg.ListenAddr}
	bus, err := events.NewBus(ctx, busCfg)
	if err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	defer bus.Close()
	logger.Info("event bus started", zap.String("listen", cfg.ListenAddr))

	logger.Info("shieldpoold started", zap.String("pool_id", poolIDHash.String()))

	<-ctx.Done()

	logger.Info("shieldpoold stopped")
	return nil
}
