package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/drip/config"
	"github.com/drip/core/address"
	"github.com/drip/core/common"
	"github.com/drip/core/deploy"
	"github.com/drip/core/state"
	"github.com/drip/core/storage"
	"github.com/drip/internal/logger"
	"github.com/drip/internal/network"
	"github.com/drip/internal/observer"
	"github.com/drip/internal/service"
	"go.uber.org/zap"
)

func nodeLogger() *zap.SugaredLogger {
	return logger.Named("drip")
}

// Drip wires storage, the deployed token/faucet pair and the RPC server.
type Drip struct {
	cfg      *config.Config
	owner    address.Address
	db       *state.DB
	hub      *observer.Hub
	dep      *deploy.Deployment
	registry *service.Registry
	ws       *network.WsManager
	server   *network.Server
}

func openStore(cfg config.VaultConfig) (storage.Store, error) {
	if cfg.InMem {
		return storage.NewMemStore(), nil
	}
	return storage.OpenPogreb(cfg.Path)
}

// NewDrip opens the vault and deploys (or reloads) the token and faucet.
func NewDrip(cfg *config.Config, owner address.Address, clock service.Clock) (*Drip, error) {
	params, err := cfg.DeployParams()
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	hub := observer.NewHub()
	hub.Register(observer.LogObserver{})
	db := state.New(store, hub)

	dep, err := deploy.Deploy(db, owner, params)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to deploy: %w", err)
	}

	registry := service.NewRegistry()
	service.RegisterDeployment(registry, db, dep, owner, clock)

	ws := network.NewWsManager()
	hub.Register(ws)

	return &Drip{
		cfg:      cfg,
		owner:    owner,
		db:       db,
		hub:      hub,
		dep:      dep,
		registry: registry,
		ws:       ws,
		server:   network.NewServer(cfg.HTTP, registry, ws),
	}, nil
}

// Run serves RPC until ctx is cancelled.
func (d *Drip) Run(ctx context.Context) error {
	nodeLogger().Infow("Faucet ready",
		"token", d.dep.Token.Address(),
		"faucet", d.dep.Faucet.Address(),
		"owner", d.owner,
		"symbol", d.dep.Token.Symbol(),
		"maxSupply", common.FormatUnits(d.dep.Token.MaxSupply(), common.Decimals),
		"reloaded", d.dep.Reloaded,
	)
	return d.server.Start(ctx)
}

func (d *Drip) Close() error {
	d.hub.Unregister(d.ws.GetID())
	return errors.Join(d.registry.StopAllServices(), d.db.Close())
}

func resolveOwner(cfg *config.Config, path string) (address.Address, error) {
	if cfg.HasOwner() {
		return cfg.OwnerAddress()
	}
	owner, err := cfg.GenerateOwner(path)
	if err != nil {
		return address.Zero, fmt.Errorf("failed to generate owner: %w", err)
	}
	nodeLogger().Warnw("Generated owner mnemonic", "owner", owner, "config", path)
	return owner, nil
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file (.json or .yaml)")
	rpcPort := flag.Int("r", -1, "rpc port to listen")
	inMem := flag.Bool("mem", false, "keep state in memory")
	logLevel := flag.String("log", "", "log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *rpcPort > 0 {
		cfg.HTTP.Port = *rpcPort
	}
	if *inMem {
		cfg.Vault.InMem = true
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	if _, err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	owner, err := resolveOwner(cfg, *configPath)
	if err != nil {
		nodeLogger().Errorw("Invalid owner", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := NewDrip(cfg, owner, service.WallClock)
	if err != nil {
		nodeLogger().Errorw("Failed to initialize", "err", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		nodeLogger().Errorw("Server error", "err", err)
	}

	nodeLogger().Infow("Shutting down")
	if err := app.Close(); err != nil {
		nodeLogger().Errorw("Failed to close vault", "err", err)
		os.Exit(1)
	}
	nodeLogger().Infow("Stopped")
}
