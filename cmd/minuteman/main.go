package main

import (
	"context"

	"github.com/joho/godotenv"

	"minuteman/internal/app"
	"minuteman/pkg/config"
	"minuteman/pkg/logger"
	"minuteman/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var version = "dev"

func main() {
	_ = godotenv.Load(".env")

	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, _, err := config.LoadEffective(cfgPath)
	if err != nil {
		logger.Init()
		shutdown.Abort("failed to load config", err)
	}
	logger.InitWithLevel(cfg.Logging.Level)

	// flags win over config/env when provided explicitly
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
	}
	if setFlags["db"] || cfg.Server.DBPath == "" {
		cfg.Server.DBPath = dbVal
	}

	a, err := app.New(cfg, version, addr)
	if err != nil {
		shutdown.Abort("startup failed", err)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()
	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server exited", err)
	}
	logger.Info("shutdown_complete")
}
