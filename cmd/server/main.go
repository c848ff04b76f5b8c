package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/avolkova/chatline-server/internal/app"
	"github.com/avolkova/chatline-server/internal/config"
	"github.com/avolkova/chatline-server/internal/log"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "path to config file")
		addr       = flag.String("addr", "", "HTTP listen address override")
	)
	flag.Parse()

	bootLogger := log.New("info", true)

	cfg, resolvedPath, err := config.Load(bootLogger, *configPath)
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := log.New(cfg.LogLevel, cfg.LogPretty)
	logger.Info().Str("config", resolvedPath).Str("addr", cfg.Addr).Msg("starting chatline server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}

	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
