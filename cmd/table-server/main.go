package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/raydebug/puretexaspoker-sub007/internal/server"
	"github.com/raydebug/puretexaspoker-sub007/internal/server/handhistory"
)

var CLI struct {
	Config   string `short:"c" default:"table-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("starting table server",
		"addr", cfg.GetServerAddress(),
		"tables", len(cfg.Tables))

	wsServer := server.NewServer(cfg.GetServerAddress(), logger)
	service := server.NewService(wsServer, quartz.NewReal(), logger)
	wsServer.SetService(service)

	if cfg.Server.HandHistoryDir != "" {
		manager := handhistory.NewManager(logger, handhistory.ManagerConfig{
			BaseDir: cfg.Server.HandHistoryDir,
		})
		defer manager.Shutdown()
		service.SetHistory(manager)
	}

	for _, tableConfig := range cfg.Tables {
		loop, err := service.CreateTable(tableConfig)
		if err != nil {
			logger.Error("failed to create table", "error", err, "table", tableConfig.Name)
			kctx.Exit(1)
		}
		logger.Info("table ready",
			"id", loop.Table().ID,
			"name", tableConfig.Name,
			"stakes", fmt.Sprintf("%d/%d", tableConfig.SmallBlind, tableConfig.BigBlind),
			"seats", tableConfig.Seats)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutting down")
		cancel()
		_ = wsServer.Stop()
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(ctx) })
	g.Go(wsServer.Start)

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("server failed", "error", err)
		kctx.Exit(1)
	}
}
