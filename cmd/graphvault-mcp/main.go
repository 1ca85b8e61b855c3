package main

import (
	"context"
	"flag"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"graphvault/internal/adapters/codec"
	"graphvault/internal/adapters/filesystem"
	mcpadapter "graphvault/internal/adapters/mcp"
	"graphvault/internal/adapters/sqlite"
	"graphvault/internal/config"
	"graphvault/internal/ports"
)

func main() {
	configFlag := flag.String("config", config.FilePath(), "path to the config file")
	dataFlag := flag.String("data", "", "path to the data root (default from config or GRAPHVAULT_DATA)")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr only
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.WithError(err).Fatal("graphvault-mcp: load config")
	}
	if *dataFlag != "" {
		cfg.DataPath = *dataFlag
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	c, err := codec.ForFormat(cfg.RecordFormat)
	if err != nil {
		log.WithError(err).Fatal("graphvault-mcp: record format")
	}
	store, err := filesystem.Open(cfg.DataPath, filesystem.Options{
		Codec:       c,
		Logger:      log,
		CacheSize:   cfg.CacheSize,
		LoadWorkers: cfg.LoadWorkers,
	})
	if err != nil {
		log.WithError(err).Fatal("graphvault-mcp: open store")
	}

	// Search is optional: without a catalog the remaining tools still work
	var catalog ports.Catalog
	sc := sqlite.NewCatalog(log)
	if err := sc.Open(store.Layout().Root); err != nil {
		log.WithError(err).Warn("catalog unavailable, search disabled")
	} else {
		defer sc.Close()
		catalog = sc
	}

	mcpServer := server.NewMCPServer(
		"graphvault-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterReadTools(mcpServer, store, catalog)
	mcpadapter.RegisterWriteTools(mcpServer, store)

	log.WithField("root", store.Layout().Root).Info("serving on stdio")
	if err := server.ServeStdio(mcpServer); err != nil {
		log.WithError(err).Error("graphvault-mcp: serve")
		os.Exit(1)
	}
}
