package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"semikv/internal/config"
	"semikv/internal/node"
)

func main() {
	configPath := flag.String("config", "", "YAML config file; environment variables are used when empty")
	flag.Parse()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "semikv",
		Level: hclog.LevelFromString(level),
	})

	var (
		settings config.Settings
		err      error
	)
	if *configPath != "" {
		settings, err = config.LoadFile(*configPath)
	} else {
		settings, err = config.FromEnv()
	}
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	n, err := node.New(settings, logger)
	if err != nil {
		logger.Error("refusing to serve", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		n.Stop()
	}()

	if err := n.Start(); err != nil {
		logger.Error("node exited", "error", err)
		os.Exit(1)
	}
}
