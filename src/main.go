package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"volbot/src/config"
)

func main() {
	initializeLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	volbotConfig, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := volbotConfig.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	slog.Info("Ramping up Volbot")

	if err := runPipeline(ctx, volbotConfig); err != nil {
		slog.Error("Pipeline failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Pipeline complete",
		"figures", volbotConfig.RunConfig.FiguresDir,
		"results", volbotConfig.RunConfig.ResultsDir)
}

func initializeLogging() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})))
	default:
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})))
	}
}
