package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/roman-kulish/firelink/cmd/firelink/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var configPath string
	var simulation bool
	pflag.StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	pflag.BoolVar(&simulation, "simulation", false, "Run against the simulated vehicle")
	pflag.Parse()

	config := app.NewConfig()
	if configPath != "" {
		var err error
		if config, err = app.LoadConfig(configPath); err != nil {
			logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
			os.Exit(1)
		}
	}
	if pflag.CommandLine.Changed("simulation") {
		config.Settings.Simulation = simulation
		if err := config.Validate(); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
	}

	logLevel.Set(config.Settings.LogLevel)
	if strings.EqualFold(config.Settings.LogFormat, app.LogFormatJSON) {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, config, logger, os.Stdin, os.Stdout); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
