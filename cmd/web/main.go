package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"statementcheck/internal/app"
	"statementcheck/internal/config"
	"statementcheck/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "", "YAML configuration file (default: $"+config.ConfigFileEnv+" or ./config.yaml)")
	flag.Parse()

	if err := run(*configFile); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer infrastructure.CloseLogFile()

	return application.Run()
}
