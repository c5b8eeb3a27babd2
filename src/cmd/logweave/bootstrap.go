// FILE: logweave/src/cmd/logweave/bootstrap.go
package main

import (
	"fmt"

	"logweave/src/engine"
	"logweave/src/internal/config"
	"logweave/src/internal/diag"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

// initializeLogger sets up the diagnostic logger from the CLI settings
func initializeLogger(cfg *config.CLIConfig, quiet bool) error {
	output := cfg.Diag.Output
	if quiet {
		output = "none"
	}

	var err error
	logger, err = diag.NewLogger(output, cfg.Diag.Level)
	return err
}

// bootstrapEngine loads engine properties and creates the engine
func bootstrapEngine(cfg *config.CLIConfig, ch *diag.Channel) (*engine.Engine, error) {
	store := config.NewStore(ch)

	loader := config.NewLoader()
	loader.Files = cfg.PropertyFiles()
	if err := loader.Load(store); err != nil {
		return nil, fmt.Errorf("failed to load properties: %w", err)
	}

	eng, err := engine.New(store, engine.WithDiag(ch))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	logger.Info("msg", "Engine ready",
		"component", "main",
		"writers", eng.Writers(),
		"property_files", loader.Files)
	return eng, nil
}
