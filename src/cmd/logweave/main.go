// FILE: logweave/src/cmd/logweave/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"logweave/src/internal/config"
	"logweave/src/internal/core"
	"logweave/src/internal/diag"
	"logweave/src/internal/version"
)

func main() {
	flagCfg, args, err := ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli = newNotices(os.Stderr, flagCfg.Quiet)

	if flagCfg.ShowVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg, err := config.LoadWithCLI(args)
	if err != nil {
		cli.Fatal(1, "failed to load settings: %v\n", err)
	}

	if flagCfg.SaveConfig != "" {
		if err := cfg.SaveToFile(flagCfg.SaveConfig); err != nil {
			cli.Fatal(1, "%v\n", err)
		}
		cli.Printf("Settings written to %s\n", flagCfg.SaveConfig)
		os.Exit(0)
	}

	if err := initializeLogger(cfg, flagCfg.Quiet); err != nil {
		cli.Fatal(1, "failed to initialize logger: %v\n", err)
	}
	defer shutdownLogger()

	logger.Info("msg", "logweave starting",
		"component", "main",
		"version", version.Short())

	ch := diag.New(logger)
	eng, err := bootstrapEngine(cfg, ch)
	if err != nil {
		logger.Error("msg", "Failed to bootstrap engine", "component", "main", "error", err)
		shutdownLogger()
		cli.Fatal(1, "%v\n", err)
	}

	defaultLevel, _ := core.ParseLevel(cfg.DefaultLevel)
	reader := NewStdinReader(os.Stdin, eng, cfg.Tag, defaultLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sh := NewSignalHandler()
	defer sh.Stop()

	readDone := make(chan error, 1)
	go func() {
		readDone <- reader.Run(ctx)
	}()

	signals := make(chan os.Signal, 1)
	go func() {
		signals <- sh.Wait(ctx)
	}()

	select {
	case err := <-readDone:
		if err != nil {
			logger.Error("msg", "Failed reading stdin", "component", "main", "error", err)
		}
	case sig := <-signals:
		logger.Info("msg", "Shutdown signal received", "component", "main", "signal", sig)
		cancel()
		if !eng.AutoShutdown() {
			// Queued entries are abandoned without a drain
			shutdownLogger()
			os.Exit(exitCode(sig))
		}
	}

	drain := time.Duration(cfg.DrainTimeoutMs) * time.Millisecond
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), drain)
	defer shutdownCancel()

	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Error("msg", "Engine shutdown incomplete", "component", "main", "error", err)
		cli.Summary(reader.Lines(), eng.Stats())
		shutdownCancel()
		shutdownLogger()
		os.Exit(1)
	}

	logger.Info("msg", "Shutdown complete",
		"component", "main",
		"lines", reader.Lines())
	cli.Summary(reader.Lines(), eng.Stats())
}

func exitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			cli.Printf("Logger shutdown error: %v\n", err)
		}
	}
}
