package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/leadscout/leadscout/runner"
	"github.com/leadscout/leadscout/runner/filerunner"
	"github.com/leadscout/leadscout/runner/webrunner"
)

func main() {
	cfg := runner.ParseConfig()

	log, err := newLogger(cfg.Debug)
	if err != nil {
		os.Exit(1)
	}

	defer func() {
		_ = log.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	run, err := newRunner(cfg, log)
	if err != nil {
		log.Error("failed to initialize", zap.Error(err))
		os.Exit(1)
	}

	defer func() {
		_ = run.Close(context.Background())
	}()

	if err := run.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRunner(cfg *runner.Config, log *zap.Logger) (runner.Runner, error) {
	switch cfg.RunMode {
	case runner.RunModeFile:
		return filerunner.New(cfg, log)
	case runner.RunModeWeb:
		return webrunner.New(cfg, log)
	default:
		return nil, runner.ErrInvalidRunMode
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
