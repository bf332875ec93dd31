package filerunner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/leadscout/leadscout/browser"
	"github.com/leadscout/leadscout/errlog"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/report"
	"github.com/leadscout/leadscout/runlog"
	"github.com/leadscout/leadscout/runner"
	"github.com/leadscout/leadscout/web"
)

type filerunner struct {
	cfg    *runner.Config
	engine web.Engine
	runLog *runlog.Manager
	errs   *errlog.Logger
	pool   *browser.Pool
	log    *zap.Logger
}

func New(cfg *runner.Config, log *zap.Logger) (runner.Runner, error) {
	towns, err := readLines(cfg.TownsFile)
	if err != nil {
		return nil, fmt.Errorf("read towns: %w", err)
	}

	industries, err := readLines(cfg.IndustriesFile)
	if err != nil {
		return nil, fmt.Errorf("read industries: %w", err)
	}

	scrapeCfg := models.ScrapeConfig{
		Towns:                  towns,
		Industries:             industries,
		SimultaneousTowns:      cfg.SimultaneousTowns,
		SimultaneousIndustries: cfg.SimultaneousIndustries,
		SimultaneousLookups:    cfg.SimultaneousLookups,
	}

	if err := scrapeCfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := browser.NewPool(browser.Options{
		Headless:      !cfg.Debug,
		DisableImages: cfg.DisableImages,
		PoolSize:      cfg.SimultaneousTowns,
	})
	if err != nil {
		return nil, err
	}

	errs := errlog.New(log)
	runLog := runlog.New(log)

	engine, err := runner.NewEngineFactory(cfg, pool, errs, log)(scrapeCfg, runLog)
	if err != nil {
		pool.Close()

		return nil, err
	}

	ans := filerunner{
		cfg:    cfg,
		engine: engine,
		runLog: runLog,
		errs:   errs,
		pool:   pool,
		log:    log,
	}

	return &ans, nil
}

func (f *filerunner) Run(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		defer close(done)

		// drain so a slow terminal never stalls the workers
		for range f.engine.Events() {
		}
	}()

	err := f.engine.Run(ctx)

	<-done

	if writeErr := f.writeOutputs(); writeErr != nil {
		err = errors.Join(err, writeErr)
	}

	report.WriteTownSummary(os.Stderr, f.runLog.Towns())
	report.WriteSummary(os.Stderr, f.runLog.Summary())

	return err
}

func (f *filerunner) Close(context.Context) error {
	f.pool.Close()

	return nil
}

func (f *filerunner) writeOutputs() error {
	out, closeOut, err := openOutput(f.cfg.ResultsFile)
	if err != nil {
		return err
	}

	defer closeOut()

	if err := report.WriteCSV(out, f.engine.Results()); err != nil {
		return err
	}

	if f.cfg.ErrorsFile == "" {
		return nil
	}

	errOut, closeErrOut, err := openOutput(f.cfg.ErrorsFile)
	if err != nil {
		return err
	}

	defer closeErrOut()

	return report.WriteErrorReport(errOut, f.errs)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "stdout" {
		return os.Stdout, func() {}, nil
	}

	fd, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	return fd, func() { _ = fd.Close() }, nil
}

func readLines(path string) ([]string, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer fd.Close()

	var out []string

	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		out = append(out, line)
	}

	return out, scanner.Err()
}
