package webrunner

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/leadscout/leadscout/browser"
	"github.com/leadscout/leadscout/errlog"
	"github.com/leadscout/leadscout/runner"
	"github.com/leadscout/leadscout/web"
	"github.com/leadscout/leadscout/web/sqlite"
)

type webrunner struct {
	cfg  *runner.Config
	srv  *web.Server
	pool *browser.Pool
	log  *zap.Logger
}

func New(cfg *runner.Config, log *zap.Logger) (runner.Runner, error) {
	if cfg.DataFolder == "" {
		return nil, os.ErrNotExist
	}

	if err := os.MkdirAll(cfg.DataFolder, 0o755); err != nil {
		return nil, err
	}

	repo, err := sqlite.New(filepath.Join(cfg.DataFolder, "leadscout.db"))
	if err != nil {
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
	factory := runner.NewEngineFactory(cfg, pool, errs, log)
	svc := web.NewService(repo, factory, errs, log)

	if err := svc.Recover(context.Background()); err != nil {
		return nil, err
	}

	srv, err := web.NewServer(web.ServerConfig{
		Addr:    cfg.Addr,
		Service: svc,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	ans := webrunner{
		cfg:  cfg,
		srv:  srv,
		pool: pool,
		log:  log,
	}

	return &ans, nil
}

func (w *webrunner) Run(ctx context.Context) error {
	return w.srv.Start(ctx)
}

func (w *webrunner) Close(context.Context) error {
	w.pool.Close()

	return nil
}
