package browser

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/leadscout/leadscout/navigation"
)

// Options configures the shared browser pool.
type Options struct {
	Headless      bool
	DisableImages bool
	PoolSize      int
}

// Pool hands out page handles to run workers. Handles are reused until
// the pool closes; a worker holds exactly one for its lifetime.
type Pool struct {
	opts Options
	pool chan *Handle
}

func NewPool(opts Options) (*Pool, error) {
	if err := playwright.Install(); err != nil {
		return nil, err
	}

	if opts.PoolSize < 1 {
		opts.PoolSize = 4
	}

	ans := Pool{
		opts: opts,
		pool: make(chan *Handle, opts.PoolSize),
	}

	return &ans, nil
}

func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case h := <-p.pool:
		return h, nil
	default:
		return newHandle(p.opts)
	}
}

func (p *Pool) Release(h *Handle) {
	select {
	case p.pool <- h:
	default:
		h.Close()
	}
}

func (p *Pool) Close() {
	for {
		select {
		case h := <-p.pool:
			h.Close()
		default:
			return
		}
	}
}

// Handle is one live page. It implements navigation.Opener.
type Handle struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
}

func newHandle(opts Options) (*Handle, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, err
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			`--no-default-browser-check`,
		},
	}

	if opts.DisableImages {
		launch.Args = append(launch.Args, `--blink-settings=imagesEnabled=false`)
	}

	br, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()

		return nil, err
	}

	const width, height = 1920, 1080

	bctx, err := br.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: width, Height: height},
	})
	if err != nil {
		_ = br.Close()
		_ = pw.Stop()

		return nil, err
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = br.Close()
		_ = pw.Stop()

		return nil, err
	}

	ans := Handle{
		pw:      pw,
		browser: br,
		bctx:    bctx,
		page:    page,
	}

	return &ans, nil
}

// Open navigates the page and blocks until the requested load state is
// reached or the timeout elapses.
func (h *Handle) Open(ctx context.Context, url string, strategy navigation.WaitStrategy, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := h.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntil(strategy),
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})

	return err
}

// Content returns the page's current serialized DOM.
func (h *Handle) Content() (string, error) {
	return h.page.Content()
}

func (h *Handle) Close() {
	_ = h.page.Close()
	_ = h.bctx.Close()
	_ = h.browser.Close()
	_ = h.pw.Stop()
}

func waitUntil(strategy navigation.WaitStrategy) *playwright.WaitUntilState {
	switch strategy {
	case navigation.WaitNetworkIdle:
		return playwright.WaitUntilStateNetworkidle
	case navigation.WaitLoad:
		return playwright.WaitUntilStateLoad
	case navigation.WaitDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	default:
		return playwright.WaitUntilStateCommit
	}
}
