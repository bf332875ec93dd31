// Package orchestrator fans one run's towns out across a bounded worker
// pool, aggregates results, emits typed progress events and sequences
// the provider-lookup phase behind a hard barrier.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadscout/leadscout/dedup"
	"github.com/leadscout/leadscout/errlog"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/provider"
	"github.com/leadscout/leadscout/runlog"
)

type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
)

// Event is delivered in order to a single consumer per run.
type Event struct {
	Type      EventType
	Town      string
	Progress  models.Progress
	Timestamp time.Time
}

// TownProcessor is what one pooled worker runs per town.
type TownProcessor interface {
	ProcessTown(ctx context.Context, town string, industries []string) []models.Business
}

// WorkerFactory builds one processor per pooled worker. The returned
// release func is called when the worker's pull loop exits.
type WorkerFactory func(ctx context.Context) (TownProcessor, func(), error)

type Orchestrator struct {
	cfg     models.ScrapeConfig
	factory WorkerFactory
	lookup  *provider.Service
	dedupe  *dedup.Set
	runLog  *runlog.Manager
	errs    *errlog.Logger
	log     *zap.Logger

	mu            sync.Mutex
	results       []models.Business
	progress      models.Progress
	lookupStarted time.Time
	cancel        context.CancelFunc
	stopped       bool

	pauseMu  sync.Mutex
	paused   bool
	pauseCh  chan struct{}

	events chan Event
}

func New(cfg models.ScrapeConfig, factory WorkerFactory, lookup *provider.Service, runLog *runlog.Manager, errs *errlog.Logger, log *zap.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = zap.NewNop()
	}

	o := Orchestrator{
		cfg:     cfg,
		factory: factory,
		lookup:  lookup,
		dedupe:  dedup.New(),
		runLog:  runLog,
		errs:    errs,
		log:     log,
		progress: models.Progress{
			TotalTowns:      len(cfg.Towns),
			TotalIndustries: len(cfg.Towns) * len(cfg.Industries),
			TownsRemaining:  len(cfg.Towns),
		},
		// every town emits one progress event, plus the final complete
		events: make(chan Event, len(cfg.Towns)+2),
	}

	return &o, nil
}

// Events returns the run's event stream. It is closed when the run,
// including the provider-lookup phase, finishes.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Run processes every town, emits the completion event, then resolves
// providers for the union of collected phone numbers. Town-level
// failures never abort the run.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		close(o.events)

		return context.Canceled
	}

	o.cancel = cancel
	o.mu.Unlock()

	towns := make(chan string, len(o.cfg.Towns))

	for _, town := range o.cfg.Towns {
		towns <- town
	}

	close(towns)

	poolSize := o.cfg.SimultaneousTowns
	if poolSize > len(o.cfg.Towns) {
		poolSize = len(o.cfg.Towns)
	}

	o.log.Info("run started",
		zap.Int("towns", len(o.cfg.Towns)),
		zap.Int("industries", len(o.cfg.Industries)),
		zap.Int("pool_size", poolSize),
	)

	group, gctx := errgroup.WithContext(ctx)

	for i := 0; i < poolSize; i++ {
		group.Go(func() error {
			return o.workerLoop(gctx, towns)
		})
	}

	err := group.Wait()

	o.emit(Event{Type: EventComplete, Progress: o.Progress(), Timestamp: time.Now()})

	// hard barrier: the lookup phase starts only after the last town
	// finished
	o.lookupPhase(ctx)

	close(o.events)

	o.log.Info("run finished", zap.Int("results", len(o.Results())))

	return err
}

func (o *Orchestrator) workerLoop(ctx context.Context, towns <-chan string) error {
	processor, release, err := o.factory(ctx)
	if err != nil {
		// worker could not start at all; its share of towns is picked
		// up by the others, so only infrastructure-level reporting here
		if o.errs != nil {
			o.errs.LogBrowserError("worker startup failed", err, nil)
		}

		return nil
	}

	if release != nil {
		defer release()
	}

	for town := range towns {
		if ctx.Err() != nil {
			return nil
		}

		if err := o.waitIfPaused(ctx); err != nil {
			return nil
		}

		if o.runLog != nil {
			o.runLog.LogTownStart(town)
		}

		businesses := o.dedupe.Filter(processor.ProcessTown(ctx, town, o.cfg.Industries))

		if ctx.Err() != nil {
			// stopped mid-town: abandon without touching shared state
			return nil
		}

		if o.runLog != nil {
			o.runLog.LogTownComplete(town, len(businesses))
		}

		o.completeTown(town, businesses)
	}

	return nil
}

// completeTown appends the town's results and publishes the recomputed
// progress in one atomic step. The emit stays inside the critical
// section: two workers finishing back to back must deliver their events
// in completion order, and a buffered non-blocking send cannot stall
// the lock.
func (o *Orchestrator) completeTown(town string, businesses []models.Business) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.results = append(o.results, businesses...)

	o.progress.CompletedTowns++
	o.progress.CompletedIndustries += len(o.cfg.Industries)
	o.progress.TownsRemaining = o.progress.TotalTowns - o.progress.CompletedTowns
	o.progress.Percentage = float64(o.progress.CompletedTowns) / float64(o.progress.TotalTowns) * 100

	o.emit(Event{Type: EventProgress, Town: town, Progress: o.progress, Timestamp: time.Now()})
}

func (o *Orchestrator) emit(evt Event) {
	select {
	case o.events <- evt:
	default:
		// the channel is sized for a full run; a stuck consumer must not
		// stall the workers
	}
}

// lookupPhase resolves providers for every collected phone number and
// writes them back onto the results.
func (o *Orchestrator) lookupPhase(ctx context.Context) {
	if o.lookup == nil {
		return
	}

	o.mu.Lock()
	o.lookupStarted = time.Now()

	phones := make([]string, 0, len(o.results))

	for i := range o.results {
		if o.results[i].Phone != "" {
			phones = append(phones, o.results[i].Phone)
		}
	}
	o.mu.Unlock()

	if len(phones) == 0 {
		return
	}

	providers := o.lookup.LookupProviders(ctx, phones)

	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.results {
		cleaned := provider.CleanPhoneNumber(o.results[i].Phone)

		if name, ok := providers[cleaned]; ok {
			o.results[i].Provider = name
			o.results[i].Phone = cleaned
		}
	}
}

// Results returns the accumulated business list.
func (o *Orchestrator) Results() []models.Business {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]models.Business, len(o.results))
	copy(out, o.results)

	return out
}

func (o *Orchestrator) Progress() models.Progress {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.progress
}

// LookupStartedAt reports when the provider phase began; zero until it
// has.
func (o *Orchestrator) LookupStartedAt() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.lookupStarted
}

// Stop signals all workers to exit their pull loop after their current
// town. Backoff sleeps abort immediately.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopped = true

	if o.cancel != nil {
		o.cancel()
	}

	// a paused run must still be able to stop
	o.Resume()
}

// Pause holds workers before their next town pull. The in-flight towns
// finish normally.
func (o *Orchestrator) Pause() {
	o.pauseMu.Lock()
	defer o.pauseMu.Unlock()

	if !o.paused {
		o.paused = true
		o.pauseCh = make(chan struct{})
	}
}

func (o *Orchestrator) Resume() {
	o.pauseMu.Lock()
	defer o.pauseMu.Unlock()

	if o.paused {
		o.paused = false
		close(o.pauseCh)
	}
}

func (o *Orchestrator) Paused() bool {
	o.pauseMu.Lock()
	defer o.pauseMu.Unlock()

	return o.paused
}

func (o *Orchestrator) waitIfPaused(ctx context.Context) error {
	o.pauseMu.Lock()

	if !o.paused {
		o.pauseMu.Unlock()
		return nil
	}

	ch := o.pauseCh
	o.pauseMu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
