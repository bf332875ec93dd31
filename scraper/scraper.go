// Package scraper turns one town's industry queries into normalized
// business records, driving a single browser page through the
// navigation layer.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/leadscout/leadscout/errlog"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/navigation"
	"github.com/leadscout/leadscout/runlog"
)

// ListResultCap bounds how many candidates a list view may yield.
const ListResultCap = 3

// PageKind classifies a loaded results page.
type PageKind int

const (
	KindList PageKind = iota
	KindDetails
)

func (k PageKind) String() string {
	if k == KindDetails {
		return "details"
	}

	return "list"
}

// Candidate is one raw record handed over by the extraction layer. The
// worker never inspects markup, only these maps.
type Candidate map[string]string

// Extractor is the DOM-specific collaborator. Classify inspects the
// currently loaded page; Candidates returns its raw records (at most one
// for a details page).
type Extractor interface {
	Classify(ctx context.Context) (PageKind, error)
	Candidates(ctx context.Context, kind PageKind) ([]Candidate, error)
}

// Worker owns one page handle for its lifetime and processes towns
// sequentially against the full industry list.
type Worker struct {
	nav       *navigation.Manager
	opener    navigation.Opener
	extractor Extractor
	searchURL string
	log       *zap.Logger
	errs      *errlog.Logger
	runLog    *runlog.Manager
}

type WorkerConfig struct {
	Navigation *navigation.Manager
	Opener     navigation.Opener
	Extractor  Extractor

	// SearchURL is a template with %s placeholders for the industry and
	// town query terms, in that order.
	SearchURL string

	Logger   *zap.Logger
	Errors   *errlog.Logger
	RunLog   *runlog.Manager
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Navigation == nil {
		return nil, fmt.Errorf("navigation manager is required")
	}

	if cfg.Opener == nil {
		return nil, fmt.Errorf("page opener is required")
	}

	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}

	if cfg.SearchURL == "" {
		return nil, fmt.Errorf("search url template is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Worker{
		nav:       cfg.Navigation,
		opener:    cfg.Opener,
		extractor: cfg.Extractor,
		searchURL: cfg.SearchURL,
		log:       cfg.Logger,
		errs:      cfg.Errors,
		runLog:    cfg.RunLog,
	}, nil
}

// ProcessTown scrapes every industry for one town. Per-industry and
// per-candidate failures are recorded and skipped; the returned slice
// holds everything that parsed successfully.
func (w *Worker) ProcessTown(ctx context.Context, town string, industries []string) []models.Business {
	var results []models.Business

	for _, industry := range industries {
		if ctx.Err() != nil {
			return results
		}

		w.industryProgress(town, industry, "scraping")

		businesses, err := w.processIndustry(ctx, town, industry)
		if err != nil {
			w.industryProgress(town, industry, "failed")

			if w.runLog != nil {
				w.runLog.LogError(town, industry, err.Error())
			}

			continue
		}

		results = append(results, businesses...)

		w.industryProgress(town, industry, fmt.Sprintf("done (%d)", len(businesses)))
	}

	return results
}

func (w *Worker) processIndustry(ctx context.Context, town, industry string) ([]models.Business, error) {
	target := w.queryURL(town, industry)

	if err := w.nav.NavigateWithRetry(ctx, w.opener, target); err != nil {
		return nil, err
	}

	kind, err := w.extractor.Classify(ctx)
	if err != nil {
		return nil, fmt.Errorf("classify page: %w", err)
	}

	candidates, err := w.extractor.Candidates(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("extract candidates: %w", err)
	}

	limit := ListResultCap
	if kind == KindDetails {
		limit = 1
	}

	var out []models.Business

	for _, candidate := range candidates {
		if len(out) >= limit {
			break
		}

		business, ok := w.normalize(candidate, town, industry)
		if !ok {
			continue
		}

		out = append(out, business)
	}

	w.log.Debug("industry scraped",
		zap.String("town", town),
		zap.String("industry", industry),
		zap.Stringer("page_kind", kind),
		zap.Int("candidates", len(candidates)),
		zap.Int("kept", len(out)),
	)

	return out, nil
}

// normalize filters extraction artifacts and fills defaults. A rejected
// candidate is skipped, never aborts the batch.
func (w *Worker) normalize(candidate Candidate, town, industry string) (models.Business, bool) {
	name := strings.TrimSpace(candidate["name"])

	switch {
	case name == "":
		return models.Business{}, false
	case LooksLikeOpeningHours(name):
		w.rejectCandidate(name, town, "name looks like opening hours")
		return models.Business{}, false
	case LooksLikeRating(name):
		w.rejectCandidate(name, town, "name looks like a rating")
		return models.Business{}, false
	case LooksLikePhoneNumber(name):
		w.rejectCandidate(name, town, "name looks like a phone number")
		return models.Business{}, false
	}

	return models.Business{
		Name:           name,
		Phone:          strings.TrimSpace(candidate["phone"]),
		Address:        strings.TrimSpace(candidate["address"]),
		MapsAddress:    strings.TrimSpace(candidate["maps_address"]),
		TypeOfBusiness: industry,
		Town:           town,
	}, true
}

func (w *Worker) rejectCandidate(name, town, reason string) {
	w.log.Debug("candidate rejected", zap.String("town", town), zap.String("reason", reason))

	if w.errs != nil {
		w.errs.LogValidationError(reason, map[string]any{"value": name, "town": town})
	}
}

func (w *Worker) industryProgress(town, industry, status string) {
	if w.runLog != nil {
		w.runLog.LogIndustryProgress(town, industry, status)
	}
}

func (w *Worker) queryURL(town, industry string) string {
	return fmt.Sprintf(w.searchURL, url.QueryEscape(industry), url.QueryEscape(town))
}

// Navigation exposes the worker's private navigation state for
// statistics reporting.
func (w *Worker) Navigation() *navigation.Manager {
	return w.nav
}
