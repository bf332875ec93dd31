package scraper_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/errlog"
	"github.com/leadscout/leadscout/navigation"
	"github.com/leadscout/leadscout/runlog"
	"github.com/leadscout/leadscout/scraper"
)

type stubOpener struct {
	urls []string
	fail map[string]bool
}

func (o *stubOpener) Open(_ context.Context, url string, _ navigation.WaitStrategy, _ time.Duration) error {
	o.urls = append(o.urls, url)

	if o.fail[url] {
		return errors.New("timeout")
	}

	return nil
}

type stubExtractor struct {
	kind       scraper.PageKind
	candidates []scraper.Candidate
	err        error
}

func (e *stubExtractor) Classify(context.Context) (scraper.PageKind, error) {
	return e.kind, e.err
}

func (e *stubExtractor) Candidates(_ context.Context, _ scraper.PageKind) ([]scraper.Candidate, error) {
	if e.err != nil {
		return nil, e.err
	}

	return e.candidates, nil
}

func navManager(t *testing.T) *navigation.Manager {
	t.Helper()

	opts := navigation.DefaultOptions()
	opts.MaxRetries = 1
	opts.BaseDelay = 0

	m, err := navigation.NewManager(opts, nil, nil)
	require.NoError(t, err)

	return m
}

func newWorker(t *testing.T, opener navigation.Opener, extractor scraper.Extractor, rl *runlog.Manager) *scraper.Worker {
	t.Helper()

	w, err := scraper.NewWorker(scraper.WorkerConfig{
		Navigation: navManager(t),
		Opener:     opener,
		Extractor:  extractor,
		SearchURL:  "https://directory.example/search?what=%s&where=%s",
		Errors:     errlog.New(nil),
		RunLog:     rl,
	})
	require.NoError(t, err)

	return w
}

func TestListViewCappedAtThree(t *testing.T) {
	candidates := make([]scraper.Candidate, 10)
	for i := range candidates {
		candidates[i] = scraper.Candidate{"name": fmt.Sprintf("Business %d", i), "phone": "0821234567"}
	}

	extractor := &stubExtractor{kind: scraper.KindList, candidates: candidates}
	worker := newWorker(t, &stubOpener{}, extractor, nil)

	got := worker.ProcessTown(context.Background(), "Benoni", []string{"plumbers"})

	require.Len(t, got, 3)

	// original order preserved, each tagged with industry and town
	for i, b := range got {
		assert.Equal(t, fmt.Sprintf("Business %d", i), b.Name)
		assert.Equal(t, "plumbers", b.TypeOfBusiness)
		assert.Equal(t, "Benoni", b.Town)
	}
}

func TestDetailsViewYieldsAtMostOne(t *testing.T) {
	extractor := &stubExtractor{kind: scraper.KindDetails, candidates: []scraper.Candidate{
		{"name": "Solo Bakery"},
		{"name": "Phantom Second Record"},
	}}

	worker := newWorker(t, &stubOpener{}, extractor, nil)

	got := worker.ProcessTown(context.Background(), "Nigel", []string{"bakeries"})

	require.Len(t, got, 1)
	assert.Equal(t, "Solo Bakery", got[0].Name)
}

func TestCandidateFiltering(t *testing.T) {
	extractor := &stubExtractor{kind: scraper.KindList, candidates: []scraper.Candidate{
		{"name": "   "},
		{"name": "Open 24 hours"},
		{"name": "4.5 (300)"},
		{"name": "0821234567"},
		{"name": "Real Business", "phone": "082 111 2222", "address": "1 Main Rd"},
	}}

	worker := newWorker(t, &stubOpener{}, extractor, nil)

	got := worker.ProcessTown(context.Background(), "Springs", []string{"cafes"})

	require.Len(t, got, 1)
	assert.Equal(t, "Real Business", got[0].Name)
	assert.Equal(t, "082 111 2222", got[0].Phone)
	assert.Equal(t, "1 Main Rd", got[0].Address)

	// optional fields default to empty strings
	assert.Equal(t, "", got[0].MapsAddress)
	assert.Equal(t, "", got[0].Provider)
}

func TestIndustryFailureDoesNotAbortTown(t *testing.T) {
	opener := &stubOpener{fail: map[string]bool{
		"https://directory.example/search?what=plumbers&where=Benoni": true,
	}}

	extractor := &stubExtractor{kind: scraper.KindList, candidates: []scraper.Candidate{
		{"name": "Survivor Cafe"},
	}}

	rl := runlog.New(nil)
	worker := newWorker(t, opener, extractor, rl)

	got := worker.ProcessTown(context.Background(), "Benoni", []string{"plumbers", "cafes"})

	require.Len(t, got, 1)
	assert.Equal(t, "Survivor Cafe", got[0].Name)

	tl, ok := rl.Town("Benoni")
	require.True(t, ok)
	require.Len(t, tl.Errors, 1)
	assert.Contains(t, tl.Errors[0], "plumbers:")
	assert.Equal(t, "failed", tl.IndustryProgress["plumbers"])
	assert.Equal(t, "done (1)", tl.IndustryProgress["cafes"])
}

func TestQueryURLEscaping(t *testing.T) {
	opener := &stubOpener{}
	extractor := &stubExtractor{kind: scraper.KindList}

	worker := newWorker(t, opener, extractor, nil)

	worker.ProcessTown(context.Background(), "Cape Town", []string{"fish & chips"})

	require.Len(t, opener.urls, 1)
	assert.Equal(t, "https://directory.example/search?what=fish+%26+chips&where=Cape+Town", opener.urls[0])
}

func TestClassifyErrorRecordedAndSkipped(t *testing.T) {
	extractor := &stubExtractor{err: errors.New("page gone")}
	rl := runlog.New(nil)

	worker := newWorker(t, &stubOpener{}, extractor, rl)

	got := worker.ProcessTown(context.Background(), "Delmas", []string{"butchers"})

	assert.Empty(t, got)

	tl, _ := rl.Town("Delmas")
	require.Len(t, tl.Errors, 1)
	assert.Contains(t, tl.Errors[0], "classify page")
}
