package browser

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadscout/leadscout/scraper"
)

// Selectors describes where the extractor finds its fields. Defaults
// target the maps result markup; they are configuration, not code, so a
// markup change needs no recompile of the scraping pipeline.
type Selectors struct {
	// DetailsMarker matches only when a single place page is loaded.
	DetailsMarker string

	// ListItem matches each result card in a list view.
	ListItem string

	Name        string
	Phone       string
	Address     string
	MapsAddress string
}

func DefaultSelectors() Selectors {
	return Selectors{
		DetailsMarker: `div[role='main'][aria-label]`,
		ListItem:      `div[role='article']`,
		Name:          `.qBF1Pd, h1`,
		Phone:         `span[aria-label^='Phone'], button[data-item-id^='phone'] div.fontBodyMedium`,
		Address:       `button[data-item-id='address'] div.fontBodyMedium, .W4Efsd span:last-child`,
		MapsAddress:   `a[href]`,
	}
}

// ContentSource yields the current page DOM. *Handle implements it.
type ContentSource interface {
	Content() (string, error)
}

// Extractor parses the loaded page into raw candidates. It satisfies
// scraper.Extractor.
type Extractor struct {
	source ContentSource
	sel    Selectors
}

func NewExtractor(source ContentSource, sel Selectors) *Extractor {
	ans := Extractor{
		source: source,
		sel:    sel,
	}

	return &ans
}

func (e *Extractor) Classify(_ context.Context) (scraper.PageKind, error) {
	doc, err := e.document()
	if err != nil {
		return scraper.KindList, err
	}

	if doc.Find(e.sel.ListItem).Length() > 0 {
		return scraper.KindList, nil
	}

	if doc.Find(e.sel.DetailsMarker).Length() > 0 {
		return scraper.KindDetails, nil
	}

	return scraper.KindList, nil
}

func (e *Extractor) Candidates(_ context.Context, kind scraper.PageKind) ([]scraper.Candidate, error) {
	doc, err := e.document()
	if err != nil {
		return nil, err
	}

	if kind == scraper.KindDetails {
		candidate := e.fromSelection(doc.Selection)
		if len(candidate) == 0 {
			return nil, nil
		}

		return []scraper.Candidate{candidate}, nil
	}

	var out []scraper.Candidate

	doc.Find(e.sel.ListItem).Each(func(_ int, s *goquery.Selection) {
		candidate := e.fromSelection(s)
		if len(candidate) > 0 {
			out = append(out, candidate)
		}
	})

	return out, nil
}

func (e *Extractor) document() (*goquery.Document, error) {
	html, err := e.source.Content()
	if err != nil {
		return nil, err
	}

	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (e *Extractor) fromSelection(s *goquery.Selection) scraper.Candidate {
	candidate := scraper.Candidate{}

	set := func(key, value string) {
		value = strings.TrimSpace(value)
		if value != "" {
			candidate[key] = value
		}
	}

	set("name", firstText(s, e.sel.Name))
	set("phone", firstText(s, e.sel.Phone))
	set("address", firstText(s, e.sel.Address))

	if href, ok := s.Find(e.sel.MapsAddress).First().Attr("href"); ok {
		set("maps_address", href)
	}

	return candidate
}

func firstText(s *goquery.Selection, selector string) string {
	return s.Find(selector).First().Text()
}
