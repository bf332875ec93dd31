package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPBackend queries a porting-check endpoint one batch at a time. The
// endpoint receives the numbers as a form post and answers with one text
// line per number containing the "serviced by" phrase.
type HTTPBackend struct {
	endpoint string
	client   *http.Client
}

func NewHTTPBackend(endpoint string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPBackend{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) Lookup(ctx context.Context, numbers []string) (map[string]string, error) {
	form := url.Values{}

	for _, num := range numbers {
		form.Add("numbers", num)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	return parseBatchResponse(numbers, string(body)), nil
}

// parseBatchResponse pairs response lines with the numbers they mention.
// A number with no matching line is simply absent from the result and
// degrades to Unknown upstream.
func parseBatchResponse(numbers []string, body string) map[string]string {
	out := make(map[string]string)

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for _, num := range numbers {
			if strings.Contains(line, num) {
				out[num] = ParseProvider(line)
				break
			}
		}
	}

	return out
}
