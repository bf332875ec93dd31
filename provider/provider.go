// Package provider resolves phone numbers to carrier names through an
// external lookup backend, in batches of up to five numbers.
package provider

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/leadscout/leadscout/errlog"
)

const (
	BatchSize = 5

	// Unknown is what any unresolvable number degrades to.
	Unknown = "Unknown"

	marker = "serviced by "
)

// Backend answers one batch of up to BatchSize cleaned numbers. A number
// missing from the returned map counts as a per-number failure.
type Backend interface {
	Lookup(ctx context.Context, numbers []string) (map[string]string, error)
}

// CleanPhoneNumber strips every non-digit and rewrites a leading
// international "27" prefix to "0". Cleaning is idempotent.
func CleanPhoneNumber(raw string) string {
	var b strings.Builder

	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	digits := b.String()

	if digits == "27" {
		return "0"
	}

	if strings.HasPrefix(digits, "27") && len(digits) > 2 {
		return "0" + digits[2:]
	}

	return digits
}

// BatchesOfFive partitions numbers into ordered chunks of BatchSize; the
// last chunk may hold fewer. Concatenating the batches reproduces the
// input exactly.
func BatchesOfFive(numbers []string) [][]string {
	var batches [][]string

	for start := 0; start < len(numbers); start += BatchSize {
		end := start + BatchSize
		if end > len(numbers) {
			end = len(numbers)
		}

		batches = append(batches, numbers[start:end])
	}

	return batches
}

// ParseProvider extracts the carrier name from the backend's response
// text: the first whitespace-delimited token after "serviced by ", with
// trailing punctuation stripped. Anything else is Unknown.
func ParseProvider(text string) string {
	idx := indexFold(text, marker)
	if idx < 0 {
		return Unknown
	}

	rest := strings.TrimLeft(text[idx+len(marker):], " \t")

	token := rest
	if cut := strings.IndexFunc(rest, unicode.IsSpace); cut >= 0 {
		token = rest[:cut]
	}

	token = strings.TrimRight(token, ".,;:!?")

	if token == "" {
		return Unknown
	}

	return token
}

// indexFold reports the byte offset of the first case-insensitive match
// of the ascii substr within s. Lowering s first would skew offsets for
// runes whose case mapping changes byte length.
func indexFold(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}

	return -1
}

// Service batches and concurrently resolves phone numbers.
type Service struct {
	backend              Backend
	maxConcurrentBatches int
	log                  *zap.Logger
	errs                 *errlog.Logger
}

func NewService(backend Backend, maxConcurrentBatches int, log *zap.Logger, errs *errlog.Logger) *Service {
	if maxConcurrentBatches < 1 {
		maxConcurrentBatches = 1
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		backend:              backend,
		maxConcurrentBatches: maxConcurrentBatches,
		log:                  log,
		errs:                 errs,
	}
}

// LookupProviders cleans the inputs, drops blanks, and resolves the rest
// in concurrent batches. Any per-number failure degrades that entry to
// Unknown; the call itself never fails.
func (s *Service) LookupProviders(ctx context.Context, phoneNumbers []string) map[string]string {
	results := make(map[string]string)

	if len(phoneNumbers) == 0 {
		return results
	}

	var cleaned []string

	seen := make(map[string]struct{})

	for _, raw := range phoneNumbers {
		num := CleanPhoneNumber(raw)
		if num == "" {
			continue
		}

		if _, ok := seen[num]; ok {
			continue
		}

		seen[num] = struct{}{}
		cleaned = append(cleaned, num)
	}

	if len(cleaned) == 0 {
		return results
	}

	batches := BatchesOfFive(cleaned)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(int64(s.maxConcurrentBatches))
	)

	for _, batch := range batches {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)

		go func(batch []string) {
			defer wg.Done()
			defer sem.Release(1)

			found := s.lookupBatch(ctx, batch)

			mu.Lock()
			for num, name := range found {
				results[num] = name
			}
			mu.Unlock()
		}(batch)
	}

	wg.Wait()

	// anything the backend never answered degrades to Unknown
	for _, num := range cleaned {
		if _, ok := results[num]; !ok {
			results[num] = Unknown
		}
	}

	return results
}

func (s *Service) lookupBatch(ctx context.Context, batch []string) map[string]string {
	found, err := s.backend.Lookup(ctx, batch)
	if err != nil {
		if s.errs != nil {
			ctxMap := make(map[string]any, len(batch))

			for i, num := range batch {
				ctxMap[batchKey(i)] = num
			}

			s.errs.LogProviderLookupError("batch lookup failed", err, ctxMap)
		}

		return nil
	}

	out := make(map[string]string, len(found))

	for num, name := range found {
		if strings.TrimSpace(name) == "" {
			name = Unknown
		}

		out[num] = name
	}

	return out
}

func batchKey(i int) string {
	return "number_" + strconv.Itoa(i)
}
