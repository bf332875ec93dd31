// Package errlog is the shared bounded error sink. One Logger is created
// at process start and injected into every component; it is never rebuilt
// per call.
package errlog

import (
	"encoding/json"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadscout/leadscout/pkg/ring"
)

const DefaultCapacity = 1000

type Level string

const (
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

type Category string

const (
	CategoryAPI            Category = "api"
	CategoryScraping       Category = "scraping"
	CategoryBrowser        Category = "browser"
	CategoryProviderLookup Category = "provider_lookup"
	CategoryDatabase       Category = "database"
	CategoryValidation     Category = "validation"
	CategoryGeneral        Category = "general"
)

type ErrorDetail struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	Code    string `json:"code,omitempty"`
}

type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  Category       `json:"category"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	Error     *ErrorDetail   `json:"error,omitempty"`
}

type Stats struct {
	Total      int              `json:"total"`
	ByLevel    map[Level]int    `json:"by_level"`
	ByCategory map[Category]int `json:"by_category"`
	Recent     []Record         `json:"recent"`
}

// Logger keeps the most recent records in a fixed-capacity buffer and
// mirrors everything to the structured logger. Safe for concurrent use.
type Logger struct {
	mu   sync.Mutex
	buf  *ring.Buffer[Record]
	log  *zap.Logger
	now  func() time.Time
}

func New(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}

	return &Logger{
		buf: ring.New[Record](DefaultCapacity),
		log: log,
		now: time.Now,
	}
}

func (l *Logger) record(level Level, category Category, msg string, ctx map[string]any, err error) {
	rec := Record{
		Timestamp: l.now().UTC(),
		Level:     level,
		Category:  category,
		Message:   msg,
		Context:   ctx,
	}

	if err != nil {
		rec.Error = &ErrorDetail{Message: err.Error()}
	}

	l.mu.Lock()
	l.buf.Push(rec)
	l.mu.Unlock()

	fields := []zap.Field{zap.String("category", string(category))}

	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	for k, v := range ctx {
		fields = append(fields, zap.Any(k, v))
	}

	switch level {
	case LevelWarning:
		l.log.Warn(msg, fields...)
	default:
		l.log.Error(msg, fields...)
	}
}

func (l *Logger) LogError(msg string, err error, ctx map[string]any) {
	l.record(LevelError, CategoryGeneral, msg, ctx, err)
}

func (l *Logger) LogWarning(msg string, ctx map[string]any) {
	l.record(LevelWarning, CategoryGeneral, msg, ctx, nil)
}

func (l *Logger) LogAPIError(msg string, err error, ctx map[string]any) {
	l.record(LevelError, CategoryAPI, msg, ctx, err)
}

func (l *Logger) LogScrapingError(msg string, err error, ctx map[string]any) {
	l.record(LevelError, CategoryScraping, msg, ctx, err)
}

// LogBrowserError records a browser infrastructure failure. These are
// always critical.
func (l *Logger) LogBrowserError(msg string, err error, ctx map[string]any) {
	l.record(LevelCritical, CategoryBrowser, msg, ctx, err)
}

// LogDatabaseError records a storage failure. Always critical.
func (l *Logger) LogDatabaseError(msg string, err error, ctx map[string]any) {
	l.record(LevelCritical, CategoryDatabase, msg, ctx, err)
}

// LogProviderLookupError masks phone-shaped context values before
// recording.
func (l *Logger) LogProviderLookupError(msg string, err error, ctx map[string]any) {
	l.record(LevelError, CategoryProviderLookup, msg, maskContextMap(ctx), err)
}

func (l *Logger) LogValidationError(msg string, ctx map[string]any) {
	l.record(LevelWarning, CategoryValidation, msg, maskContextMap(ctx), nil)
}

// ByLevel returns all buffered records at the given level, oldest first.
func (l *Logger) ByLevel(level Level) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Record

	for _, rec := range l.buf.Items() {
		if rec.Level == level {
			out = append(out, rec)
		}
	}

	return out
}

func (l *Logger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := l.buf.Items()

	stats := Stats{
		Total:      len(items),
		ByLevel:    make(map[Level]int),
		ByCategory: make(map[Category]int),
		Recent:     l.buf.Tail(10),
	}

	for _, rec := range items {
		stats.ByLevel[rec.Level]++
		stats.ByCategory[rec.Category]++
	}

	return stats
}

// Export serializes the full buffer as JSON, oldest first.
func (l *Logger) Export() ([]byte, error) {
	l.mu.Lock()
	items := l.buf.Items()
	l.mu.Unlock()

	return json.MarshalIndent(items, "", "  ")
}

func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buf.Len()
}

func (l *Logger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buf.Items()
}

func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Clear()
}

// Reset restores a pristine state. Intended for tests only.
func (l *Logger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = ring.New[Record](DefaultCapacity)
	l.now = time.Now
}

var phoneShaped = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{5,}$`)

// MaskPhone hides all but the last 4 digits of a phone-shaped value.
// Values with fewer than 4 digits mask to "****".
func MaskPhone(val string) string {
	digits := make([]rune, 0, len(val))

	for _, r := range val {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}

	if len(digits) < 4 {
		return "****"
	}

	return "******" + string(digits[len(digits)-4:])
}

func maskContextMap(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}

	out := make(map[string]any, len(ctx))

	for k, v := range ctx {
		if s, ok := v.(string); ok && phoneShaped.MatchString(s) {
			out[k] = MaskPhone(s)
			continue
		}

		out[k] = v
	}

	return out
}
