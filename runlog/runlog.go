// Package runlog tracks the structured per-town progress log of a single
// scraping run.
package runlog

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadscout/leadscout/pkg/ring"
)

const DefaultDisplayCapacity = 300

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type TownStatus string

const (
	TownInProgress TownStatus = "in_progress"
	TownCompleted  TownStatus = "completed"
	TownError      TownStatus = "error"
)

type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

type TownLog struct {
	TownName         string            `json:"town_name"`
	Status           TownStatus        `json:"status"`
	LeadCount        int               `json:"lead_count"`
	Errors           []string          `json:"errors"`
	IndustryProgress map[string]string `json:"industry_progress"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          time.Time         `json:"end_time"`
}

type Summary struct {
	TotalTowns      int           `json:"total_towns"`
	CompletedTowns  int           `json:"completed_towns"`
	TotalLeads      int           `json:"total_leads"`
	TotalErrors     int           `json:"total_errors"`
	TotalDuration   time.Duration `json:"total_duration"`
	AverageDuration time.Duration `json:"average_duration"`
}

// Manager is the per-run log sink. The display buffer is bounded; the
// full log keeps every entry for the lifetime of the run.
type Manager struct {
	mu      sync.Mutex
	towns   map[string]*TownLog
	order   []string
	display *ring.Buffer[Entry]
	full    []Entry
	started time.Time
	log     *zap.Logger
	now     func() time.Time
}

func New(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}

	m := Manager{
		towns:   make(map[string]*TownLog),
		display: ring.New[Entry](DefaultDisplayCapacity),
		log:     log,
		now:     time.Now,
	}

	m.started = m.now()

	return &m
}

// town returns the record for name, creating it when a completion or
// error arrives before the start was logged.
func (m *Manager) town(name string) *TownLog {
	tl, ok := m.towns[name]
	if !ok {
		tl = &TownLog{
			TownName:         name,
			Status:           TownInProgress,
			IndustryProgress: make(map[string]string),
			StartTime:        m.now(),
		}

		m.towns[name] = tl
		m.order = append(m.order, name)
	}

	return tl
}

func (m *Manager) append(level Level, msg string) {
	entry := Entry{
		Timestamp: m.now(),
		Level:     level,
		Message:   msg,
	}

	m.display.Push(entry)
	m.full = append(m.full, entry)
}

func (m *Manager) LogMessage(level Level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.append(level, msg)
}

func (m *Manager) LogTownStart(town string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tl := m.town(town)
	tl.Status = TownInProgress
	tl.StartTime = m.now()

	m.append(LevelInfo, fmt.Sprintf("started %s", town))
	m.log.Info("town started", zap.String("town", town))
}

func (m *Manager) LogTownComplete(town string, leadCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tl := m.town(town)
	tl.Status = TownCompleted
	tl.LeadCount = leadCount
	tl.EndTime = m.now()

	m.append(LevelSuccess, fmt.Sprintf("completed %s with %d leads", town, leadCount))
	m.log.Info("town completed", zap.String("town", town), zap.Int("leads", leadCount))
}

func (m *Manager) LogIndustryProgress(town, industry, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tl := m.town(town)
	tl.IndustryProgress[industry] = status

	m.append(LevelInfo, fmt.Sprintf("%s / %s: %s", town, industry, status))
}

// LogError appends an "industry: message" entry to the town's error list.
// Errors arriving after the town completed do not revert its status.
func (m *Manager) LogError(town, industry, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tl := m.town(town)
	tl.Errors = append(tl.Errors, fmt.Sprintf("%s: %s", industry, msg))

	if tl.Status != TownCompleted {
		tl.Status = TownError
	}

	m.append(LevelError, fmt.Sprintf("%s / %s: %s", town, industry, msg))
	m.log.Warn("town error", zap.String("town", town), zap.String("industry", industry), zap.String("error", msg))
}

func (m *Manager) Town(name string) (TownLog, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tl, ok := m.towns[name]
	if !ok {
		return TownLog{}, false
	}

	return cloneTown(tl), true
}

// Towns returns all town records in first-seen order.
func (m *Manager) Towns() []TownLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TownLog, 0, len(m.order))

	for _, name := range m.order {
		out = append(out, cloneTown(m.towns[name]))
	}

	return out
}

func (m *Manager) DisplayLog() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.display.Items()
}

func (m *Manager) RecentLog(n int) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.display.Tail(n)
}

func (m *Manager) FullLog() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, len(m.full))
	copy(out, m.full)

	return out
}

// SetDisplayCapacity resizes the display buffer. Shrinking trims to the
// most recent n entries.
func (m *Manager) SetDisplayCapacity(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.display.Resize(n)
}

func (m *Manager) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := Summary{
		TotalTowns:    len(m.towns),
		TotalDuration: m.now().Sub(m.started),
	}

	var completedDuration time.Duration

	for _, tl := range m.towns {
		sum.TotalLeads += tl.LeadCount
		sum.TotalErrors += len(tl.Errors)

		if tl.Status == TownCompleted {
			sum.CompletedTowns++
			completedDuration += tl.EndTime.Sub(tl.StartTime)
		}
	}

	if sum.CompletedTowns > 0 {
		sum.AverageDuration = completedDuration / time.Duration(sum.CompletedTowns)
	}

	return sum
}

// Clear resets all state and restarts the session clock.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.towns = make(map[string]*TownLog)
	m.order = nil
	m.display.Clear()
	m.full = nil
	m.started = m.now()
}

func cloneTown(tl *TownLog) TownLog {
	out := *tl
	out.Errors = append([]string(nil), tl.Errors...)
	out.IndustryProgress = make(map[string]string, len(tl.IndustryProgress))

	for k, v := range tl.IndustryProgress {
		out.IndustryProgress[k] = v
	}

	return out
}
