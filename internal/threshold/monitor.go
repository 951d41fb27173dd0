package threshold

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// Monitor holds the threshold registry and the runtime alert store. Both are
// in-process state: alert history does not survive a restart. The monitor is
// the only component that mutates alerts.
type Monitor struct {
	mu         sync.RWMutex
	thresholds map[string]*Config
	alerts     map[string]*Alert
	checks     map[string]*checkState
	seq        uint64
	now        func() time.Time
}

// checkState carries per-threshold cooldown bookkeeping. Its mutex makes the
// read-cooldown/evaluate/record-alert sequence a single critical section per
// threshold, so concurrent checks cannot double-fire inside a cooldown window
// and unrelated thresholds never serialize on each other.
type checkState struct {
	mu        sync.Mutex
	lastAlert time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{
		thresholds: make(map[string]*Config),
		alerts:     make(map[string]*Alert),
		checks:     make(map[string]*checkState),
		now:        time.Now,
	}
}

// Register upserts a threshold config keyed by id. Malformed condition/value
// shapes are accepted (they simply never breach) but logged so the mistake
// surfaces here instead of as a silent non-alert later.
func (m *Monitor) Register(cfg Config) {
	if err := cfg.Validate(); err != nil {
		log.Printf("Warning: threshold %q registered with invalid config: %v", cfg.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[cfg.ID] = &cfg
	// Re-registering keeps the existing cooldown state: updating a rule does
	// not grant it a free extra alert.
	if _, ok := m.checks[cfg.ID]; !ok {
		m.checks[cfg.ID] = &checkState{}
	}
}

func (m *Monitor) RegisterAll(cfgs []Config) {
	for _, cfg := range cfgs {
		m.Register(cfg)
	}
}

// Remove deletes a threshold; no-op if absent. Alerts already raised by it
// are untouched.
func (m *Monitor) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.thresholds, id)
	delete(m.checks, id)
}

// Threshold returns a copy of the registered config.
func (m *Monitor) Threshold(id string) (Config, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.thresholds[id]
	if !ok {
		return Config{}, false
	}
	return *cfg, true
}

// Thresholds returns all registered configs sorted by id.
func (m *Monitor) Thresholds() []Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Config, 0, len(m.thresholds))
	for _, cfg := range m.thresholds {
		out = append(out, *cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Check evaluates currentValue against the threshold. Unknown, disabled and
// cooling-down thresholds come back as non-breaches with a reason, not as
// errors. A breach creates and stores an active alert and starts the cooldown
// window, so this is a mutating call and must not be invoked speculatively.
func (m *Monitor) Check(thresholdID string, currentValue float64) CheckResult {
	m.mu.RLock()
	cfg := m.thresholds[thresholdID]
	state := m.checks[thresholdID]
	m.mu.RUnlock()

	result := CheckResult{ThresholdID: thresholdID}
	if cfg == nil || state == nil {
		result.Reason = "unknown threshold"
		return result
	}
	if !cfg.Enabled {
		result.Reason = "threshold disabled"
		return result
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	now := m.now()
	if cfg.CooldownMinutes > 0 && !state.lastAlert.IsZero() {
		cooldown := time.Duration(cfg.CooldownMinutes) * time.Minute
		if now.Sub(state.lastAlert) < cooldown {
			result.Reason = "in cooldown"
			return result
		}
	}

	if !evaluate(cfg.Condition, currentValue, cfg.Value) {
		return result
	}

	alert := &Alert{
		ThresholdID:    cfg.ID,
		Metric:         cfg.Metric,
		Severity:       cfg.Severity,
		Status:         AlertStatusActive,
		Message:        formatAlertMessage(cfg, currentValue),
		CurrentValue:   currentValue,
		ThresholdValue: cfg.Value,
		DashboardID:    cfg.DashboardID,
		TriggeredAt:    now,
	}
	state.lastAlert = now

	m.mu.Lock()
	// A monotonic sequence disambiguates breaches landing on the same clock
	// millisecond; without it the second alert would overwrite the first.
	m.seq++
	alert.ID = fmt.Sprintf("%s-%d-%d", cfg.ID, now.UnixMilli(), m.seq)
	m.alerts[alert.ID] = alert
	m.mu.Unlock()

	copied := *alert
	result.Breached = true
	result.Alert = &copied
	return result
}

// CheckMetrics evaluates every enabled threshold whose metric appears in the
// supplied map and returns only the breaching results. Order is map iteration
// order and carries no meaning.
func (m *Monitor) CheckMetrics(metrics map[string]float64) []CheckResult {
	m.mu.RLock()
	ids := make([]string, 0, len(m.thresholds))
	for id, cfg := range m.thresholds {
		if _, ok := metrics[cfg.Metric]; ok && cfg.Enabled {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	var breaches []CheckResult
	for _, id := range ids {
		cfg, ok := m.Threshold(id)
		if !ok {
			continue
		}
		if r := m.Check(id, metrics[cfg.Metric]); r.Breached {
			breaches = append(breaches, r)
		}
	}
	return breaches
}

// Acknowledge transitions an active alert to acknowledged. Returns false for
// an unknown alert id or an alert that is not currently active, so batch
// callers can proceed over individual misses.
func (m *Monitor) Acknowledge(alertID, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[alertID]
	if !ok || alert.Status != AlertStatusActive {
		return false
	}
	now := m.now()
	alert.Status = AlertStatusAcknowledged
	alert.AcknowledgedBy = userID
	alert.AcknowledgedAt = &now
	return true
}

// Resolve transitions an alert to resolved regardless of its current status.
// Returns false only for an unknown alert id.
func (m *Monitor) Resolve(alertID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[alertID]
	if !ok {
		return false
	}
	now := m.now()
	alert.Status = AlertStatusResolved
	alert.ResolvedAt = &now
	return true
}

// ActiveAlerts returns active alerts matching the filter, newest first.
func (m *Monitor) ActiveAlerts(filter *AlertFilter) []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, 0)
	for _, alert := range m.alerts {
		if alert.Status != AlertStatusActive {
			continue
		}
		if filter != nil {
			if filter.Severity != "" && alert.Severity != filter.Severity {
				continue
			}
			if filter.DashboardID != "" && alert.DashboardID != filter.DashboardID {
				continue
			}
		}
		out = append(out, *alert)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggeredAt.After(out[j].TriggeredAt) })
	return out
}

// AllAlerts returns every stored alert regardless of status, newest first.
func (m *Monitor) AllAlerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		out = append(out, *alert)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggeredAt.After(out[j].TriggeredAt) })
	return out
}

// ClearResolved drops resolved alerts from the store and returns how many
// were removed.
func (m *Monitor) ClearResolved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, alert := range m.alerts {
		if alert.Status == AlertStatusResolved {
			delete(m.alerts, id)
			removed++
		}
	}
	return removed
}

func formatAlertMessage(cfg *Config, currentValue float64) string {
	return fmt.Sprintf("Threshold breached: %s is %.2f (%s %s)",
		cfg.Metric, currentValue, cfg.Condition, cfg.Value)
}
