package threshold

import (
	"encoding/json"
	"fmt"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Condition string

const (
	ConditionGreaterThan Condition = "greater_than"
	ConditionLessThan    Condition = "less_than"
	ConditionEquals      Condition = "equals"
	ConditionNotEquals   Condition = "not_equals"
	ConditionBetween     Condition = "between"
	ConditionOutside     Condition = "outside"
)

// Value is the comparison value of a threshold: a single number for scalar
// conditions, an ordered [low, high] pair for between/outside. On the wire it
// accepts either `10` or `[10, 20]`.
type Value []float64

func Scalar(v float64) Value     { return Value{v} }
func Range(lo, hi float64) Value { return Value{lo, hi} }

func (v *Value) UnmarshalJSON(data []byte) error {
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		*v = Value{scalar}
		return nil
	}
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("threshold value must be a number or a [low, high] pair")
	}
	*v = Value(pair)
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]float64(v))
}

func (v Value) String() string {
	if len(v) == 1 {
		return fmt.Sprintf("%.2f", v[0])
	}
	if len(v) == 2 {
		return fmt.Sprintf("[%.2f, %.2f]", v[0], v[1])
	}
	return fmt.Sprintf("%v", []float64(v))
}

// Config is an operator-authored threshold rule. NotificationChannels is
// informational only: the monitor never consults it, delivery routing is
// decided downstream by whoever turns the alert into a notification.
type Config struct {
	ID                   string            `json:"id"`
	Metric               string            `json:"metric"`
	Condition            Condition         `json:"condition"`
	Value                Value             `json:"value"`
	Severity             Severity          `json:"severity"`
	Enabled              bool              `json:"enabled"`
	DashboardID          string            `json:"dashboard_id,omitempty"`
	NotificationChannels []string          `json:"notification_channels,omitempty"`
	CooldownMinutes      int               `json:"cooldown_minutes,omitempty"`
	Metadata             map[string]string `json:"metadata,omitempty"`
}

// Validate reports condition/value shape mismatches. A failing config is
// still registered and simply never breaches; validation exists so the
// mistake surfaces at registration time instead of as a silent non-alert.
func (c *Config) Validate() error {
	switch c.Condition {
	case ConditionBetween, ConditionOutside:
		if len(c.Value) != 2 {
			return fmt.Errorf("condition %q requires a [low, high] pair, got %s", c.Condition, c.Value)
		}
		if c.Value[0] > c.Value[1] {
			return fmt.Errorf("condition %q requires low <= high, got %s", c.Condition, c.Value)
		}
	case ConditionGreaterThan, ConditionLessThan, ConditionEquals, ConditionNotEquals:
		if len(c.Value) != 1 {
			return fmt.Errorf("condition %q requires a scalar value, got %s", c.Condition, c.Value)
		}
	default:
		return fmt.Errorf("unknown condition %q", c.Condition)
	}
	return nil
}

type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// Alert is the runtime record produced by a breach. Severity and the
// threshold value are copied at trigger time; later edits to the threshold
// do not retroactively change existing alerts.
type Alert struct {
	ID             string      `json:"id"`
	ThresholdID    string      `json:"threshold_id"`
	Metric         string      `json:"metric"`
	Severity       Severity    `json:"severity"`
	Status         AlertStatus `json:"status"`
	Message        string      `json:"message"`
	CurrentValue   float64     `json:"current_value"`
	ThresholdValue Value       `json:"threshold_value"`
	DashboardID    string      `json:"dashboard_id,omitempty"`
	TriggeredAt    time.Time   `json:"triggered_at"`
	AcknowledgedBy string      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
}

// CheckResult is the outcome of evaluating one threshold against one value.
// A non-breach carries an optional human-readable reason (unknown threshold,
// disabled, cooldown); none of those are errors.
type CheckResult struct {
	ThresholdID string `json:"threshold_id"`
	Breached    bool   `json:"breached"`
	Reason      string `json:"reason,omitempty"`
	Alert       *Alert `json:"alert,omitempty"`
}

// AlertFilter narrows ActiveAlerts. Zero values match everything.
type AlertFilter struct {
	Severity    Severity
	DashboardID string
}
