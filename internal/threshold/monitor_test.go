package threshold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(start time.Time) (*Monitor, *time.Time) {
	m := NewMonitor()
	now := start
	m.now = func() time.Time { return now }
	return m, &now
}

func TestCheckUnknownAndDisabled(t *testing.T) {
	m := NewMonitor()

	r := m.Check("nope", 1)
	assert.False(t, r.Breached)
	assert.Equal(t, "unknown threshold", r.Reason)

	m.Register(Config{
		ID:        "cpu",
		Metric:    "cpu_load",
		Condition: ConditionGreaterThan,
		Value:     Scalar(90),
		Severity:  SeverityWarning,
		Enabled:   false,
	})
	r = m.Check("cpu", 99)
	assert.False(t, r.Breached)
	assert.Equal(t, "threshold disabled", r.Reason)
	assert.Empty(t, m.AllAlerts())
}

func TestCheckScalarConditions(t *testing.T) {
	m := NewMonitor()
	cases := []struct {
		cond    Condition
		value   float64
		current float64
		breach  bool
	}{
		{ConditionGreaterThan, 10, 11, true},
		{ConditionGreaterThan, 10, 10, false},
		{ConditionLessThan, 10, 9, true},
		{ConditionLessThan, 10, 10, false},
		{ConditionEquals, 10, 10, true},
		{ConditionEquals, 10, 10.5, false},
		{ConditionNotEquals, 10, 10.5, true},
		{ConditionNotEquals, 10, 10, false},
	}

	for i, tc := range cases {
		cfg := Config{
			ID:        string(tc.cond),
			Metric:    "m",
			Condition: tc.cond,
			Value:     Scalar(tc.value),
			Severity:  SeverityInfo,
			Enabled:   true,
		}
		m.Register(cfg)
		r := m.Check(cfg.ID, tc.current)
		assert.Equalf(t, tc.breach, r.Breached, "case %d: %s %v vs %v", i, tc.cond, tc.current, tc.value)
	}
}

func TestCheckBetweenAndOutsideBounds(t *testing.T) {
	m := NewMonitor()
	m.Register(Config{
		ID: "band", Metric: "m", Condition: ConditionBetween,
		Value: Range(10, 20), Severity: SeverityInfo, Enabled: true,
	})
	m.Register(Config{
		ID: "outside", Metric: "m", Condition: ConditionOutside,
		Value: Range(10, 20), Severity: SeverityInfo, Enabled: true,
	})

	// Bounds are inclusive for between; outside is the exact complement.
	for _, v := range []float64{10, 15, 20} {
		assert.Truef(t, m.Check("band", v).Breached, "between should breach at %v", v)
		assert.Falsef(t, m.Check("outside", v).Breached, "outside should not breach at %v", v)
	}
	for _, v := range []float64{9, 21} {
		assert.Falsef(t, m.Check("band", v).Breached, "between should not breach at %v", v)
		assert.Truef(t, m.Check("outside", v).Breached, "outside should breach at %v", v)
	}
}

func TestMalformedValueShapeNeverBreaches(t *testing.T) {
	m := NewMonitor()

	// between with a scalar value: accepted at registration, fails closed.
	bad := Config{
		ID: "bad-band", Metric: "m", Condition: ConditionBetween,
		Value: Scalar(10), Severity: SeverityWarning, Enabled: true,
	}
	require.Error(t, bad.Validate())
	m.Register(bad)

	for _, v := range []float64{0, 10, 100} {
		r := m.Check("bad-band", v)
		assert.False(t, r.Breached)
		assert.Empty(t, r.Reason)
	}

	// scalar condition with a pair likewise never fires.
	m.Register(Config{
		ID: "bad-gt", Metric: "m", Condition: ConditionGreaterThan,
		Value: Range(1, 2), Severity: SeverityWarning, Enabled: true,
	})
	assert.False(t, m.Check("bad-gt", 100).Breached)
}

func TestCooldownSuppressesRepeatedBreaches(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m, now := newTestMonitor(start)
	m.Register(Config{
		ID: "rev-drop", Metric: "daily_revenue", Condition: ConditionLessThan,
		Value: Scalar(10000), Severity: SeverityCritical, Enabled: true,
		CooldownMinutes: 60,
	})

	r := m.Check("rev-drop", 8000)
	require.True(t, r.Breached)
	require.NotNil(t, r.Alert)
	assert.Equal(t, 8000.0, r.Alert.CurrentValue)

	// A genuine breach inside the window is dropped entirely, not queued.
	*now = start.Add(10 * time.Minute)
	r = m.Check("rev-drop", 5000)
	assert.False(t, r.Breached)
	assert.Equal(t, "in cooldown", r.Reason)
	assert.Len(t, m.AllAlerts(), 1)

	*now = start.Add(61 * time.Minute)
	r = m.Check("rev-drop", 5000)
	assert.True(t, r.Breached)
	assert.Len(t, m.AllAlerts(), 2)
}

func TestReRegisterKeepsCooldownState(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m, now := newTestMonitor(start)
	cfg := Config{
		ID: "t", Metric: "m", Condition: ConditionGreaterThan,
		Value: Scalar(1), Severity: SeverityInfo, Enabled: true, CooldownMinutes: 30,
	}
	m.Register(cfg)
	require.True(t, m.Check("t", 5).Breached)

	// Updating the rule must not grant it a free extra alert.
	m.Register(cfg)
	*now = start.Add(5 * time.Minute)
	assert.Equal(t, "in cooldown", m.Check("t", 5).Reason)
}

func TestCheckMetrics(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m, now := newTestMonitor(start)
	m.Register(Config{
		ID: "rev-drop", Metric: "daily_revenue", Condition: ConditionLessThan,
		Value: Scalar(10000), Severity: SeverityCritical, Enabled: true,
		CooldownMinutes: 60,
	})
	m.Register(Config{
		ID: "orders-high", Metric: "open_orders", Condition: ConditionGreaterThan,
		Value: Scalar(200), Severity: SeverityWarning, Enabled: true,
	})
	m.Register(Config{
		ID: "unrelated", Metric: "not_supplied", Condition: ConditionGreaterThan,
		Value: Scalar(0), Severity: SeverityInfo, Enabled: true,
	})

	breaches := m.CheckMetrics(map[string]float64{
		"daily_revenue": 8000,
		"open_orders":   150,
	})
	require.Len(t, breaches, 1)
	assert.Equal(t, "rev-drop", breaches[0].ThresholdID)
	assert.Equal(t, 8000.0, breaches[0].Alert.CurrentValue)

	// Immediately again: cooldown swallows it.
	breaches = m.CheckMetrics(map[string]float64{"daily_revenue": 5000})
	assert.Empty(t, breaches)

	*now = start.Add(61 * time.Minute)
	breaches = m.CheckMetrics(map[string]float64{"daily_revenue": 5000})
	require.Len(t, breaches, 1)
	assert.Equal(t, 5000.0, breaches[0].Alert.CurrentValue)
}

func TestAcknowledgeLifecycle(t *testing.T) {
	m := NewMonitor()
	m.Register(Config{
		ID: "t", Metric: "m", Condition: ConditionGreaterThan,
		Value: Scalar(1), Severity: SeverityWarning, Enabled: true,
	})
	r := m.Check("t", 5)
	require.True(t, r.Breached)
	alertID := r.Alert.ID

	require.Len(t, m.ActiveAlerts(nil), 1)

	assert.True(t, m.Acknowledge(alertID, "ops@example.com"))
	assert.Empty(t, m.ActiveAlerts(nil))

	// Second acknowledge fails: the alert is no longer active.
	assert.False(t, m.Acknowledge(alertID, "ops@example.com"))
	assert.False(t, m.Acknowledge("missing", "ops@example.com"))

	all := m.AllAlerts()
	require.Len(t, all, 1)
	assert.Equal(t, AlertStatusAcknowledged, all[0].Status)
	assert.Equal(t, "ops@example.com", all[0].AcknowledgedBy)
	assert.NotNil(t, all[0].AcknowledgedAt)
}

func TestResolveAndClearResolved(t *testing.T) {
	m := NewMonitor()
	m.Register(Config{
		ID: "t", Metric: "m", Condition: ConditionGreaterThan,
		Value: Scalar(1), Severity: SeverityWarning, Enabled: true,
	})
	first := m.Check("t", 5)
	second := m.Check("t", 6)
	require.True(t, first.Breached)
	require.True(t, second.Breached)

	assert.False(t, m.Resolve("missing"))
	assert.True(t, m.Resolve(first.Alert.ID))

	// Resolve works from any status, including acknowledged.
	require.True(t, m.Acknowledge(second.Alert.ID, "ops"))
	assert.True(t, m.Resolve(second.Alert.ID))

	assert.Empty(t, m.ActiveAlerts(nil))
	assert.Len(t, m.AllAlerts(), 2)

	assert.Equal(t, 2, m.ClearResolved())
	assert.Empty(t, m.AllAlerts())
	assert.Equal(t, 0, m.ClearResolved())
}

func TestActiveAlertsFilterAndOrder(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m, now := newTestMonitor(start)
	m.Register(Config{
		ID: "warn", Metric: "m", Condition: ConditionGreaterThan,
		Value: Scalar(1), Severity: SeverityWarning, Enabled: true, DashboardID: "sales",
	})
	m.Register(Config{
		ID: "crit", Metric: "m", Condition: ConditionGreaterThan,
		Value: Scalar(1), Severity: SeverityCritical, Enabled: true, DashboardID: "production",
	})

	require.True(t, m.Check("warn", 5).Breached)
	*now = start.Add(time.Minute)
	require.True(t, m.Check("crit", 5).Breached)

	active := m.ActiveAlerts(nil)
	require.Len(t, active, 2)
	// Newest first.
	assert.Equal(t, "crit", active[0].ThresholdID)
	assert.Equal(t, "warn", active[1].ThresholdID)

	bySeverity := m.ActiveAlerts(&AlertFilter{Severity: SeverityCritical})
	require.Len(t, bySeverity, 1)
	assert.Equal(t, "crit", bySeverity[0].ThresholdID)

	byDashboard := m.ActiveAlerts(&AlertFilter{DashboardID: "sales"})
	require.Len(t, byDashboard, 1)
	assert.Equal(t, "warn", byDashboard[0].ThresholdID)
}

func TestBackToBackBreachesKeepDistinctAlerts(t *testing.T) {
	// Frozen clock: both breaches land on the same millisecond.
	m, _ := newTestMonitor(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	m.Register(Config{
		ID: "t", Metric: "m", Condition: ConditionGreaterThan,
		Value: Scalar(1), Severity: SeverityWarning, Enabled: true,
	})

	first := m.Check("t", 5)
	second := m.Check("t", 6)
	require.True(t, first.Breached)
	require.True(t, second.Breached)
	require.NotEqual(t, first.Alert.ID, second.Alert.ID)

	// Both alerts are stored; neither overwrote the other.
	require.Len(t, m.AllAlerts(), 2)
	assert.True(t, m.Acknowledge(first.Alert.ID, "ops"))
	assert.True(t, m.Resolve(second.Alert.ID))
}

func TestRemoveIsIdempotent(t *testing.T) {
	m := NewMonitor()
	m.Register(Config{
		ID: "t", Metric: "m", Condition: ConditionGreaterThan,
		Value: Scalar(1), Severity: SeverityInfo, Enabled: true,
	})
	m.Remove("t")
	m.Remove("t")
	assert.Equal(t, "unknown threshold", m.Check("t", 5).Reason)
}

func TestValueJSONRoundTrip(t *testing.T) {
	var cfg Config
	err := cfg.Value.UnmarshalJSON([]byte("10"))
	require.NoError(t, err)
	assert.Equal(t, Scalar(10), cfg.Value)

	err = cfg.Value.UnmarshalJSON([]byte("[10, 20]"))
	require.NoError(t, err)
	assert.Equal(t, Range(10, 20), cfg.Value)

	out, err := Scalar(10).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "10", string(out))

	out, err = Range(10, 20).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[10,20]", string(out))

	assert.Error(t, cfg.Value.UnmarshalJSON([]byte(`"ten"`)))
}
