package threshold

import (
	"encoding/json"
	"fmt"
	"os"
)

// ImportFile registers every threshold config from a JSON file and returns
// how many were loaded.
func (m *Monitor) ImportFile(filename string) (int, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %v", err)
	}

	var cfgs []Config
	if err := json.Unmarshal(data, &cfgs); err != nil {
		return 0, fmt.Errorf("failed to parse thresholds: %v", err)
	}

	m.RegisterAll(cfgs)
	return len(cfgs), nil
}

// ExportFile writes all registered threshold configs to a JSON file.
func (m *Monitor) ExportFile(filename string) error {
	data, err := json.MarshalIndent(m.Thresholds(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal thresholds: %v", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %v", err)
	}

	return nil
}

// DefaultThresholds returns a starter rule set for a fresh install.
func DefaultThresholds() []Config {
	return []Config{
		{
			ID:              "daily-revenue-drop",
			Metric:          "daily_revenue",
			Condition:       ConditionLessThan,
			Value:           Scalar(10000),
			Severity:        SeverityWarning,
			Enabled:         true,
			CooldownMinutes: 60,
		},
		{
			ID:              "qc-failure-rate-high",
			Metric:          "qc_failure_rate",
			Condition:       ConditionGreaterThan,
			Value:           Scalar(5),
			Severity:        SeverityCritical,
			Enabled:         true,
			CooldownMinutes: 30,
		},
		{
			ID:              "open-orders-backlog",
			Metric:          "open_orders",
			Condition:       ConditionGreaterThan,
			Value:           Scalar(200),
			Severity:        SeverityWarning,
			Enabled:         true,
			CooldownMinutes: 120,
		},
		{
			ID:              "production-utilization-band",
			Metric:          "production_utilization",
			Condition:       ConditionOutside,
			Value:           Range(40, 95),
			Severity:        SeverityInfo,
			Enabled:         true,
			CooldownMinutes: 240,
		},
	}
}
