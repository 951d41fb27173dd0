package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/opspulse/internal/threshold"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to OpsPulse",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		body, err := json.Marshal(map[string]string{"username": username, "password": password})
		if err != nil {
			return err
		}
		resp, err := http.Post(viper.GetString("server")+"/api/v1/auth/login", "application/json", bytes.NewBuffer(body))
		if err != nil {
			return fmt.Errorf("login failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("login failed: status %d", resp.StatusCode)
		}

		var out struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("failed to parse login response: %v", err)
		}

		viper.Set("token", out.Token)
		if err := viper.WriteConfig(); err != nil {
			if err := viper.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to save token: %v", err)
			}
		}
		fmt.Println("Login successful")
		return nil
	},
}

func newThresholdCommand() *cobra.Command {
	thresholdCmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Manage metric thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfgs []threshold.Config
			if err := apiGet("/api/v1/thresholds", &cfgs); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tMETRIC\tCONDITION\tVALUE\tSEVERITY\tENABLED\tCOOLDOWN\t")
			for _, t := range cfgs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%dm\t\n",
					t.ID, t.Metric, t.Condition, t.Value, t.Severity, t.Enabled, t.CooldownMinutes)
			}
			return w.Flush()
		},
	}

	addCmd := &cobra.Command{
		Use:   "add [threshold-id]",
		Short: "Add or update a threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("threshold ID is required")
			}
			metric, _ := cmd.Flags().GetString("metric")
			condition, _ := cmd.Flags().GetString("condition")
			rawValue, _ := cmd.Flags().GetString("value")
			severity, _ := cmd.Flags().GetString("severity")
			cooldown, _ := cmd.Flags().GetInt("cooldown")

			if metric == "" || condition == "" || rawValue == "" {
				return fmt.Errorf("--metric, --condition and --value are required")
			}
			value, err := parseThresholdValue(rawValue)
			if err != nil {
				return err
			}

			cfg := threshold.Config{
				ID:              args[0],
				Metric:          metric,
				Condition:       threshold.Condition(condition),
				Value:           value,
				Severity:        threshold.Severity(severity),
				Enabled:         true,
				CooldownMinutes: cooldown,
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := apiDo(http.MethodPost, "/api/v1/thresholds", cfg, nil); err != nil {
				return err
			}
			fmt.Printf("Threshold %s saved\n", cfg.ID)
			return nil
		},
	}
	addCmd.Flags().String("metric", "", "Metric name, e.g. cpu_usage")
	addCmd.Flags().String("condition", "", "Comparison condition, e.g. greater_than or between")
	addCmd.Flags().String("value", "", "Comparison value: a number, or low,high for between/outside")
	addCmd.Flags().String("severity", "warning", "Alert severity: info, warning or critical")
	addCmd.Flags().Int("cooldown", 0, "Cooldown minutes between alerts")
	thresholdCmd.AddCommand(addCmd)

	thresholdCmd.AddCommand(&cobra.Command{
		Use:   "remove [threshold-id]",
		Short: "Remove a threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("threshold ID is required")
			}
			if err := apiDo(http.MethodDelete, "/api/v1/thresholds/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Printf("Threshold %s removed\n", args[0])
			return nil
		},
	})

	thresholdCmd.AddCommand(&cobra.Command{
		Use:   "import [file]",
		Short: "Import thresholds from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("file is required")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %v", err)
			}

			var cfgs []threshold.Config
			if err := json.Unmarshal(data, &cfgs); err != nil {
				return fmt.Errorf("failed to parse thresholds: %v", err)
			}

			var out struct {
				Imported int `json:"imported"`
			}
			if err := apiDo(http.MethodPost, "/api/v1/thresholds/import", cfgs, &out); err != nil {
				return err
			}
			fmt.Printf("Imported %d thresholds\n", out.Imported)
			return nil
		},
	})

	thresholdCmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Export thresholds to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("file is required")
			}
			var cfgs []threshold.Config
			if err := apiGet("/api/v1/thresholds/export", &cfgs); err != nil {
				return err
			}

			data, err := json.MarshalIndent(cfgs, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal thresholds: %v", err)
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				return fmt.Errorf("failed to write file: %v", err)
			}
			fmt.Printf("Exported %d thresholds to %s\n", len(cfgs), args[0])
			return nil
		},
	})

	checkCmd := &cobra.Command{
		Use:   "check [threshold-id]",
		Short: "Evaluate a threshold against a value",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("threshold ID is required")
			}
			value, _ := cmd.Flags().GetFloat64("value")

			var result threshold.CheckResult
			if err := apiDo(http.MethodPost, "/api/v1/thresholds/"+args[0]+"/check", map[string]float64{"value": value}, &result); err != nil {
				return err
			}

			if result.Breached {
				fmt.Printf("BREACHED: %s\n", result.Alert.Message)
			} else if result.Reason != "" {
				fmt.Printf("Not breached (%s)\n", result.Reason)
			} else {
				fmt.Println("Not breached")
			}
			return nil
		},
	}
	checkCmd.Flags().Float64("value", 0, "Current metric value")
	thresholdCmd.AddCommand(checkCmd)

	return thresholdCmd
}

func newAlertCommand() *cobra.Command {
	alertCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			path := "/api/v1/alerts"
			if all {
				path += "?status=all"
			}

			var alerts []threshold.Alert
			if err := apiGet(path, &alerts); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tSEVERITY\tMETRIC\tVALUE\tSTATUS\tTRIGGERED\t")
			for _, a := range alerts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\t\n",
					a.ID, a.Severity, a.Metric, a.CurrentValue, a.Status, a.TriggeredAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
	alertCmd.Flags().Bool("all", false, "Include acknowledged and resolved alerts")

	alertCmd.AddCommand(&cobra.Command{
		Use:   "acknowledge [alert-id]",
		Short: "Acknowledge an alert",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("alert ID is required")
			}
			if err := apiDo(http.MethodPut, "/api/v1/alerts/"+args[0]+"/acknowledge", nil, nil); err != nil {
				return err
			}
			fmt.Println("Alert acknowledged")
			return nil
		},
	})

	alertCmd.AddCommand(&cobra.Command{
		Use:   "resolve [alert-id]",
		Short: "Resolve an alert",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("alert ID is required")
			}
			if err := apiDo(http.MethodPut, "/api/v1/alerts/"+args[0]+"/resolve", nil, nil); err != nil {
				return err
			}
			fmt.Println("Alert resolved")
			return nil
		},
	})

	alertCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear resolved alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Removed int `json:"removed"`
			}
			if err := apiDo(http.MethodDelete, "/api/v1/alerts/resolved", nil, &out); err != nil {
				return err
			}
			fmt.Printf("Cleared %d resolved alerts\n", out.Removed)
			return nil
		},
	})

	return alertCmd
}

func newNotifyCommand() *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetUint("user")
			title, _ := cmd.Flags().GetString("title")
			message, _ := cmd.Flags().GetString("message")
			category, _ := cmd.Flags().GetString("category")
			priority, _ := cmd.Flags().GetString("priority")

			if userID == 0 || title == "" {
				return fmt.Errorf("--user and --title are required")
			}

			params := map[string]interface{}{
				"recipients": []map[string]interface{}{{"user_id": userID}},
				"title":      title,
				"message":    message,
				"category":   category,
				"priority":   priority,
			}

			var out struct {
				Results []struct {
					UserID  uint `json:"user_id"`
					Success bool `json:"success"`
				} `json:"results"`
			}
			if err := apiDo(http.MethodPost, "/api/v1/notifications/send", params, &out); err != nil {
				return err
			}

			for _, r := range out.Results {
				if r.Success {
					fmt.Printf("Delivered to user %d\n", r.UserID)
				} else {
					fmt.Printf("Delivery to user %d failed on every channel\n", r.UserID)
				}
			}
			return nil
		},
	}
	notifyCmd.Flags().Uint("user", 0, "Recipient user ID")
	notifyCmd.Flags().String("title", "", "Notification title")
	notifyCmd.Flags().String("message", "", "Notification message")
	notifyCmd.Flags().String("category", "system", "Notification category")
	notifyCmd.Flags().String("priority", "normal", "Notification priority")

	return notifyCmd
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password")
}

// parseThresholdValue turns a --value flag into a threshold value. It accepts
// a single number for scalar conditions or a comma-separated low,high pair
// for between/outside.
func parseThresholdValue(s string) (threshold.Value, error) {
	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return nil, fmt.Errorf("value must be a number or a low,high pair, got %q", s)
	}

	out := make(threshold.Value, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", s)
		}
		out = append(out, f)
	}
	return out, nil
}

// API client helpers

func apiGet(path string, out interface{}) error {
	return apiDo(http.MethodGet, path, nil, out)
}

func apiDo(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, viper.GetString("server")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := viper.GetString("token"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
