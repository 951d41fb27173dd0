package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "opspulse",
	Short: "OpsPulse CLI - business metric alerting and notifications",
	Long: `OpsPulse CLI manages metric thresholds, alerts and notification
delivery against a running OpsPulse server.`,
}

func init() {
	viper.SetConfigName(".opspulse")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")
	viper.SetDefault("server", "http://localhost:8080")
	_ = viper.ReadInConfig()

	rootCmd.PersistentFlags().String("server", "", "OpsPulse server URL")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(newThresholdCommand())
	rootCmd.AddCommand(newAlertCommand())
	rootCmd.AddCommand(newNotifyCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
