package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Path string
	}
	Server struct {
		Port      int
		JWTSecret string
	}
	Notify struct {
		Chat struct {
			WebhookURL string
		}
		Email struct {
			SMTPHost string
			SMTPPort int
			From     string
			Password string
		}
		MaxConcurrentSends int
		SendTimeoutSeconds int
	}
	Thresholds struct {
		File string
	}
}

// LoadConfig loads the configuration from config.yaml
func LoadConfig() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	var config Config

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use default values
			config.Database.Path = "data/opspulse.db"
			config.Server.Port = 8080
			config.Notify.MaxConcurrentSends = 8
			config.Notify.SendTimeoutSeconds = 10

			// Create default config file
			viper.Set("database.path", config.Database.Path)
			viper.Set("server.port", config.Server.Port)
			viper.Set("notify.maxconcurrentsends", config.Notify.MaxConcurrentSends)
			viper.Set("notify.sendtimeoutseconds", config.Notify.SendTimeoutSeconds)

			// Ensure data directory exists
			if err := os.MkdirAll("data", 0755); err != nil {
				fmt.Printf("Warning: Failed to create data directory: %v\n", err)
			}

			if err := viper.SafeWriteConfig(); err != nil {
				fmt.Printf("Warning: Failed to write default config: %v\n", err)
			}
		} else {
			fmt.Printf("Error reading config file: %v\n", err)
		}
	} else {
		if err := viper.Unmarshal(&config); err != nil {
			fmt.Printf("Error unmarshaling config: %v\n", err)
		}
	}

	if config.Notify.MaxConcurrentSends <= 0 {
		config.Notify.MaxConcurrentSends = 8
	}
	if config.Notify.SendTimeoutSeconds <= 0 {
		config.Notify.SendTimeoutSeconds = 10
	}

	return &config
}
