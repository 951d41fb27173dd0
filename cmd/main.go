package main

import (
	"log"
	"os"
	"time"

	"github.com/opspulse/internal/api"
	"github.com/opspulse/internal/auth"
	"github.com/opspulse/internal/config"
	"github.com/opspulse/internal/database"
	"github.com/opspulse/internal/directory"
	"github.com/opspulse/internal/notify"
	"github.com/opspulse/internal/threshold"
	"github.com/opspulse/internal/triggers"
)

func main() {
	// Initialize configuration
	cfg := config.LoadConfig()

	// Initialize database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	// Initialize threshold monitor
	monitor := threshold.NewMonitor()
	if cfg.Thresholds.File != "" {
		if _, err := os.Stat(cfg.Thresholds.File); err == nil {
			count, err := monitor.ImportFile(cfg.Thresholds.File)
			if err != nil {
				log.Printf("Warning: failed to import thresholds: %v", err)
			} else {
				log.Printf("Imported %d thresholds from %s", count, cfg.Thresholds.File)
			}
		}
	}
	if len(monitor.Thresholds()) == 0 {
		monitor.RegisterAll(threshold.DefaultThresholds())
		log.Printf("No thresholds configured, registered defaults")
	}

	// Initialize notification delivery
	dir := directory.New(db)
	prefStore := notify.NewStore(db)
	senders := []notify.Sender{
		notify.NewInAppSender(db),
		notify.NewEmailSender(cfg.Notify.Email.SMTPHost, cfg.Notify.Email.SMTPPort, cfg.Notify.Email.From, cfg.Notify.Email.Password),
		notify.NewChatSender(cfg.Notify.Chat.WebhookURL),
	}
	notifier := notify.NewNotifier(notify.NewResolver(prefStore), dir, senders, notify.Options{
		MaxConcurrentSends: cfg.Notify.MaxConcurrentSends,
		SendTimeout:        time.Duration(cfg.Notify.SendTimeoutSeconds) * time.Second,
	})
	defer notifier.Close()

	trig := triggers.New(notifier, dir)

	// Initialize and start API server
	jwtSecret := cfg.Server.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "change-me-in-config"
		log.Printf("Warning: server.jwtsecret not set, using insecure default")
	}
	server := api.NewServer(monitor, notifier, trig, dir, prefStore, auth.New(jwtSecret, db), db)
	if err := server.Start(cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
