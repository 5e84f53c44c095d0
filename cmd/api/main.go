package main

import (
	"flag"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/api"
	"github.com/chronoplan-io/chronoplan/internal/config"
	"github.com/chronoplan-io/chronoplan/internal/database"
	"github.com/chronoplan-io/chronoplan/internal/mail"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := database.Init(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	server, err := api.NewApi(cfg, store, mail.NewMailer(cfg))
	if err != nil {
		log.Fatalf("Failed to initialize API: %v", err)
	}

	// Expired sessions pile up otherwise; sweep them hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := server.Credentials.CleanupExpiredSessions(); err != nil {
				log.Printf("Session cleanup failed: %v", err)
			}
		}
	}()

	if err := server.Serve(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
