package main

import (
	"log"

	"voice-campaign/internal/config"
	"voice-campaign/internal/database"
)

func main() {
	cfg := config.LoadConfig()
	cfg.DBDriver = "postgres"
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	log.Println("Syncing PostgreSQL sequences...")

	for table, err := range database.SyncSequences(db) {
		if err != nil {
			log.Printf("Error syncing sequence for %s: %v", table, err)
		} else {
			log.Printf("Successfully synced sequence for %s", table)
		}
	}

	log.Println("DONE!")
}
