package main

import (
	"log"

	"voice-campaign/internal/config"
	"voice-campaign/internal/database"

	"gorm.io/driver/sqlite"
	gormlogger "gorm.io/gorm/logger"
)

// Copies the local sqlite store into the postgres database named by DB_*.
func main() {
	cfg := config.LoadConfig()

	// 1. Connect to SQLite (Source)
	sqliteDB, err := database.OpenDialector(sqlite.Open(cfg.DBPath), gormlogger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to SQLite: %v", err)
	}
	log.Printf("Connected to SQLite at %s", cfg.DBPath)

	// 2. Connect to PostgreSQL (Destination)
	cfg.DBDriver = "postgres"
	pgDB, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	log.Println("Starting data migration...")
	counts, err := database.CopyAll(sqliteDB, pgDB)
	for _, c := range counts {
		log.Printf("Migrated %d rows into %s", c.Rows, c.Table)
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	for table, err := range database.SyncSequences(pgDB) {
		if err != nil {
			log.Printf("Error syncing sequence for %s: %v", table, err)
		}
	}
	log.Println("Migration completed!")
}
