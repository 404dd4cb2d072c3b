package main

import (
	"flag"
	"fmt"
	"log"

	"tg-sanctions/internal/config"
	"tg-sanctions/internal/models"
	"tg-sanctions/internal/storage"

	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	action := flag.String("action", "migrate", "Action to perform (migrate, reset, status)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := storage.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer storage.Close(db)

	switch *action {
	case "migrate":
		if err := migrateDatabase(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration completed successfully")
	case "reset":
		if err := resetDatabase(db); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Println("Database reset completed successfully")
	case "status":
		checkStatus(db)
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

func migrateDatabase(db *gorm.DB) error {
	fmt.Println("Migrating database...")
	return storage.Migrate(db)
}

// resetDatabase drops every table and recreates them
func resetDatabase(db *gorm.DB) error {
	fmt.Println("Resetting database...")

	fmt.Print("WARNING: This will delete all sanction history! Are you sure? (y/N): ")
	var confirmation string
	fmt.Scanln(&confirmation)

	if confirmation != "y" && confirmation != "Y" {
		return fmt.Errorf("operation cancelled by user")
	}

	tables := models.AllTables()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(tables[i]); err != nil {
			return fmt.Errorf("failed to drop %T: %w", tables[i], err)
		}
	}

	return migrateDatabase(db)
}

func checkStatus(db *gorm.DB) {
	fmt.Println("Checking database status...")

	for _, table := range models.AllTables() {
		if !db.Migrator().HasTable(table) {
			fmt.Printf("❌ %T table does not exist\n", table)
			continue
		}

		var count int64
		if err := db.Model(table).Count(&count).Error; err != nil {
			fmt.Printf("⚠️  %T: %v\n", table, err)
			continue
		}
		fmt.Printf("✅ %T table exists\n   - Contains %d records\n", table, count)
	}
}
