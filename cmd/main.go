package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/clinicdesk/clinic-server/cmd/api"
	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/db"
	"github.com/clinicdesk/clinic-server/service/slot"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "sync-slots":
			runSlotSync()
			return
		case "clear-db":
			runDatabaseClear()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer()
}

func runMigrations() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer closeDB(DB)
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {

	migrations := []struct {
		model interface{}
		name  string
	}{
		{&models.User{}, "User"},
		{&models.Specialty{}, "Specialty"},
		{&models.PatientProfile{}, "PatientProfile"},
		{&models.DoctorProfile{}, "DoctorProfile"},
		{&models.TimeSlot{}, "TimeSlot"},
		{&models.Appointment{}, "Appointment"},
		{&models.Payment{}, "Payment"},
		{&models.Device{}, "Device"},
		{&models.NotificationHistory{}, "NotificationHistory"},
	}

	log.Println("Starting database migrations...")
	for _, m := range migrations {
		log.Printf("Migrating %s table...", m.name)
		if err := DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", m.name, err)
		}
		log.Printf("%s migration successful", m.name)
	}

	log.Println("All migrations completed successfully")
	return nil
}

// runSlotSync recounts every slot's bookings from its active appointments.
func runSlotSync() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer closeDB(DB)

	log.Println("Syncing time slot bookings...")
	result, err := slot.SyncBookings(DB)
	if err != nil {
		log.Fatalf("Slot sync error: %v", err)
	}

	var total int64
	DB.Model(&models.TimeSlot{}).Count(&total)

	log.Printf("Marked %d slots as unavailable (full)", result.MarkedFull)
	log.Printf("Marked %d slots as available", result.MarkedAvailable)
	log.Printf("Total slots: %d", total)
	log.Println("Sync completed")
}

func startServer() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer closeDB(DB)
	log.Println("Connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", port)

	<-quit
	log.Println("Shutting down server...")
}

func closeDB(DB *gorm.DB) {
	sqlDB, _ := DB.DB()
	sqlDB.Close()
	log.Println("Database connection closed")
}

func runDatabaseClear() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer closeDB(DB)

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	tables := []interface{}{
		&models.Payment{},
		&models.Appointment{},
		&models.TimeSlot{},
		&models.NotificationHistory{},
		&models.Device{},
		&models.PatientProfile{},
		&models.DoctorProfile{},
		&models.Specialty{},
		&models.User{},
	}

	log.Println("Dropping tables...")
	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	log.Println("Database cleared successfully")
}
