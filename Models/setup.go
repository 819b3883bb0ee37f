package Models

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the database and migrates the schema. DB_DIALECT selects
// sqlite (default, file from DB_PATH) or mysql (DSN assembled from DB_HOST,
// DB_USER, DB_PASSWORD, DB_NAME, DB_PORT).
func Connect() {
	var (
		connection *gorm.DB
		err        error
	)

	switch os.Getenv("DB_DIALECT") {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
		connection, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	default:
		path := os.Getenv("DB_PATH")
		if path == "" {
			path = "database.db"
		}
		connection, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	DB = connection

	// Base entities first
	DB.AutoMigrate(
		&User{},
		&ControlPoint{},
		&Worker{},
		&FCMToken{},
	)

	// Then everything keyed on them
	DB.AutoMigrate(
		&MaintenanceSchedule{},
		&ScheduledTask{},
		&ExecutionRecord{},
	)
}
