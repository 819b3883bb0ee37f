package main

import (
	"log"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"Warden/CronJobs"
	"Warden/FiberConfig"
	"Warden/Models"
	"Warden/Notifications"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using process environment")
	}

	Models.Connect()

	go func() {
		if err := Notifications.InitFirebase(); err != nil {
			log.Printf("Failed to initialize Firebase: %v", err)
		}
	}()

	reminder := CronJobs.NewMaintenanceReminder(Models.DB)
	if err := reminder.Start(); err != nil {
		log.Printf("Failed to start maintenance reminder: %v", err)
	}

	FiberConfig.FiberConfig()
}
