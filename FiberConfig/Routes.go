package FiberConfig

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"

	"Warden/Controllers"
	"Warden/Execution"
	"Warden/Models"
	"Warden/Stores"
	"Warden/middleware"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	engine := Execution.NewEngine(Stores.NewGormStore(db), Execution.SystemClock())

	executionController := Controllers.NewExecutionController(db, engine)
	maintenanceController := Controllers.NewMaintenanceController(db, engine)
	taskController := Controllers.NewScheduledTaskController(db)
	controlPointController := Controllers.NewControlPointController(db)
	workerController := Controllers.NewWorkerController(db)
	reportController := Controllers.NewReportController(db)

	api := app.Group("/api")

	// Auth
	app.Post("/api/Login", Controllers.Login)
	app.Post("/api/Logout", Controllers.Logout)
	app.Get("/api/validate-token", middleware.Verify(0), Controllers.ValidateToken)
	app.Post("/api/RegisterUser", middleware.Verify(4), Controllers.RegisterUser)
	app.Post("/api/UpdateToken", middleware.Verify(0), Models.UpdateToken)

	// Execution engine: the scan endpoints the mobile app drives
	executions := api.Group("/executions", middleware.Verify(1))
	executions.Get("/", executionController.GetExecutions)
	executions.Post("/", executionController.CreateExecution)
	executions.Post("/first-scan", executionController.FirstScan)
	executions.Post("/second-scan", executionController.SecondScan)
	executions.Get("/:id", executionController.GetExecution)
	executions.Post("/:id/abort", executionController.Abort)

	maintenance := api.Group("/maintenance-executions", middleware.Verify(1))
	maintenance.Post("/:id/complete", maintenanceController.Complete)
	maintenance.Post("/:id/abort", maintenanceController.Abort)

	schedules := api.Group("/maintenance-schedules", middleware.Verify(1))
	schedules.Get("/", maintenanceController.GetSchedules)
	schedules.Post("/", middleware.Verify(3), maintenanceController.CreateSchedule)

	// Scheduling and reference data
	tasks := api.Group("/tasks", middleware.Verify(1))
	tasks.Get("/", taskController.GetTasks)
	tasks.Get("/:id", taskController.GetTask)
	tasks.Post("/", middleware.Verify(2), taskController.CreateTask)

	controlPoints := api.Group("/control-points", middleware.Verify(1))
	controlPoints.Get("/", controlPointController.GetControlPoints)
	controlPoints.Get("/:id", controlPointController.GetControlPoint)
	controlPoints.Post("/", middleware.Verify(3), controlPointController.CreateControlPoint)
	controlPoints.Post("/:id/deactivate", middleware.Verify(3), controlPointController.DeactivateControlPoint)

	workers := api.Group("/workers", middleware.Verify(1))
	workers.Get("/", workerController.GetWorkers)
	workers.Get("/:id", workerController.GetWorker)
	workers.Post("/", middleware.Verify(3), workerController.CreateWorker)
	workers.Post("/:id/deactivate", middleware.Verify(3), workerController.DeactivateWorker)

	// Reports
	reports := api.Group("/reports", middleware.Verify(3))
	reports.Get("/executions", reportController.ExportExecutions)
}

func FiberConfig() {
	fmt.Println("Server Up...")
	app := fiber.New()
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, Models.DB)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}
