package app

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ultraintel/counselor-api/api"
	"github.com/ultraintel/counselor-api/config"
	"github.com/ultraintel/counselor-api/database"
	"github.com/ultraintel/counselor-api/router"
	"github.com/ultraintel/counselor-api/services/cron"
)

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		fmt.Println("Check whether Postgres is running or not")
		return err
	}

	if err := store.Init(); err != nil {
		fmt.Println("Error running migrations")
		return err
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Attach Middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Setup Routes and the service graph
	interviewService := router.SetupRoutes(app, store, getEnv)

	// Stale-session sweeper (default enabled)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" {
		sessionTTL := time.Duration(getEnv.SESSION_TTL_MINUTES) * time.Minute
		cronManager = cron.NewCronManager(interviewService, sessionTTL)
		if err := cronManager.Start(); err != nil {
			fmt.Println("Warning: Failed to start cron jobs:", err.Error())
		}
	}

	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	// Get the PORT & Start the Server
	return server.Run()
}
