package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ultraintel/counselor-api/database"
	"github.com/ultraintel/counselor-api/utils/response"
)

// HandleCheckHealth reports process and database liveness
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "Database unreachable")
	}
	return response.Success(c, fiber.Map{"status": "ok"})
}
