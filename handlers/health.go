package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/study-scheduler/database"
)

func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
