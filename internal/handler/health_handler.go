package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/config"
	"github.com/examly/exam-go-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
}

// HealthCheck returns a handler reporting process and database liveness. A
// failing database ping degrades the payload instead of erroring so load
// balancers still receive a parseable body.
func HealthCheck(cfg config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Database:    "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if db == nil {
			payload.Database = "unconfigured"
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			payload.Status = "degraded"
			payload.Database = "unreachable"
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
