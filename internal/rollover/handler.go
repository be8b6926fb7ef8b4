package rollover

import (
	"errors"
	"time"

	"kada-backend/internal/config"
	"kada-backend/internal/httputil"

	"github.com/gofiber/fiber/v2"
)

// POST /api/admin/rollover?date=2025-01-02&force=true
func TriggerHandler(cfg *config.Config, job *Job) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date := c.Query("date")
		if date == "" {
			date = time.Now().In(cfg.Location()).Format(httputil.DateLayout)
		} else if _, err := time.Parse(httputil.DateLayout, date); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}

		res, err := job.Run(c.UserContext(), date, c.QueryBool("force"))
		if errors.Is(err, ErrAlreadyDone) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		if err != nil {
			config.LogError(config.GetLogger(), "rollover", "TriggerHandler", "manual rollover failed", date, err)
			return fiber.NewError(fiber.StatusInternalServerError, "rollover failed")
		}
		return c.JSON(res)
	}
}
