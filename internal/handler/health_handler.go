package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func Health(env string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"env":       env,
		})
	}
}
