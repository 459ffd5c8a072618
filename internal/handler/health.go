package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is anything the health check can probe.
type Pinger func(ctx context.Context) error

// Health answers load balancer probes. With no checks it only reports that
// the process is up; otherwise every named check must pass within two
// seconds or the reply is 503.
func Health(checks map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if len(checks) == 0 {
			return c.String(http.StatusOK, "ok")
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		return c.JSON(status, report)
	}
}
