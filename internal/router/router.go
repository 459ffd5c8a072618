// Package router registers the HTTP routes. Every /v1 route runs behind
// the identity middleware; admin routes add RequireAdmin on top of the
// checks the managers already make.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/netplay-club/internal/handler"
	"github.com/iliyamo/netplay-club/internal/middleware"
)

// Deps bundles what the route groups need.
type Deps struct {
	JWTSecret string
	Health    echo.HandlerFunc
	Metrics   http.Handler

	Session  *handler.SessionHandler
	Polls    *handler.PollHandler
	Board    *handler.BoardHandler
	Meetings *handler.MeetingHandler
	Ranking  *handler.RankingHandler

	// RateLimit guards self-service writes; Cache fronts read projections.
	// Either may be nil.
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func orPassthrough(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return passthrough
	}
	return m
}

// Register mounts every route group on e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d)

	v1 := e.Group("/v1", middleware.Identity(d.JWTSecret))
	v1.POST("/session", d.Session.Create)
	v1.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, middleware.CallerFrom(c))
	})

	registerPolls(v1, d)
	registerBoard(v1, d)
	registerArchive(v1, d)
}

// RegisterRoutes mounts the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	health := d.Health
	if health == nil {
		health = handler.Health(nil)
	}
	e.GET("/healthz", health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}
}

func registerArchive(v1 *echo.Group, d Deps) {
	cache := orPassthrough(d.Cache)

	v1.GET("/ranking", d.Ranking.Monthly, cache)
	v1.GET("/meetings", d.Meetings.List, cache)
	v1.GET("/meetings/:id", d.Meetings.Get, cache)
	v1.DELETE("/meetings/:id", d.Meetings.Delete, middleware.RequireAdmin())
}
