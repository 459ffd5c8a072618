package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/netplay-club/internal/middleware"
)

func registerBoard(v1 *echo.Group, d Deps) {
	h := d.Board

	v1.GET("/board", h.Snapshot)
	v1.GET("/live/board", h.Live)
	v1.GET("/board/players", h.Players)
	v1.POST("/board/join", h.Join, orPassthrough(d.RateLimit))
	// self or admin; the controller decides
	v1.DELETE("/board/players/:id", h.RemovePlayer)

	admin := middleware.RequireAdmin()
	v1.POST("/board/players", h.AddPlayer, admin)
	v1.POST("/board/players/:id/guest", h.SetGuest, admin)
	v1.POST("/board/groups", h.AddToGroup, admin)
	v1.DELETE("/board/groups/:index/players/:id", h.RemoveFromGroup, admin)
	v1.POST("/board/courts/:court/assign", h.Assign, admin)
	v1.POST("/board/courts/:court/close", h.Close, admin)
	v1.POST("/board/courts/:court/clear", h.Clear, admin)
	v1.POST("/board/reset", h.Reset, admin)
}
