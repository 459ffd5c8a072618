package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/netplay-club/internal/middleware"
)

func registerPolls(v1 *echo.Group, d Deps) {
	h := d.Polls
	limit := orPassthrough(d.RateLimit)

	// ---- Everyone ----
	v1.GET("/polls", h.List)
	v1.GET("/polls/:id", h.Get)
	v1.GET("/polls/:id/qrcode", h.QRCode)
	v1.GET("/polls/:id/credits", h.Credits)
	v1.GET("/live/polls/:id", h.Live)
	v1.POST("/polls/:id/join", h.Join, limit)
	v1.POST("/polls/:id/cancel", h.Cancel, limit)

	// ---- Admin ----
	admin := middleware.RequireAdmin()
	v1.POST("/polls", h.Create, admin)
	v1.PATCH("/polls/:id", h.Edit, admin)
	v1.DELETE("/polls/:id", h.Delete, admin)
	v1.POST("/polls/:id/approve", h.Approve, admin)
	v1.POST("/polls/:id/reject", h.Reject, admin)
	v1.POST("/polls/:id/attendees", h.AddAttendee, admin)
	v1.DELETE("/polls/:id/attendees/:name", h.RemoveAttendee, admin)
	v1.POST("/polls/:id/attendees/:name/guest", h.ToggleGuest, admin)
	v1.POST("/polls/:id/credits", h.ApplyCredit, admin)
	v1.POST("/polls/:id/credits/revoke", h.RevokeCredit, admin)

	v1.GET("/templates", h.ListTemplates, admin)
	v1.POST("/templates", h.SaveTemplate, admin)
	v1.DELETE("/templates/:id", h.DeleteTemplate, admin)
}
