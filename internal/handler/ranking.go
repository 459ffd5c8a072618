package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/netplay-club/internal/ranking"
)

type RankingHandler struct {
	Ranking *ranking.Service
	Log     *slog.Logger
}

// Monthly: GET /v1/ranking?month=YYYY-MM
func (h *RankingHandler) Monthly(c echo.Context) error {
	r, err := h.Ranking.Monthly(c.Request().Context(), c.QueryParam("month"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	if r.Entries == nil {
		r.Entries = []ranking.Entry{}
	}
	return c.JSON(http.StatusOK, r)
}
