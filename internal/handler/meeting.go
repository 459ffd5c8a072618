package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/ranking"
)

// MeetingStore is the archive of deleted polls.
type MeetingStore interface {
	GetByID(ctx context.Context, id uint64) (model.MeetingRecord, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.MeetingRecord, error)
	Delete(ctx context.Context, id uint64) error
}

// MeetingHandler serves the meeting calendar.
type MeetingHandler struct {
	Meetings MeetingStore
	Loc      *time.Location
	Log      *slog.Logger
	Now      func() time.Time
}

func NewMeetingHandler(m MeetingStore, loc *time.Location, log *slog.Logger) *MeetingHandler {
	if m == nil || log == nil {
		panic("nil dependency passed to NewMeetingHandler")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MeetingHandler{Meetings: m, Loc: loc, Log: log, Now: time.Now}
}

// List: GET /v1/meetings?month=YYYY-MM (default: current month).
func (h *MeetingHandler) List(c echo.Context) error {
	month := strings.TrimSpace(c.QueryParam("month"))
	if month == "" {
		month = h.Now().In(h.Loc).Format("2006-01")
	}
	from, err := time.Parse("2006-01", month)
	if err != nil {
		return respond(c, h.Log, ranking.ErrInvalidMonth)
	}
	items, err := h.Meetings.ListBetween(c.Request().Context(), from, from.AddDate(0, 1, 0))
	if err != nil {
		return respond(c, h.Log, err)
	}
	if items == nil {
		items = []model.MeetingRecord{}
	}
	return c.JSON(http.StatusOK, echo.Map{"month": month, "items": items})
}

func (h *MeetingHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return badParam(c, "meeting id")
	}
	m, err := h.Meetings.GetByID(c.Request().Context(), id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Delete is mounted behind RequireAdmin.
func (h *MeetingHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return badParam(c, "meeting id")
	}
	if err := h.Meetings.Delete(c.Request().Context(), id); err != nil {
		return respond(c, h.Log, err)
	}
	h.Log.InfoContext(c.Request().Context(), "meeting record deleted", slog.Uint64("meeting_id", id))
	return c.NoContent(http.StatusNoContent)
}
