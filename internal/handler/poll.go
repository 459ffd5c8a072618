package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/netplay-club/internal/live"
	"github.com/iliyamo/netplay-club/internal/middleware"
	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/roster"
)

// PollHandler serves the roster: self-service join/cancel, the admin
// overrides, attendance credit, templates and the share QR code.
type PollHandler struct {
	Roster *roster.Manager
	Hub    *live.Hub
	AppURL string
	Log    *slog.Logger
}

func NewPollHandler(r *roster.Manager, hub *live.Hub, appURL string, log *slog.Logger) *PollHandler {
	if r == nil || hub == nil || log == nil {
		panic("nil dependency passed to NewPollHandler")
	}
	return &PollHandler{Roster: r, Hub: hub, AppURL: appURL, Log: log}
}

// ----- DTOs -----

type createPollReq struct {
	Title    string `json:"title" validate:"max=120"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Time     string `json:"time" validate:"required,max=40"`
	Location string `json:"location" validate:"required,max=120"`
	Fee      string `json:"fee" validate:"max=40"`
	Capacity int    `json:"capacity" validate:"required,gt=0,lte=500"`
}

type rejectReq struct {
	ExpectedHead string `json:"expected_head"`
	Confirm      bool   `json:"confirm"`
}

type attendeeReq struct {
	Name  string `json:"name" validate:"required,max=40,nocolon"`
	List  string `json:"list" validate:"required,oneof=participants waitlist"`
	Guest bool   `json:"guest"`
}

type namesReq struct {
	Names []string `json:"names" validate:"required,min=1,dive,required"`
}

type templateReq struct {
	Name     string `json:"name" validate:"required,max=60"`
	Time     string `json:"time" validate:"required,max=40"`
	Location string `json:"location" validate:"required,max=120"`
	Fee      string `json:"fee" validate:"max=40"`
	Capacity int    `json:"capacity" validate:"required,gt=0,lte=500"`
}

// attendeeParam is the :name path segment, unescaped.
func attendeeParam(c echo.Context) string {
	raw := c.Param("name")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// ----- reads -----

func (h *PollHandler) List(c echo.Context) error {
	polls, err := h.Roster.ListPolls(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPollViews(polls))
}

func (h *PollHandler) Get(c echo.Context) error {
	p, err := h.Roster.GetPoll(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPollView(p))
}

// QRCode: GET /v1/polls/:id/qrcode returns a PNG linking to the vote page.
func (h *PollHandler) QRCode(c echo.Context) error {
	p, err := h.Roster.GetPoll(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size < 128 || size > 1024 {
		size = 256
	}
	png, err := qrcode.Encode(h.AppURL+"/vote/"+p.ID, qrcode.Medium, size)
	if err != nil {
		return respond(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return c.Blob(http.StatusOK, "image/png", png)
}

// Live: GET /v1/live/polls/:id streams the poll after every change.
func (h *PollHandler) Live(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.Roster.GetPoll(c.Request().Context(), id); err != nil {
		return respond(c, h.Log, err)
	}
	err := h.Hub.Serve(c.Response(), c.Request(), "poll", roster.PollKey(id), func(ctx context.Context) (any, error) {
		p, err := h.Roster.GetPoll(ctx, id)
		if err != nil {
			return nil, err
		}
		return toPollView(p), nil
	})
	if err != nil {
		h.Log.DebugContext(c.Request().Context(), "live poll stream ended", slog.String("poll_id", id), slog.Any("error", err))
	}
	return nil
}

// ----- self service -----

func (h *PollHandler) Join(c echo.Context) error {
	res, err := h.Roster.Join(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"placed": res.Placed, "poll": toPollView(res.Poll)})
}

func (h *PollHandler) Cancel(c echo.Context) error {
	p, err := h.Roster.Cancel(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPollView(p))
}

// ----- admin -----

func (h *PollHandler) Create(c echo.Context) error {
	var req createPollReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	p, err := h.Roster.CreatePoll(c.Request().Context(), middleware.CallerFrom(c), roster.CreatePollRequest{
		Title:    req.Title,
		Date:     req.Date,
		Time:     req.Time,
		Location: req.Location,
		Fee:      req.Fee,
		Capacity: req.Capacity,
	})
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toPollView(p))
}

func (h *PollHandler) Edit(c echo.Context) error {
	var req roster.Edit
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p, err := h.Roster.Edit(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c), req)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPollView(p))
}

// Delete: DELETE /v1/polls/:id?confirm=true archives then removes the poll.
func (h *PollHandler) Delete(c echo.Context) error {
	confirmed, _ := strconv.ParseBool(c.QueryParam("confirm"))
	rec, err := h.Roster.Delete(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c), confirmed)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"meeting": rec})
}

func (h *PollHandler) Approve(c echo.Context) error {
	p, err := h.Roster.Approve(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPollView(p))
}

func (h *PollHandler) Reject(c echo.Context) error {
	var req rejectReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p, err := h.Roster.Reject(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c), req.ExpectedHead, req.Confirm)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPollView(p))
}

func (h *PollHandler) AddAttendee(c echo.Context) error {
	var req attendeeReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	p, err := h.Roster.AddPerson(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c), req.Name, roster.List(req.List), req.Guest)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPollView(p))
}

// RemoveAttendee: DELETE /v1/polls/:id/attendees/:name?list=participants
func (h *PollHandler) RemoveAttendee(c echo.Context) error {
	list := roster.List(c.QueryParam("list"))
	if list == "" {
		list = roster.Participants
	}
	p, err := h.Roster.ForceRemove(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c), attendeeParam(c), list)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPollView(p))
}

func (h *PollHandler) ToggleGuest(c echo.Context) error {
	p, err := h.Roster.ToggleGuest(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c), attendeeParam(c))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPollView(p))
}

func (h *PollHandler) Credits(c echo.Context) error {
	names, err := h.Roster.CreditedNames(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"credited": names})
}

func (h *PollHandler) ApplyCredit(c echo.Context) error {
	var req namesReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	rep, err := h.Roster.ApplyCredit(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c), req.Names)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *PollHandler) RevokeCredit(c echo.Context) error {
	var req namesReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	removed, err := h.Roster.RevokeCredit(c.Request().Context(), c.Param("id"), middleware.CallerFrom(c), req.Names)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": removed})
}

// ----- templates -----

func (h *PollHandler) ListTemplates(c echo.Context) error {
	items, err := h.Roster.ListTemplates(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *PollHandler) SaveTemplate(c echo.Context) error {
	var req templateReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	t, err := h.Roster.SaveTemplate(c.Request().Context(), middleware.CallerFrom(c), model.PollTemplate{
		Name:     req.Name,
		Time:     req.Time,
		Location: req.Location,
		Fee:      req.Fee,
		Capacity: req.Capacity,
	})
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *PollHandler) DeleteTemplate(c echo.Context) error {
	if err := h.Roster.DeleteTemplate(c.Request().Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
