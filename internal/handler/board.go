package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/netplay-club/internal/board"
	"github.com/iliyamo/netplay-club/internal/live"
	"github.com/iliyamo/netplay-club/internal/middleware"
)

// BoardHandler serves the court board: roster, waiting groups and courts.
type BoardHandler struct {
	Board *board.Controller
	Hub   *live.Hub
	Log   *slog.Logger
}

func NewBoardHandler(b *board.Controller, hub *live.Hub, log *slog.Logger) *BoardHandler {
	if b == nil || hub == nil || log == nil {
		panic("nil dependency passed to NewBoardHandler")
	}
	return &BoardHandler{Board: b, Hub: hub, Log: log}
}

type addPlayerReq struct {
	Name   string `json:"name" validate:"required,max=40,nocolon"`
	Grade  string `json:"grade" validate:"max=8"`
	Gender string `json:"gender" validate:"max=8"`
	Guest  bool   `json:"guest"`
}

type guestReq struct {
	Guest bool `json:"guest"`
}

// groupReq: Index -1 or no index opens a new group.
type groupReq struct {
	PlayerIDs []int64 `json:"player_ids" validate:"required,min=1,max=4"`
	Index     *int    `json:"index" validate:"omitempty,gte=-1"`
}

type assignReq struct {
	Index int `json:"index" validate:"gte=0"`
}

type confirmReq struct {
	Confirm bool `json:"confirm"`
}

func pathInt64(c echo.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	return v, err == nil
}

func badParam(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + name})
}

func (h *BoardHandler) Snapshot(c echo.Context) error {
	s, err := h.Board.Snapshot(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Live: GET /v1/live/board streams board snapshots.
func (h *BoardHandler) Live(c echo.Context) error {
	err := h.Hub.Serve(c.Response(), c.Request(), "board", board.Prefix, func(ctx context.Context) (any, error) {
		return h.Board.Snapshot(ctx)
	})
	if err != nil {
		h.Log.DebugContext(c.Request().Context(), "live board stream ended", slog.Any("error", err))
	}
	return nil
}

// ----- players -----

// Players: GET /v1/board/players
func (h *BoardHandler) Players(c echo.Context) error {
	players, err := h.Board.Players(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, players)
}

// Join registers the caller on the board roster.
func (h *BoardHandler) Join(c echo.Context) error {
	p, err := h.Board.Join(c.Request().Context(), middleware.CallerFrom(c))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "name": p.Name})
}

func (h *BoardHandler) AddPlayer(c echo.Context) error {
	var req addPlayerReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	p, err := h.Board.AddPlayer(c.Request().Context(), middleware.CallerFrom(c), board.NewPlayer{
		Name:   req.Name,
		Grade:  req.Grade,
		Gender: req.Gender,
		Guest:  req.Guest,
	})
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": p.ID, "name": p.Name, "guest": p.Guest})
}

func (h *BoardHandler) RemovePlayer(c echo.Context) error {
	id, ok := pathInt64(c, "id")
	if !ok {
		return badParam(c, "player id")
	}
	if err := h.Board.RemovePlayer(c.Request().Context(), middleware.CallerFrom(c), id); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BoardHandler) SetGuest(c echo.Context) error {
	id, ok := pathInt64(c, "id")
	if !ok {
		return badParam(c, "player id")
	}
	var req guestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p, err := h.Board.SetGuest(c.Request().Context(), middleware.CallerFrom(c), id, req.Guest)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "guest": p.Guest})
}

// ----- waiting groups -----

func (h *BoardHandler) AddToGroup(c echo.Context) error {
	var req groupReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	index := board.NewGroup
	if req.Index != nil {
		index = *req.Index
	}
	w, err := h.Board.AddToWaitingGroup(c.Request().Context(), middleware.CallerFrom(c), req.PlayerIDs, index)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, w)
}

// RemoveFromGroup: DELETE /v1/board/groups/:index/players/:id
func (h *BoardHandler) RemoveFromGroup(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return badParam(c, "group index")
	}
	id, ok := pathInt64(c, "id")
	if !ok {
		return badParam(c, "player id")
	}
	w, err := h.Board.RemoveFromWaitingGroup(c.Request().Context(), middleware.CallerFrom(c), id, index)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, w)
}

// ----- courts -----

func (h *BoardHandler) Assign(c echo.Context) error {
	courtID, err := strconv.Atoi(c.Param("court"))
	if err != nil {
		return badParam(c, "court")
	}
	var req assignReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	res, err := h.Board.AssignToCourt(c.Request().Context(), middleware.CallerFrom(c), courtID, req.Index)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Close ends the session on a court and credits one game per player.
func (h *BoardHandler) Close(c echo.Context) error {
	courtID, err := strconv.Atoi(c.Param("court"))
	if err != nil {
		return badParam(c, "court")
	}
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := h.Board.CreditedClose(c.Request().Context(), middleware.CallerFrom(c), courtID, req.Confirm)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *BoardHandler) Clear(c echo.Context) error {
	courtID, err := strconv.Atoi(c.Param("court"))
	if err != nil {
		return badParam(c, "court")
	}
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ct, err := h.Board.ForceClear(c.Request().Context(), middleware.CallerFrom(c), courtID, req.Confirm)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"court": ct.ID, "cleared": true})
}

func (h *BoardHandler) Reset(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Board.GlobalReset(c.Request().Context(), middleware.CallerFrom(c), req.Confirm); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
