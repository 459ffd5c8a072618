package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/utils"
)

// SessionHandler issues caller tokens.
type SessionHandler struct {
	Secret       string
	TTL          time.Duration
	PasscodeHash string // bcrypt; empty disables admin sessions
	Log          *slog.Logger
}

type sessionReq struct {
	Name          string `json:"name" validate:"required,max=40,nocolon"`
	PIN           string `json:"pin" validate:"required,max=16"`
	Grade         string `json:"grade" validate:"max=8"`
	Gender        string `json:"gender" validate:"max=8"`
	Guest         bool   `json:"guest"`
	AdminPasscode string `json:"admin_passcode"`
}

type sessionResp struct {
	Caller model.Caller      `json:"caller"`
	Token  utils.CallerToken `json:"session"`
}

// Create: POST /v1/session. An admin passcode that does not match is
// rejected instead of silently downgraded.
func (h *SessionHandler) Create(c echo.Context) error {
	var req sessionReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	caller := model.Caller{
		Name:   strings.TrimSpace(req.Name),
		PIN:    strings.TrimSpace(req.PIN),
		Grade:  req.Grade,
		Gender: req.Gender,
		Guest:  req.Guest,
	}
	if req.AdminPasscode != "" {
		if !utils.VerifyPasscode(h.PasscodeHash, req.AdminPasscode) {
			h.Log.WarnContext(c.Request().Context(), "admin passcode rejected", slog.String("name", caller.Name), slog.String("ip", c.RealIP()))
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid admin passcode"})
		}
		caller.Admin = true
	}
	tok, err := utils.NewCallerToken(h.Secret, caller, h.TTL)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, sessionResp{Caller: caller, Token: tok})
}
