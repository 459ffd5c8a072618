package middleware // middleware holds the echo middleware shared by every route group

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/utils"
)

// bearerCaller reads the caller from an "Authorization: Bearer" token.
// present is false when the request carries no bearer token at all.
func bearerCaller(c echo.Context, secret string) (caller model.Caller, present bool, err error) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return model.Caller{}, false, nil
	}
	caller, err = utils.ParseCallerToken(secret, strings.TrimPrefix(auth, "Bearer "))
	return caller, true, err
}
