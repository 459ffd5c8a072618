package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/netplay-club/internal/model"
)

const callerKey = "caller"

// Identity resolves the caller for every request and stores it in the
// context. A bearer token wins; without one the name, pin, grade, gender
// and guest query parameters are used and admin is always false. A bearer
// token that fails verification is rejected with 401.
func Identity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, present, err := bearerCaller(c, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			if !present {
				caller = queryCaller(c)
			}
			c.Set(callerKey, caller)
			return next(c)
		}
	}
}

func queryCaller(c echo.Context) model.Caller {
	guest, _ := strconv.ParseBool(c.QueryParam("guest"))
	return model.Caller{
		Name:   strings.TrimSpace(c.QueryParam("name")),
		PIN:    strings.TrimSpace(c.QueryParam("pin")),
		Grade:  c.QueryParam("grade"),
		Gender: c.QueryParam("gender"),
		Guest:  guest,
	}
}

// CallerFrom returns the caller stored by Identity, or the zero caller.
func CallerFrom(c echo.Context) model.Caller {
	if v, ok := c.Get(callerKey).(model.Caller); ok {
		return v
	}
	return model.Caller{}
}

// callerID is the rate limit identity: the caller's name, or "anon".
func callerID(c echo.Context) string {
	if name := CallerFrom(c).Name; name != "" {
		return name
	}
	return "anon"
}
