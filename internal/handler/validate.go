package handler

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// names are matched across stored "name:pin" strings
	_ = v.RegisterValidation("nocolon", func(fl validator.FieldLevel) bool {
		return !strings.Contains(fl.Field().String(), ":")
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	if err := cv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// bind decodes and validates the request into req, writing the 400 reply
// itself. ok is false when the handler should stop.
func bind(c echo.Context, req any) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		msg := err.Error()
		if he, isHTTP := err.(*echo.HTTPError); isHTTP {
			if s, isStr := he.Message.(string); isStr {
				msg = s
			}
		}
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	return true, nil
}
