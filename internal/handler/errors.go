package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/netplay-club/internal/board"
	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/ranking"
	"github.com/iliyamo/netplay-club/internal/repository"
	"github.com/iliyamo/netplay-club/internal/roster"
)

// statusTable maps the domain sentinels to HTTP statuses. Order matters
// only in that the first match wins.
var statusTable = []struct {
	status int
	errs   []error
}{
	{http.StatusForbidden, []error{roster.ErrForbidden, board.ErrForbidden}},
	{http.StatusNotFound, []error{
		roster.ErrPollNotFound, roster.ErrAttendeeNotFound, roster.ErrTemplateNotFound,
		board.ErrPlayerNotFound, board.ErrGroupNotFound, board.ErrCourtNotFound,
		repository.ErrMeetingNotFound,
	}},
	{http.StatusBadRequest, []error{
		roster.ErrNotIdentified, roster.ErrInvalidName, roster.ErrInvalidCapacity, roster.ErrInvalidDate,
		roster.ErrInvalidPoll, roster.ErrInvalidList, roster.ErrNothingSelected,
		board.ErrNotIdentified, board.ErrInvalidName, board.ErrUnknownPlayer, board.ErrEmptySelection,
		board.ErrGroupTooLarge, ranking.ErrInvalidMonth, repository.ErrInvalidDate,
	}},
	{http.StatusPreconditionFailed, []error{roster.ErrConfirmationRequired, board.ErrConfirmationRequired}},
	{http.StatusConflict, []error{
		roster.ErrAlreadyRegistered, roster.ErrNotRegistered, roster.ErrCapacityExceeded, roster.ErrWaitlistEmpty,
		board.ErrAlreadyJoined, board.ErrGroupFull, board.ErrGroupNotReady, board.ErrCourtEmpty, board.ErrAlreadyCredited,
	}},
	{http.StatusServiceUnavailable, []error{docstore.ErrConflict, roster.ErrArchiveFailed, board.ErrCloseIncomplete}},
}

const lostRaceMessage = "someone else already acted"

func isLostRace(err error) bool { return roster.IsLostRace(err) || board.IsLostRace(err) }

// respond writes the error body for err. Unknown errors are logged and
// reported as 500 without their text.
func respond(c echo.Context, log *slog.Logger, err error) error {
	if isLostRace(err) {
		return c.JSON(http.StatusConflict, echo.Map{"error": lostRaceMessage, "detail": err.Error(), "lost_race": true})
	}
	for _, row := range statusTable {
		for _, target := range row.errs {
			if errors.Is(err, target) {
				return c.JSON(row.status, echo.Map{"error": err.Error()})
			}
		}
	}
	log.ErrorContext(c.Request().Context(), "request failed",
		slog.String("method", c.Request().Method), slog.String("path", c.Path()), slog.Any("error", err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
