package board

import "errors"

var (
	ErrNotIdentified        = errors.New("name and PIN are required")
	ErrInvalidName          = errors.New("name must be non-empty and must not contain ':'")
	ErrForbidden            = errors.New("administrator only")
	ErrAlreadyJoined        = errors.New("already on the board")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrUnknownPlayer        = errors.New("selection contains an unknown player")
	ErrEmptySelection       = errors.New("no players selected")
	ErrGroupTooLarge        = errors.New("a waiting group holds at most 4 players")
	ErrGroupFull            = errors.New("waiting group would exceed 4 players")
	ErrGroupNotFound        = errors.New("waiting group not found")
	ErrGroupNotReady        = errors.New("waiting group must have exactly 4 players")
	ErrCourtNotFound        = errors.New("court not found")
	ErrCourtEmpty           = errors.New("court is not occupied")
	ErrAlreadyCredited      = errors.New("session already credited")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Lost races.
var (
	ErrCourtOccupied = errors.New("court is no longer empty, someone else already acted")
	ErrSessionEnded  = errors.New("court session already ended, someone else already acted")
)

// ErrCloseIncomplete means play counts were credited but the court could
// not be cleared. Retrying the close clears it without crediting again.
var ErrCloseIncomplete = errors.New("play counts credited but court not cleared, retry the close")

// IsLostRace reports whether err means a concurrent actor won.
func IsLostRace(err error) bool {
	return errors.Is(err, ErrCourtOccupied) || errors.Is(err, ErrSessionEnded)
}
