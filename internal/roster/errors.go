package roster

import "errors"

// Precondition violations. They are detected against the latest committed
// poll inside the transaction and leave the poll untouched.
var (
	ErrPollNotFound         = errors.New("poll not found")
	ErrNotIdentified        = errors.New("name and PIN are required")
	ErrInvalidName          = errors.New("name must be non-empty and must not contain ':'")
	ErrForbidden            = errors.New("administrator only")
	ErrAlreadyRegistered    = errors.New("already registered for this session")
	ErrNotRegistered        = errors.New("not registered for this session")
	ErrCapacityExceeded     = errors.New("session is full")
	ErrWaitlistEmpty        = errors.New("waitlist is empty")
	ErrAttendeeNotFound     = errors.New("attendee not found")
	ErrInvalidCapacity      = errors.New("capacity must be a positive number")
	ErrInvalidDate          = errors.New("date must be YYYY-MM-DD")
	ErrInvalidPoll          = errors.New("date, time and location are required")
	ErrInvalidList          = errors.New("list must be participants or waitlist")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrNothingSelected      = errors.New("no attendees selected")
	ErrTemplateNotFound     = errors.New("template not found")
)

// Lost races: another actor changed the poll between what the caller saw
// and the commit.
var (
	ErrWaitlistHeadChanged = errors.New("waitlist head changed, someone else already acted")
	ErrPollChanged         = errors.New("poll changed while it was being archived, someone else already acted")
)

// ErrArchiveFailed means the meeting record could not be written, so the
// poll was not deleted.
var ErrArchiveFailed = errors.New("meeting archive failed, poll kept")

// IsLostRace reports whether err means a concurrent actor won.
func IsLostRace(err error) bool {
	return errors.Is(err, ErrWaitlistHeadChanged) || errors.Is(err, ErrPollChanged)
}
