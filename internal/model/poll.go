package model

import "time"

// LogKind names a roster membership event.
type LogKind string

const (
	LogJoin        LogKind = "join"
	LogCancel      LogKind = "cancel"
	LogPromote     LogKind = "promote"
	LogAdminAdd    LogKind = "admin_add"
	LogAdminRemove LogKind = "admin_remove"
)

// LogEntry is one append-only record in Poll.Logs.
type LogEntry struct {
	Type LogKind   `json:"type"`
	Name string    `json:"name"`
	Time time.Time `json:"time"`
}

// Poll is one scheduled meeting with a capacity-bounded roster.
// Fields:
//   - Date: session day formatted YYYY-MM-DD
//   - Time, Location, Fee: free-form display metadata
//   - Capacity: maximum number of participants (> 0)
//   - Participants: seated attendees in join order, never longer than Capacity
//   - Waitlist: overflow queue, head is promoted first
//   - Logs: membership events in commit order
type Poll struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	Location     string     `json:"location"`
	Fee          string     `json:"fee"`
	Capacity     int        `json:"capacity"`
	Participants []Attendee `json:"participants"`
	Waitlist     []Attendee `json:"waitlist"`
	Logs         []LogEntry `json:"logs"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DateLayout is the calendar format used for poll and log dates.
const DateLayout = "2006-01-02"

// ParsedDate returns the session day, ok=false when Date is not YYYY-MM-DD.
func (p Poll) ParsedDate() (time.Time, bool) {
	d, err := time.Parse(DateLayout, p.Date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// HasRoom reports whether another participant fits.
func (p Poll) HasRoom() bool { return len(p.Participants) < p.Capacity }

// PollTemplate stores reusable poll metadata for the admin "new poll" form.
type PollTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Time      string    `json:"time"`
	Location  string    `json:"location"`
	Fee       string    `json:"fee"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}
