// Package queue defines the club events exchanged over RabbitMQ and the
// consumer that journals them.
package queue

import (
	"encoding/json"
	"time"

	"github.com/iliyamo/netplay-club/internal/model"
)

// ClubEventsQueue is the durable queue every club event is routed to.
const ClubEventsQueue = "club.events"

const (
	TypeAttendanceCredited = "attendance.credited"
	TypeAttendanceRevoked  = "attendance.revoked"
	TypeMeetingArchived    = "meeting.archived"
	TypeCourtClosed        = "court.closed"
)

// Event is the envelope published for every produced record. Payload holds
// one of the typed structs below, encoded as JSON.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEvent(eventType string, at time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, OccurredAt: at.UTC(), Payload: raw}, nil
}

// AttendanceCredited is emitted after participation logs were inserted.
type AttendanceCredited struct {
	PollID string   `json:"poll_id"`
	Date   string   `json:"date"`
	Names  []string `json:"names"`
}

// AttendanceRevoked is emitted after participation logs were deleted.
type AttendanceRevoked struct {
	PollID  string   `json:"poll_id"`
	Date    string   `json:"date"`
	Names   []string `json:"names"`
	Removed int64    `json:"removed"`
}

// MeetingArchived is emitted once a poll was archived and deleted.
type MeetingArchived struct {
	MeetingID uint64                  `json:"meeting_id"`
	PollID    string                  `json:"poll_id"`
	Date      string                  `json:"date"`
	Attendees []model.AttendeeSummary `json:"attendees"`
}

// CourtClosed is emitted when a court session ends. Credited is false for
// a force clear.
type CourtClosed struct {
	CourtID   int     `json:"court_id"`
	SessionID int64   `json:"session_id"`
	Credited  bool    `json:"credited"`
	PlayerIDs []int64 `json:"player_ids"`
}
