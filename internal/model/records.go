package model

import "time"

// AttendeeSummary is the normalized attendee shape stored in meeting records.
type AttendeeSummary struct {
	Name  string `json:"name"`
	Guest bool   `json:"guest"`
}

// MeetingRecord mirrors the 'meetings' table. It is an immutable snapshot
// taken from a poll right before the poll is deleted.
type MeetingRecord struct {
	ID        uint64            `json:"id"`
	PollID    string            `json:"poll_id"`
	Date      string            `json:"date"`
	Time      string            `json:"time"`
	Location  string            `json:"location"`
	Fee       string            `json:"fee"`
	Attendees []AttendeeSummary `json:"attendees"`
	CreatedAt time.Time         `json:"created_at"`
}

// ParticipationLog mirrors the 'participation_logs' table: one credited
// attendance per (user_id, date).
type ParticipationLog struct {
	ID        uint64    `json:"id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	PollID    string    `json:"poll_id"`
	Guest     bool      `json:"guest"`
	CreatedAt time.Time `json:"created_at"`
}
