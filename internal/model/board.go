package model

import "time"

// GroupSize is the number of players in a full waiting group and on an
// occupied court.
const GroupSize = 4

// Player is a board roster member.
type Player struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Grade     string `json:"grade"`
	Gender    string `json:"gender"`
	Guest     bool   `json:"guest"`
	PIN       string `json:"pin"`
	PlayCount int    `json:"play_count"`
}

// PlayerRoster is the board/players document. CreditedSessions is the
// ledger of "court:session" keys whose play counts were already applied.
type PlayerRoster struct {
	Players          []Player `json:"players"`
	CreditedSessions []string `json:"credited_sessions"`
}

// Find returns the index of the player with id, or -1.
func (r PlayerRoster) Find(id int64) int {
	for i, p := range r.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// WaitingGroups is the board/waiting document. Cleared groups stay as empty
// slots so indexes held by other admins keep pointing at the same group.
type WaitingGroups struct {
	Groups [][]int64 `json:"groups"`
}

// Court is a board/courts/{n} document.
type Court struct {
	ID               int        `json:"id"`
	Players          []Player   `json:"players"`
	StartTime        *time.Time `json:"start_time"`
	SessionID        *int64     `json:"session_id"`
	CountedSessionID *int64     `json:"counted_session_id"`
}

// Occupied reports whether a group is currently playing on the court.
func (c Court) Occupied() bool { return len(c.Players) > 0 }

// PlayerIDs lists the occupants' ids in court order.
func (c Court) PlayerIDs() []int64 {
	ids := make([]int64, 0, len(c.Players))
	for _, p := range c.Players {
		ids = append(ids, p.ID)
	}
	return ids
}
