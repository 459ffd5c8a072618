package board

import (
	"context"
	"time"

	"github.com/iliyamo/netplay-club/internal/model"
)

// PlayerView is a roster entry as shown to clients, without the PIN.
type PlayerView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Grade     string `json:"grade"`
	Gender    string `json:"gender"`
	Guest     bool   `json:"guest"`
	PlayCount int    `json:"play_count"`
	Waiting   bool   `json:"waiting"`
	OnCourt   int    `json:"on_court,omitempty"`
}

type CourtView struct {
	ID               int          `json:"id"`
	Players          []PlayerView `json:"players"`
	StartTime        *time.Time   `json:"start_time"`
	SessionID        *int64       `json:"session_id"`
	CountedSessionID *int64       `json:"counted_session_id"`
	ElapsedSeconds   int64        `json:"elapsed_seconds"`
}

type Snapshot struct {
	Players []PlayerView `json:"players"`
	Waiting [][]int64    `json:"waiting"`
	Courts  []CourtView  `json:"courts"`
	At      time.Time    `json:"at"`
}

func viewOf(p model.Player) PlayerView {
	return PlayerView{
		ID:        p.ID,
		Name:      p.Name,
		Grade:     p.Grade,
		Gender:    p.Gender,
		Guest:     p.Guest,
		PlayCount: p.PlayCount,
	}
}

// courtViewOf renders court n as clients see it at now.
func courtViewOf(ct model.Court, n int, now time.Time) CourtView {
	cv := CourtView{
		ID:               n,
		Players:          make([]PlayerView, 0, len(ct.Players)),
		StartTime:        ct.StartTime,
		SessionID:        ct.SessionID,
		CountedSessionID: ct.CountedSessionID,
	}
	for _, p := range ct.Players {
		pv := viewOf(p)
		pv.OnCourt = n
		cv.Players = append(cv.Players, pv)
	}
	if ct.Occupied() && ct.StartTime != nil {
		cv.ElapsedSeconds = max(0, int64(now.Sub(*ct.StartTime)/time.Second))
	}
	return cv
}

func (cv CourtView) Occupied() bool { return len(cv.Players) > 0 }

func (cv CourtView) PlayerIDs() []int64 {
	ids := make([]int64, 0, len(cv.Players))
	for _, p := range cv.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

// Snapshot reads the whole board. Elapsed time is derived from the court's
// start time and the current clock.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	r, err := c.roster(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	w, err := c.waiting(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	now := c.now()

	waiting := make(map[int64]bool)
	for _, g := range w.Groups {
		for _, id := range g {
			waiting[id] = true
		}
	}
	onCourt := make(map[int64]int)
	courts := make([]CourtView, 0, c.courts)
	for n := 1; n <= c.courts; n++ {
		ct, err := c.court(ctx, n)
		if err != nil {
			return Snapshot{}, err
		}
		cv := courtViewOf(ct, n, now)
		for _, pv := range cv.Players {
			onCourt[pv.ID] = n
		}
		courts = append(courts, cv)
	}

	players := make([]PlayerView, 0, len(r.Players))
	for _, p := range r.Players {
		pv := viewOf(p)
		pv.Waiting = waiting[p.ID]
		pv.OnCourt = onCourt[p.ID]
		players = append(players, pv)
	}
	return Snapshot{Players: players, Waiting: w.Groups, Courts: courts, At: now.UTC()}, nil
}
