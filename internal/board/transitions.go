package board

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/netplay-club/internal/model"
)

// ledgerSize bounds the credited-session ledger kept in the players
// document. Only the most recent closes can ever be retried.
const ledgerSize = 256

// NewGroup as a group index asks AddToWaitingGroup to start a new group.
const NewGroup = -1

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ":") {
		return "", ErrInvalidName
	}
	return name, nil
}

func ledgerKey(courtID int, sessionID int64) string {
	return fmt.Sprintf("%d:%d", courtID, sessionID)
}

// nextPlayerID is a creation timestamp in milliseconds, bumped past every
// id already on the roster.
func nextPlayerID(r model.PlayerRoster, now time.Time) int64 {
	id := now.UnixMilli()
	for _, p := range r.Players {
		if p.ID >= id {
			id = p.ID + 1
		}
	}
	return id
}

// nextSessionID is a creation timestamp in nanoseconds, bumped past the
// court's last counted session and every ledgered session of that court.
func nextSessionID(c model.Court, ledger []string, now time.Time) int64 {
	id := now.UnixNano()
	if c.CountedSessionID != nil && *c.CountedSessionID >= id {
		id = *c.CountedSessionID + 1
	}
	prefix := strconv.Itoa(c.ID) + ":"
	for _, k := range ledger {
		s, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v >= id {
			id = v + 1
		}
	}
	return id
}

func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// applyAddToGroup inserts ids into groups[index], or into a new group when
// index is NewGroup. An id already waiting in any group is dropped from the
// insertion. It reports whether anything changed.
func applyAddToGroup(w *model.WaitingGroups, ids []int64, index int) (bool, error) {
	ids = uniqueIDs(ids)
	if index == NewGroup {
		if len(ids) == 0 {
			return false, ErrEmptySelection
		}
		if len(ids) > model.GroupSize {
			return false, ErrGroupTooLarge
		}
	} else if index < 0 || index >= len(w.Groups) {
		return false, ErrGroupNotFound
	}

	waiting := make(map[int64]bool)
	for _, g := range w.Groups {
		for _, id := range g {
			waiting[id] = true
		}
	}
	incoming := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !waiting[id] {
			incoming = append(incoming, id)
		}
	}

	if index == NewGroup {
		if len(incoming) == 0 {
			return false, nil
		}
		w.Groups = append(w.Groups, incoming)
		return true, nil
	}
	base := w.Groups[index]
	if len(base)+len(incoming) > model.GroupSize {
		return false, ErrGroupFull
	}
	if len(incoming) == 0 {
		return false, nil
	}
	w.Groups[index] = append(append([]int64{}, base...), incoming...)
	return true, nil
}

func applyRemoveFromGroup(w *model.WaitingGroups, id int64, index int) bool {
	if index < 0 || index >= len(w.Groups) {
		return false
	}
	g := w.Groups[index]
	i := slices.Index(g, id)
	if i < 0 {
		return false
	}
	w.Groups[index] = slices.Delete(slices.Clone(g), i, i+1)
	return true
}

// stripPlayer removes id from every waiting group.
func stripPlayer(w *model.WaitingGroups, id int64) bool {
	changed := false
	for i, g := range w.Groups {
		if slices.Contains(g, id) {
			w.Groups[i] = slices.DeleteFunc(slices.Clone(g), func(x int64) bool { return x == id })
			changed = true
		}
	}
	return changed
}

// clearGroupIfSame empties groups[index] only when it still holds exactly ids.
func clearGroupIfSame(w *model.WaitingGroups, index int, ids []int64) bool {
	if index < 0 || index >= len(w.Groups) {
		return false
	}
	g := w.Groups[index]
	if len(g) != len(ids) {
		return false
	}
	for _, id := range ids {
		if !slices.Contains(g, id) {
			return false
		}
	}
	w.Groups[index] = []int64{}
	return true
}

// resolvePlayers looks up the group's players on the roster.
func resolvePlayers(r model.PlayerRoster, ids []int64) ([]model.Player, error) {
	out := make([]model.Player, 0, len(ids))
	for _, id := range ids {
		i := r.Find(id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
		}
		out = append(out, r.Players[i])
	}
	return out, nil
}

// applyAssign occupies an empty court with players and starts a session.
func applyAssign(c *model.Court, players []model.Player, sessionID int64, at time.Time) error {
	if c.Occupied() {
		return ErrCourtOccupied
	}
	start := at.UTC()
	c.Players = players
	c.StartTime = &start
	c.SessionID = &sessionID
	c.CountedSessionID = nil
	return nil
}

// alreadyCredited is the countedSessionId == sessionId guard. A court whose
// session id was lost counts as credited, since it can never be told apart.
func alreadyCredited(c model.Court) bool {
	if c.SessionID == nil {
		return true
	}
	return c.CountedSessionID != nil && *c.CountedSessionID == *c.SessionID
}

// applyCredit bumps every listed player's play count once for the session
// key. It reports false when the key was already credited.
func applyCredit(r *model.PlayerRoster, key string, ids []int64) bool {
	if slices.Contains(r.CreditedSessions, key) {
		return false
	}
	for _, id := range ids {
		if i := r.Find(id); i >= 0 {
			r.Players[i].PlayCount++
		}
	}
	r.CreditedSessions = append(r.CreditedSessions, key)
	if n := len(r.CreditedSessions); n > ledgerSize {
		r.CreditedSessions = append([]string{}, r.CreditedSessions[n-ledgerSize:]...)
	}
	return true
}

// applyUncredit takes back a credit recorded under key. Counts never drop
// below zero.
func applyUncredit(r *model.PlayerRoster, key string, ids []int64) bool {
	at := slices.Index(r.CreditedSessions, key)
	if at < 0 {
		return false
	}
	r.CreditedSessions = slices.Delete(r.CreditedSessions, at, at+1)
	for _, id := range ids {
		if i := r.Find(id); i >= 0 && r.Players[i].PlayCount > 0 {
			r.Players[i].PlayCount--
		}
	}
	return true
}

// applyCloseCredited clears the court if it still runs session sessionID.
func applyCloseCredited(c *model.Court, sessionID int64) bool {
	if c.SessionID == nil || *c.SessionID != sessionID {
		return false
	}
	counted := sessionID
	c.Players = []model.Player{}
	c.StartTime = nil
	c.SessionID = nil
	c.CountedSessionID = &counted
	return true
}

func applyForceClear(c *model.Court) {
	c.Players = []model.Player{}
	c.StartTime = nil
	c.SessionID = nil
	c.CountedSessionID = nil
}

// removeFromCourt drops one occupant and leaves the session running.
func removeFromCourt(c *model.Court, id int64) bool {
	n := len(c.Players)
	c.Players = slices.DeleteFunc(c.Players, func(p model.Player) bool { return p.ID == id })
	return len(c.Players) != n
}

func normalizeRoster(r *model.PlayerRoster) {
	if r.Players == nil {
		r.Players = []model.Player{}
	}
	if r.CreditedSessions == nil {
		r.CreditedSessions = []string{}
	}
}

func normalizeWaiting(w *model.WaitingGroups) {
	if w.Groups == nil {
		w.Groups = [][]int64{}
	}
	for i, g := range w.Groups {
		if g == nil {
			w.Groups[i] = []int64{}
		}
	}
}

func normalizeCourt(c *model.Court, id int) {
	c.ID = id
	if c.Players == nil {
		c.Players = []model.Player{}
	}
}
