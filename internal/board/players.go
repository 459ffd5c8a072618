package board

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/model"
)

// Join registers the caller on the board. A caller already present under
// the same name and PIN gets ErrAlreadyJoined.
func (c *Controller) Join(ctx context.Context, caller model.Caller) (model.Player, error) {
	if !caller.Identified() {
		return model.Player{}, ErrNotIdentified
	}
	name, err := validName(caller.Name)
	if err != nil {
		return model.Player{}, err
	}
	pin := strings.TrimSpace(caller.PIN)
	var added model.Player
	_, err = c.updateRoster(ctx, func(r *model.PlayerRoster) error {
		for _, p := range r.Players {
			if p.Name == name && p.PIN == pin {
				return ErrAlreadyJoined
			}
		}
		added = model.Player{
			ID:     nextPlayerID(*r, c.now()),
			Name:   name,
			Grade:  caller.Grade,
			Gender: caller.Gender,
			Guest:  caller.Guest,
			PIN:    pin,
		}
		r.Players = append(r.Players, added)
		return nil
	})
	if err != nil {
		return model.Player{}, err
	}
	c.metrics.Transition("board", "join")
	c.log.InfoContext(ctx, "player joined board", slog.Int64("player_id", added.ID), slog.String("name", name))
	return added, nil
}

// NewPlayer is an admin-added roster entry. It carries no PIN.
type NewPlayer struct {
	Name   string
	Grade  string
	Gender string
	Guest  bool
}

// AddPlayer adds a player on someone's behalf, deduplicated by name and
// guest flag.
func (c *Controller) AddPlayer(ctx context.Context, caller model.Caller, np NewPlayer) (model.Player, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Player{}, err
	}
	name, err := validName(np.Name)
	if err != nil {
		return model.Player{}, err
	}
	var added model.Player
	_, err = c.updateRoster(ctx, func(r *model.PlayerRoster) error {
		for _, p := range r.Players {
			if p.Name == name && p.Guest == np.Guest {
				return ErrAlreadyJoined
			}
		}
		added = model.Player{
			ID:     nextPlayerID(*r, c.now()),
			Name:   name,
			Grade:  np.Grade,
			Gender: np.Gender,
			Guest:  np.Guest,
		}
		r.Players = append(r.Players, added)
		return nil
	})
	if err != nil {
		return model.Player{}, err
	}
	c.metrics.Transition("board", "add_player")
	c.log.InfoContext(ctx, "player added by admin", slog.Int64("player_id", added.ID), slog.String("name", name))
	return added, nil
}

// RemovePlayer deletes a player from the roster, every waiting group and
// any court they occupy. Players may remove themselves; admins anyone.
// A court keeps its running session when one occupant leaves.
func (c *Controller) RemovePlayer(ctx context.Context, caller model.Caller, id int64) error {
	_, err := c.updateRoster(ctx, func(r *model.PlayerRoster) error {
		i := r.Find(id)
		if i < 0 {
			return ErrPlayerNotFound
		}
		p := r.Players[i]
		self := caller.Identified() && p.Name == strings.TrimSpace(caller.Name) && p.PIN == strings.TrimSpace(caller.PIN)
		if !caller.Admin && !self {
			return ErrForbidden
		}
		r.Players = slices.Delete(r.Players, i, i+1)
		return nil
	})
	if err != nil {
		return err
	}

	_, err = c.updateWaiting(ctx, func(w *model.WaitingGroups) error {
		if !stripPlayer(w, id) {
			return docstore.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove player %d from waiting groups: %w", id, err)
	}
	for n := 1; n <= c.courts; n++ {
		_, err := c.updateCourt(ctx, n, func(ct *model.Court) error {
			if !removeFromCourt(ct, id) {
				return docstore.ErrUnchanged
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("remove player %d from court %d: %w", id, n, err)
		}
	}
	c.metrics.Transition("board", "remove_player")
	c.log.InfoContext(ctx, "player removed from board", slog.Int64("player_id", id), slog.Bool("by_admin", caller.Admin))
	return nil
}

// SetGuest flips a player's guest flag.
func (c *Controller) SetGuest(ctx context.Context, caller model.Caller, id int64, guest bool) (model.Player, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Player{}, err
	}
	var out model.Player
	_, err := c.updateRoster(ctx, func(r *model.PlayerRoster) error {
		i := r.Find(id)
		if i < 0 {
			return ErrPlayerNotFound
		}
		r.Players[i].Guest = guest
		out = r.Players[i]
		return nil
	})
	if err != nil {
		return model.Player{}, err
	}
	return out, nil
}

// Players lists the roster with each player's waiting and court status.
func (c *Controller) Players(ctx context.Context) ([]PlayerView, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Players, nil
}

// checkPlayers checks ids against the roster; unknown ids fail the call.
func (c *Controller) checkPlayers(ctx context.Context, ids []int64) error {
	r, err := c.roster(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if r.Find(id) < 0 {
			return fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
		}
	}
	return nil
}
