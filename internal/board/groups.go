package board

import (
	"context"
	"log/slog"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/model"
)

// AddToWaitingGroup puts the selected players into group index, or into a
// new group when index is NewGroup. Players already waiting elsewhere are
// skipped; a group never grows beyond four.
func (c *Controller) AddToWaitingGroup(ctx context.Context, caller model.Caller, ids []int64, index int) (model.WaitingGroups, error) {
	if err := requireAdmin(caller); err != nil {
		return model.WaitingGroups{}, err
	}
	if err := c.checkPlayers(ctx, ids); err != nil {
		return model.WaitingGroups{}, err
	}
	w, err := c.updateWaiting(ctx, func(w *model.WaitingGroups) error {
		changed, err := applyAddToGroup(w, ids, index)
		if err != nil {
			return err
		}
		if !changed {
			return docstore.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return model.WaitingGroups{}, err
	}
	normalizeWaiting(&w)
	c.metrics.Transition("board", "group_add")
	c.log.InfoContext(ctx, "waiting group updated", slog.Int("group", index), slog.Any("player_ids", ids))
	return w, nil
}

// RemoveFromWaitingGroup takes a player out of a group; absent is a no-op.
func (c *Controller) RemoveFromWaitingGroup(ctx context.Context, caller model.Caller, id int64, index int) (model.WaitingGroups, error) {
	if err := requireAdmin(caller); err != nil {
		return model.WaitingGroups{}, err
	}
	w, err := c.updateWaiting(ctx, func(w *model.WaitingGroups) error {
		if !applyRemoveFromGroup(w, id, index) {
			return docstore.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return model.WaitingGroups{}, err
	}
	normalizeWaiting(&w)
	c.metrics.Transition("board", "group_remove")
	return w, nil
}

func (c *Controller) WaitingGroups(ctx context.Context) (model.WaitingGroups, error) {
	return c.waiting(ctx)
}
