package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/queue"
)

// AssignResult reports a successful assignment. GroupCleared is false when
// the source group changed after the court was taken and was left alone.
type AssignResult struct {
	Court        CourtView `json:"court"`
	GroupCleared bool      `json:"group_cleared"`
}

// AssignToCourt moves a full waiting group onto an empty court. Only one
// of several concurrent assignments to the same empty court commits; the
// others get ErrCourtOccupied and their groups stay as they were.
func (c *Controller) AssignToCourt(ctx context.Context, caller model.Caller, courtID, index int) (AssignResult, error) {
	if err := requireAdmin(caller); err != nil {
		return AssignResult{}, err
	}
	if err := c.validCourt(courtID); err != nil {
		return AssignResult{}, err
	}
	w, err := c.waiting(ctx)
	if err != nil {
		return AssignResult{}, err
	}
	if index < 0 || index >= len(w.Groups) {
		return AssignResult{}, ErrGroupNotFound
	}
	ids := slices.Clone(w.Groups[index])
	if len(ids) != model.GroupSize {
		return AssignResult{}, ErrGroupNotReady
	}
	r, err := c.roster(ctx)
	if err != nil {
		return AssignResult{}, err
	}
	players, err := resolvePlayers(r, ids)
	if err != nil {
		return AssignResult{}, err
	}

	court, err := c.updateCourt(ctx, courtID, func(ct *model.Court) error {
		now := c.now()
		return applyAssign(ct, players, nextSessionID(*ct, r.CreditedSessions, now), now)
	})
	if err != nil {
		return AssignResult{}, err
	}

	cleared := false
	_, err = c.updateWaiting(ctx, func(w *model.WaitingGroups) error {
		cleared = clearGroupIfSame(w, index, ids)
		if !cleared {
			return docstore.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		cleared = false
		c.log.ErrorContext(ctx, "clearing assigned waiting group failed", slog.Int("group", index), slog.Any("error", err))
	}

	c.metrics.Transition("board", "assign")
	c.log.InfoContext(ctx, "group assigned to court", slog.Int("court_id", courtID), slog.Int("group", index),
		slog.Int64("session_id", *court.SessionID), slog.Bool("group_cleared", cleared))
	return AssignResult{Court: courtViewOf(court, courtID, c.now()), GroupCleared: cleared}, nil
}

// CloseResult reports a credited close. Recredited is false when a retry
// found the session already credited and only cleared the court.
type CloseResult struct {
	Court     CourtView `json:"court"`
	SessionID int64     `json:"session_id"`
	PlayerIDs []int64   `json:"player_ids"`
	Credited  bool      `json:"credited"`
}

// CreditedClose ends the court's session and adds one to every occupant's
// play count. The credit is recorded under "{court}:{session}" in the same
// update as the counts, so a session is never credited twice even when the
// court clear that follows fails and the close is retried.
func (c *Controller) CreditedClose(ctx context.Context, caller model.Caller, courtID int, confirmed bool) (CloseResult, error) {
	if err := requireAdmin(caller); err != nil {
		return CloseResult{}, err
	}
	if err := c.validCourt(courtID); err != nil {
		return CloseResult{}, err
	}
	if !confirmed {
		return CloseResult{}, ErrConfirmationRequired
	}
	ct, err := c.court(ctx, courtID)
	if err != nil {
		return CloseResult{}, err
	}
	if !ct.Occupied() {
		return CloseResult{}, ErrCourtEmpty
	}
	if alreadyCredited(ct) {
		return CloseResult{}, ErrAlreadyCredited
	}
	sessionID := *ct.SessionID
	ids := ct.PlayerIDs()

	credited := false
	_, err = c.updateRoster(ctx, func(r *model.PlayerRoster) error {
		credited = applyCredit(r, ledgerKey(courtID, sessionID), ids)
		if !credited {
			return docstore.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return CloseResult{}, fmt.Errorf("credit play counts: %w", err)
	}

	closed, closedElsewhere := false, false
	court, err := c.updateCourt(ctx, courtID, func(ct *model.Court) error {
		closed = applyCloseCredited(ct, sessionID)
		if !closed {
			closedElsewhere = ct.CountedSessionID != nil && *ct.CountedSessionID == sessionID
			return docstore.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		c.log.ErrorContext(ctx, "court clear after credit failed", slog.Int("court_id", courtID),
			slog.Int64("session_id", sessionID), slog.Any("error", err))
		return CloseResult{}, fmt.Errorf("%w: %v", ErrCloseIncomplete, err)
	}
	if !closed {
		if credited && !closedElsewhere {
			if err := c.uncredit(ctx, courtID, sessionID, ids); err != nil {
				return CloseResult{}, fmt.Errorf("%w (credit rollback failed: %v)", ErrSessionEnded, err)
			}
		}
		return CloseResult{}, ErrSessionEnded
	}

	c.metrics.Transition("board", "credited_close")
	c.log.InfoContext(ctx, "court closed with credit", slog.Int("court_id", courtID), slog.Int64("session_id", sessionID),
		slog.Any("player_ids", ids), slog.Bool("credited_now", credited))
	c.publish(ctx, queue.TypeCourtClosed, queue.CourtClosed{CourtID: courtID, SessionID: sessionID, Credited: true, PlayerIDs: ids})
	return CloseResult{Court: courtViewOf(court, courtID, c.now()), SessionID: sessionID, PlayerIDs: ids, Credited: credited}, nil
}

// ForceClear empties the court without touching play counts.
func (c *Controller) ForceClear(ctx context.Context, caller model.Caller, courtID int, confirmed bool) (model.Court, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Court{}, err
	}
	if err := c.validCourt(courtID); err != nil {
		return model.Court{}, err
	}
	if !confirmed {
		return model.Court{}, ErrConfirmationRequired
	}
	var before model.Court
	court, err := c.updateCourt(ctx, courtID, func(ct *model.Court) error {
		before = *ct
		applyForceClear(ct)
		return nil
	})
	if err != nil {
		return model.Court{}, err
	}
	c.metrics.Transition("board", "force_clear")
	c.log.InfoContext(ctx, "court force cleared", slog.Int("court_id", courtID), slog.Any("player_ids", before.PlayerIDs()))
	if before.Occupied() {
		ev := queue.CourtClosed{CourtID: courtID, PlayerIDs: before.PlayerIDs()}
		if before.SessionID != nil {
			ev.SessionID = *before.SessionID
		}
		c.publish(ctx, queue.TypeCourtClosed, ev)
	}
	return court, nil
}

// GlobalReset removes every player and waiting group and force clears
// every court. The credit ledger survives so session ids stay unique.
func (c *Controller) GlobalReset(ctx context.Context, caller model.Caller, confirmed bool) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if !confirmed {
		return ErrConfirmationRequired
	}
	var errs []error
	if _, err := c.updateRoster(ctx, func(r *model.PlayerRoster) error {
		r.Players = []model.Player{}
		return nil
	}); err != nil {
		errs = append(errs, fmt.Errorf("reset players: %w", err))
	}
	if _, err := c.updateWaiting(ctx, func(w *model.WaitingGroups) error {
		w.Groups = [][]int64{}
		return nil
	}); err != nil {
		errs = append(errs, fmt.Errorf("reset waiting groups: %w", err))
	}
	for n := 1; n <= c.courts; n++ {
		if _, err := c.updateCourt(ctx, n, func(ct *model.Court) error {
			applyForceClear(ct)
			return nil
		}); err != nil {
			errs = append(errs, fmt.Errorf("reset court %d: %w", n, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		c.log.ErrorContext(ctx, "board reset incomplete", slog.Any("error", err))
		return err
	}
	c.metrics.Transition("board", "reset")
	c.log.WarnContext(ctx, "board reset", slog.String("by", caller.Name))
	return nil
}

// uncredit reverses a credit whose session was cleared by someone else
// between the credit and the court clear.
func (c *Controller) uncredit(ctx context.Context, courtID int, sessionID int64, ids []int64) error {
	_, err := c.updateRoster(ctx, func(r *model.PlayerRoster) error {
		if !applyUncredit(r, ledgerKey(courtID, sessionID), ids) {
			return docstore.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		c.log.ErrorContext(ctx, "credit rollback failed", slog.Int("court_id", courtID),
			slog.Int64("session_id", sessionID), slog.Any("error", err))
		return err
	}
	c.log.WarnContext(ctx, "credit rolled back, session ended concurrently", slog.Int("court_id", courtID),
		slog.Int64("session_id", sessionID), slog.Any("player_ids", ids))
	return nil
}
