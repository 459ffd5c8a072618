// Package board is the court board: a roster of players, waiting groups of
// up to four, and a fixed set of courts whose sessions are closed either
// with play-count credit (exactly once per session) or by a force clear.
//
// Players, waiting groups and each court are separate store documents, so
// assignments on different courts never contend with each other.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/logger"
	"github.com/iliyamo/netplay-club/internal/metrics"
	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/queue"
)

const (
	// Prefix is shared by every board document.
	Prefix     = "board/"
	playersKey = Prefix + "players"
	waitingKey = Prefix + "waiting"

	DefaultCourtCount = 3
)

// CourtKey is the store key of court n (1-based).
func CourtKey(n int) string { return fmt.Sprintf("%scourts/%d", Prefix, n) }

// Publisher hands produced events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type Controller struct {
	store   docstore.Store
	events  Publisher
	courts  int
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*Controller)

func WithCourtCount(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.courts = n
		}
	}
}

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *Controller) { c.metrics = m } }

func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

func NewController(store docstore.Store, events Publisher, opts ...Option) *Controller {
	if store == nil || events == nil {
		panic("nil dependency passed to board.NewController")
	}
	c := &Controller{
		store:  store,
		events: events,
		courts: DefaultCourtCount,
		log:    logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CourtCount is the number of courts on the board.
func (c *Controller) CourtCount() int { return c.courts }

// EnsureCourts creates every missing court document, empty.
func (c *Controller) EnsureCourts(ctx context.Context) error {
	for n := 1; n <= c.courts; n++ {
		_, err := docstore.Update(ctx, c.store, CourtKey(n), func(ct *model.Court, exists bool) error {
			if exists {
				return docstore.ErrUnchanged
			}
			normalizeCourt(ct, n)
			return nil
		})
		if err != nil {
			return fmt.Errorf("ensure court %d: %w", n, err)
		}
	}
	return nil
}

func (c *Controller) validCourt(id int) error {
	if id < 1 || id > c.courts {
		return ErrCourtNotFound
	}
	return nil
}

func requireAdmin(caller model.Caller) error {
	if !caller.Admin {
		return ErrForbidden
	}
	return nil
}

func (c *Controller) roster(ctx context.Context) (model.PlayerRoster, error) {
	r, err := docstore.Get[model.PlayerRoster](ctx, c.store, playersKey)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return model.PlayerRoster{}, err
	}
	normalizeRoster(&r)
	return r, nil
}

func (c *Controller) waiting(ctx context.Context) (model.WaitingGroups, error) {
	w, err := docstore.Get[model.WaitingGroups](ctx, c.store, waitingKey)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return model.WaitingGroups{}, err
	}
	normalizeWaiting(&w)
	return w, nil
}

func (c *Controller) court(ctx context.Context, id int) (model.Court, error) {
	ct, err := docstore.Get[model.Court](ctx, c.store, CourtKey(id))
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return model.Court{}, err
	}
	normalizeCourt(&ct, id)
	return ct, nil
}

func (c *Controller) updateRoster(ctx context.Context, fn func(r *model.PlayerRoster) error) (model.PlayerRoster, error) {
	return docstore.Update(ctx, c.store, playersKey, func(r *model.PlayerRoster, _ bool) error {
		normalizeRoster(r)
		return fn(r)
	})
}

func (c *Controller) updateWaiting(ctx context.Context, fn func(w *model.WaitingGroups) error) (model.WaitingGroups, error) {
	return docstore.Update(ctx, c.store, waitingKey, func(w *model.WaitingGroups, _ bool) error {
		normalizeWaiting(w)
		return fn(w)
	})
}

// updateCourt treats an absent court document as an empty court.
func (c *Controller) updateCourt(ctx context.Context, id int, fn func(ct *model.Court) error) (model.Court, error) {
	return docstore.Update(ctx, c.store, CourtKey(id), func(ct *model.Court, _ bool) error {
		normalizeCourt(ct, id)
		return fn(ct)
	})
}

func (c *Controller) publish(ctx context.Context, eventType string, payload any) {
	ev, err := queue.NewEvent(eventType, c.now(), payload)
	if err == nil {
		err = c.events.Publish(ctx, ev)
	}
	if err != nil {
		c.log.WarnContext(ctx, "event not published", slog.String("type", eventType), slog.Any("error", err))
	}
}
