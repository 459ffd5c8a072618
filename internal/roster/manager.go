// Package roster manages poll rosters: capacity-bounded participants, a
// FIFO waitlist with automatic promotion, admin overrides, archiving on
// delete and attendance credit for the ranking.
//
// Every state change goes through docstore.Update on "polls/{id}" so that
// capacity and membership checks always run against the latest committed
// poll, and the membership log entry commits together with the change.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/logger"
	"github.com/iliyamo/netplay-club/internal/metrics"
	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/queue"
)

const pollPrefix = "polls/"

// PollKey is the store key of a poll document.
func PollKey(id string) string { return pollPrefix + id }

// ParticipationLogs is the append-only credited attendance collection.
type ParticipationLogs interface {
	Exists(ctx context.Context, userID, date string) (bool, error)
	Insert(ctx context.Context, rec model.ParticipationLog) (bool, error)
	DeleteForUsers(ctx context.Context, userIDs []string, date string) (int64, error)
	ListByDate(ctx context.Context, date string) ([]model.ParticipationLog, error)
}

// MeetingArchive stores the snapshot written before a poll is deleted.
type MeetingArchive interface {
	Create(ctx context.Context, rec *model.MeetingRecord) error
	Delete(ctx context.Context, id uint64) error
}

// Publisher hands produced events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type Manager struct {
	store    docstore.Store
	logs     ParticipationLogs
	meetings MeetingArchive
	events   Publisher
	metrics  *metrics.Metrics
	log      *slog.Logger
	loc      *time.Location
	now      func() time.Time
	newID    func() string
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

func WithMetrics(mt *metrics.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func WithIDs(newID func() string) Option { return func(m *Manager) { m.newID = newID } }

// WithLocation sets the club's timezone, used to decide what "today" is.
func WithLocation(loc *time.Location) Option { return func(m *Manager) { m.loc = loc } }

// NewManager wires the roster. It panics when a collaborator is missing.
func NewManager(store docstore.Store, logs ParticipationLogs, meetings MeetingArchive, events Publisher, opts ...Option) *Manager {
	if store == nil || logs == nil || meetings == nil || events == nil {
		panic("nil dependency passed to roster.NewManager")
	}
	m := &Manager{
		store:    store,
		logs:     logs,
		meetings: meetings,
		events:   events,
		log:      logger.Discard(),
		loc:      time.Local,
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// mutate runs fn on the poll inside one store transaction.
func (m *Manager) mutate(ctx context.Context, id, op string, fn func(p *model.Poll, now time.Time) error) (model.Poll, error) {
	p, err := docstore.Update(ctx, m.store, PollKey(id), func(p *model.Poll, exists bool) error {
		if !exists {
			return ErrPollNotFound
		}
		if err := fn(p, m.now()); err != nil {
			return err
		}
		normalize(p)
		return nil
	})
	if err != nil {
		return model.Poll{}, err
	}
	m.metrics.Transition("roster", op)
	return p, nil
}

func requireAdmin(caller model.Caller) error {
	if !caller.Admin {
		return ErrForbidden
	}
	return nil
}

// CreatePollRequest is the admin input for a new session.
type CreatePollRequest struct {
	Title    string
	Date     string
	Time     string
	Location string
	Fee      string
	Capacity int
}

func (m *Manager) CreatePoll(ctx context.Context, caller model.Caller, req CreatePollRequest) (model.Poll, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Poll{}, err
	}
	req.Date = strings.TrimSpace(req.Date)
	if req.Date == "" || strings.TrimSpace(req.Time) == "" || strings.TrimSpace(req.Location) == "" {
		return model.Poll{}, ErrInvalidPoll
	}
	if _, err := time.Parse(model.DateLayout, req.Date); err != nil {
		return model.Poll{}, ErrInvalidDate
	}
	if req.Capacity <= 0 {
		return model.Poll{}, ErrInvalidCapacity
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.Date + " meetup"
	}
	p := model.Poll{
		ID:        m.newID(),
		Title:     title,
		Date:      req.Date,
		Time:      strings.TrimSpace(req.Time),
		Location:  strings.TrimSpace(req.Location),
		Fee:       strings.TrimSpace(req.Fee),
		Capacity:  req.Capacity,
		CreatedAt: m.now().UTC(),
	}
	normalize(&p)
	created, err := docstore.Update(ctx, m.store, PollKey(p.ID), func(doc *model.Poll, exists bool) error {
		if exists {
			return fmt.Errorf("poll id %s already in use", p.ID)
		}
		*doc = p
		return nil
	})
	if err != nil {
		return model.Poll{}, err
	}
	m.metrics.Transition("roster", "create")
	m.log.InfoContext(ctx, "poll created", slog.String("poll_id", p.ID), slog.String("date", p.Date), slog.Int("capacity", p.Capacity))
	return created, nil
}

func (m *Manager) GetPoll(ctx context.Context, id string) (model.Poll, error) {
	p, err := docstore.Get[model.Poll](ctx, m.store, PollKey(id))
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Poll{}, ErrPollNotFound
	}
	if err != nil {
		return model.Poll{}, err
	}
	normalize(&p)
	return p, nil
}

// ListPolls returns every poll, the one closest to today first. Polls
// without a parseable date go last.
func (m *Manager) ListPolls(ctx context.Context) ([]model.Poll, error) {
	keys, err := m.store.Keys(ctx, pollPrefix)
	if err != nil {
		return nil, err
	}
	polls := make([]model.Poll, 0, len(keys))
	for _, k := range keys {
		p, err := m.GetPoll(ctx, strings.TrimPrefix(k, pollPrefix))
		if errors.Is(err, ErrPollNotFound) {
			continue // deleted between Keys and Read
		}
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	n := m.now().In(m.loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	sortByProximity(polls, today)
	return polls, nil
}

func sortByProximity(polls []model.Poll, today time.Time) {
	dist := func(p model.Poll) (time.Duration, bool) {
		d, ok := p.ParsedDate()
		if !ok {
			return 0, false
		}
		diff := d.Sub(today)
		if diff < 0 {
			diff = -diff
		}
		return diff, true
	}
	sort.SliceStable(polls, func(i, j int) bool {
		di, oki := dist(polls[i])
		dj, okj := dist(polls[j])
		switch {
		case oki != okj:
			return oki
		case di != dj:
			return di < dj
		case polls[i].Date != polls[j].Date:
			return polls[i].Date < polls[j].Date
		}
		return polls[i].ID < polls[j].ID
	})
}

// JoinResult tells the caller where they were placed.
type JoinResult struct {
	Poll   model.Poll `json:"poll"`
	Placed List       `json:"placed"`
}

// Join seats the caller, or queues them when the session is full.
func (m *Manager) Join(ctx context.Context, id string, caller model.Caller) (JoinResult, error) {
	if !caller.Identified() {
		return JoinResult{}, ErrNotIdentified
	}
	name, err := validName(caller.Name)
	if err != nil {
		return JoinResult{}, err
	}
	who := model.NewAttendee(name, caller.PIN)
	var placed List
	p, err := m.mutate(ctx, id, "join", func(p *model.Poll, now time.Time) error {
		var jerr error
		placed, jerr = applyJoin(p, who, now)
		return jerr
	})
	if err != nil {
		return JoinResult{}, err
	}
	m.log.InfoContext(ctx, "poll joined", slog.String("poll_id", id), slog.String("name", who.Name), slog.String("placed", string(placed)))
	return JoinResult{Poll: p, Placed: placed}, nil
}

// Cancel withdraws the caller. Leaving a seat promotes the waitlist head.
func (m *Manager) Cancel(ctx context.Context, id string, caller model.Caller) (model.Poll, error) {
	if !caller.Identified() {
		return model.Poll{}, ErrNotIdentified
	}
	var promoted *model.Attendee
	p, err := m.mutate(ctx, id, "cancel", func(p *model.Poll, now time.Time) error {
		var err error
		promoted, err = applyCancel(p, caller.Name, caller.PIN, now)
		return err
	})
	if err != nil {
		return model.Poll{}, err
	}
	attrs := []any{slog.String("poll_id", id), slog.String("name", strings.TrimSpace(caller.Name))}
	if promoted != nil {
		attrs = append(attrs, slog.String("promoted", promoted.Name))
	}
	m.log.InfoContext(ctx, "poll cancelled", attrs...)
	return p, nil
}

// Approve seats the waitlist head if the latest poll still has room.
func (m *Manager) Approve(ctx context.Context, id string, caller model.Caller) (model.Poll, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Poll{}, err
	}
	var head model.Attendee
	p, err := m.mutate(ctx, id, "approve", func(p *model.Poll, now time.Time) error {
		var err error
		head, err = applyApprove(p, now)
		return err
	})
	if err != nil {
		return model.Poll{}, err
	}
	m.log.InfoContext(ctx, "waitlist head approved", slog.String("poll_id", id), slog.String("name", head.Name))
	return p, nil
}

// Reject removes the waitlist head without promoting anyone. expectedHead
// is the name the admin confirmed; empty skips that check.
func (m *Manager) Reject(ctx context.Context, id string, caller model.Caller, expectedHead string, confirmed bool) (model.Poll, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Poll{}, err
	}
	if !confirmed {
		return model.Poll{}, ErrConfirmationRequired
	}
	var head model.Attendee
	p, err := m.mutate(ctx, id, "reject", func(p *model.Poll, now time.Time) error {
		var err error
		head, err = applyReject(p, expectedHead, now)
		return err
	})
	if err != nil {
		return model.Poll{}, err
	}
	m.log.InfoContext(ctx, "waitlist head rejected", slog.String("poll_id", id), slog.String("name", head.Name))
	return p, nil
}

func (m *Manager) ForceRemove(ctx context.Context, id string, caller model.Caller, name string, list List) (model.Poll, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Poll{}, err
	}
	var promoted []model.Attendee
	p, err := m.mutate(ctx, id, "force_remove", func(p *model.Poll, now time.Time) error {
		var err error
		_, promoted, err = applyForceRemove(p, name, list, now)
		return err
	})
	if err != nil {
		return model.Poll{}, err
	}
	m.log.InfoContext(ctx, "attendee removed by admin",
		slog.String("poll_id", id), slog.String("name", name), slog.String("list", string(list)), slog.Int("promoted", len(promoted)))
	return p, nil
}

func (m *Manager) AddPerson(ctx context.Context, id string, caller model.Caller, name string, list List, guest bool) (model.Poll, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Poll{}, err
	}
	p, err := m.mutate(ctx, id, "admin_add", func(p *model.Poll, now time.Time) error {
		return applyAddPerson(p, name, list, guest, now)
	})
	if err != nil {
		return model.Poll{}, err
	}
	m.log.InfoContext(ctx, "attendee added by admin",
		slog.String("poll_id", id), slog.String("name", name), slog.String("list", string(list)), slog.Bool("guest", guest))
	return p, nil
}

func (m *Manager) ToggleGuest(ctx context.Context, id string, caller model.Caller, name string) (model.Poll, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Poll{}, err
	}
	return m.mutate(ctx, id, "toggle_guest", func(p *model.Poll, _ time.Time) error {
		_, err := applyToggleGuest(p, name)
		return err
	})
}

// Edit changes session metadata. A capacity in the edit re-splits the
// roster in the same update.
func (m *Manager) Edit(ctx context.Context, id string, caller model.Caller, e Edit) (model.Poll, error) {
	if err := requireAdmin(caller); err != nil {
		return model.Poll{}, err
	}
	p, err := m.mutate(ctx, id, "edit", func(p *model.Poll, _ time.Time) error {
		return applyEdit(p, e)
	})
	if err != nil {
		return model.Poll{}, err
	}
	m.log.InfoContext(ctx, "poll edited", slog.String("poll_id", id), slog.Int("capacity", p.Capacity),
		slog.Int("participants", len(p.Participants)), slog.Int("waitlist", len(p.Waitlist)))
	return p, nil
}
