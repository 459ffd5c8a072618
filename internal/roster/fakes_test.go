package roster

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/queue"
)

var (
	admin  = model.Caller{Name: "host", PIN: "0000", Admin: true}
	member = model.Caller{Name: "kim", PIN: "1234"}
)

type fakeLogs struct {
	mu   sync.Mutex
	rows map[string]model.ParticipationLog // user|date
	err  error
}

func newFakeLogs() *fakeLogs { return &fakeLogs{rows: map[string]model.ParticipationLog{}} }

func (f *fakeLogs) Exists(_ context.Context, userID, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.rows[userID+"|"+date]
	return ok, nil
}

func (f *fakeLogs) Insert(_ context.Context, rec model.ParticipationLog) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	k := rec.UserID + "|" + rec.Date
	if _, ok := f.rows[k]; ok {
		return false, nil
	}
	rec.ID = uint64(len(f.rows) + 1)
	f.rows[k] = rec
	return true, nil
}

func (f *fakeLogs) DeleteForUsers(_ context.Context, ids []string, date string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := f.rows[id+"|"+date]; ok {
			delete(f.rows, id+"|"+date)
			n++
		}
	}
	return n, nil
}

func (f *fakeLogs) ListByDate(_ context.Context, date string) ([]model.ParticipationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ParticipationLog
	for _, r := range f.rows {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLogs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeMeetings struct {
	mu       sync.Mutex
	records  map[uint64]model.MeetingRecord
	next     uint64
	err      error
	onCreate func()
}

func newFakeMeetings() *fakeMeetings { return &fakeMeetings{records: map[uint64]model.MeetingRecord{}} }

func (f *fakeMeetings) Create(_ context.Context, rec *model.MeetingRecord) error {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return f.err
	}
	f.next++
	rec.ID = f.next
	f.records[rec.ID] = *rec
	hook := f.onCreate
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeMeetings) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return errors.New("meeting not found")
	}
	delete(f.records, id)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (f *fakePublisher) Publish(_ context.Context, ev queue.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    *docstore.Memory
	logs     *fakeLogs
	meetings *fakeMeetings
	events   *fakePublisher
	mgr      *Manager
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(storeOpts ...docstore.Option) *fixture {
	f := &fixture{
		store:    docstore.NewMemory(storeOpts...),
		logs:     newFakeLogs(),
		meetings: newFakeMeetings(),
		events:   &fakePublisher{},
	}
	f.mgr = NewManager(f.store, f.logs, f.meetings, f.events,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC))
	return f
}
