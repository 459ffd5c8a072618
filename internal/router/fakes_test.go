package router

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/repository"
)

// memLogs satisfies roster.ParticipationLogs and ranking.LogSource.
type memLogs struct {
	mu   sync.Mutex
	rows []model.ParticipationLog
}

func (l *memLogs) Exists(_ context.Context, userID, date string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.UserID == userID && r.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (l *memLogs) Insert(ctx context.Context, rec model.ParticipationLog) (bool, error) {
	if ok, _ := l.Exists(ctx, rec.UserID, rec.Date); ok {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec.ID = uint64(len(l.rows) + 1)
	l.rows = append(l.rows, rec)
	return true, nil
}

func (l *memLogs) DeleteForUsers(_ context.Context, ids []string, date string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	var n int64
	kept := l.rows[:0]
	for _, r := range l.rows {
		if r.Date == date && drop[r.UserID] {
			n++
			continue
		}
		kept = append(kept, r)
	}
	l.rows = kept
	return n, nil
}

func (l *memLogs) ListByDate(_ context.Context, date string) ([]model.ParticipationLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.ParticipationLog
	for _, r := range l.rows {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *memLogs) ListBetween(_ context.Context, from, to time.Time) ([]model.ParticipationLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lo, hi := from.Format(model.DateLayout), to.Format(model.DateLayout)
	var out []model.ParticipationLog
	for _, r := range l.rows {
		if r.Date >= lo && r.Date < hi {
			out = append(out, r)
		}
	}
	return out, nil
}

// memMeetings satisfies roster.MeetingArchive and handler.MeetingStore.
type memMeetings struct {
	mu   sync.Mutex
	next uint64
	recs map[uint64]model.MeetingRecord
}

func newMemMeetings() *memMeetings { return &memMeetings{recs: map[uint64]model.MeetingRecord{}} }

func (m *memMeetings) Create(_ context.Context, rec *model.MeetingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	rec.ID = m.next
	m.recs[rec.ID] = *rec
	return nil
}

func (m *memMeetings) GetByID(_ context.Context, id uint64) (model.MeetingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return model.MeetingRecord{}, repository.ErrMeetingNotFound
	}
	return rec, nil
}

func (m *memMeetings) ListBetween(_ context.Context, from, to time.Time) ([]model.MeetingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lo, hi := from.Format(model.DateLayout), to.Format(model.DateLayout)
	var out []model.MeetingRecord
	for id := uint64(1); id <= m.next; id++ {
		if r, ok := m.recs[id]; ok && r.Date >= lo && r.Date < hi {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memMeetings) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return repository.ErrMeetingNotFound
	}
	delete(m.recs, id)
	return nil
}
