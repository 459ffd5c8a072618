package roster

import (
	"context"
	"log/slog"
	"strings"

	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/queue"
)

// CreditReport lists what ApplyCredit did with each selected name.
type CreditReport struct {
	Date            string   `json:"date"`
	Credited        []string `json:"credited"`
	AlreadyCredited []string `json:"already_credited"`
	SkippedGuests   []string `json:"skipped_guests"`
	NotParticipants []string `json:"not_participants"`
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func participantNamed(p model.Poll, name string) (model.Attendee, bool) {
	for _, a := range p.Participants {
		if a.Name == name {
			return a, true
		}
	}
	return model.Attendee{}, false
}

// ApplyCredit records one participation log per selected participant for
// the poll's date. Existing (name, date) logs are left alone and guests
// are never credited, so repeating the call changes nothing. On a backend
// error the report covers the names processed so far; retrying is safe.
func (m *Manager) ApplyCredit(ctx context.Context, id string, caller model.Caller, names []string) (CreditReport, error) {
	if err := requireAdmin(caller); err != nil {
		return CreditReport{}, err
	}
	names = uniqueNames(names)
	if len(names) == 0 {
		return CreditReport{}, ErrNothingSelected
	}
	p, err := m.GetPoll(ctx, id)
	if err != nil {
		return CreditReport{}, err
	}
	rep := CreditReport{Date: p.Date}
	for _, name := range names {
		a, ok := participantNamed(p, name)
		switch {
		case !ok:
			rep.NotParticipants = append(rep.NotParticipants, name)
			continue
		case a.Guest:
			rep.SkippedGuests = append(rep.SkippedGuests, name)
			continue
		}
		exists, err := m.logs.Exists(ctx, name, p.Date)
		if err != nil {
			return rep, err
		}
		if exists {
			rep.AlreadyCredited = append(rep.AlreadyCredited, name)
			continue
		}
		inserted, err := m.logs.Insert(ctx, model.ParticipationLog{
			UserID: name,
			Date:   p.Date,
			PollID: p.ID,
			Guest:  a.Guest,
		})
		if err != nil {
			return rep, err
		}
		if inserted {
			rep.Credited = append(rep.Credited, name)
		} else {
			rep.AlreadyCredited = append(rep.AlreadyCredited, name)
		}
	}
	m.metrics.Transition("roster", "apply_credit")
	m.log.InfoContext(ctx, "attendance credited", slog.String("poll_id", id), slog.String("date", p.Date),
		slog.Int("credited", len(rep.Credited)), slog.Int("already", len(rep.AlreadyCredited)), slog.Int("guests", len(rep.SkippedGuests)))
	if len(rep.Credited) > 0 {
		m.publish(ctx, queue.TypeAttendanceCredited, queue.AttendanceCredited{PollID: p.ID, Date: p.Date, Names: rep.Credited})
	}
	return rep, nil
}

// RevokeCredit deletes every participation log of the selected names on
// the poll's date and returns the number removed.
func (m *Manager) RevokeCredit(ctx context.Context, id string, caller model.Caller, names []string) (int64, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	names = uniqueNames(names)
	if len(names) == 0 {
		return 0, ErrNothingSelected
	}
	p, err := m.GetPoll(ctx, id)
	if err != nil {
		return 0, err
	}
	removed, err := m.logs.DeleteForUsers(ctx, names, p.Date)
	if err != nil {
		return 0, err
	}
	m.metrics.Transition("roster", "revoke_credit")
	m.log.InfoContext(ctx, "attendance revoked", slog.String("poll_id", id), slog.String("date", p.Date), slog.Int64("removed", removed))
	m.publish(ctx, queue.TypeAttendanceRevoked, queue.AttendanceRevoked{PollID: p.ID, Date: p.Date, Names: names, Removed: removed})
	return removed, nil
}

// CreditedNames lists the identities already credited for the poll's date.
func (m *Manager) CreditedNames(ctx context.Context, id string) ([]string, error) {
	p, err := m.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := m.logs.ListByDate(ctx, p.Date)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.UserID)
	}
	return out, nil
}

func (m *Manager) publish(ctx context.Context, eventType string, payload any) {
	ev, err := queue.NewEvent(eventType, m.now(), payload)
	if err == nil {
		err = m.events.Publish(ctx, ev)
	}
	if err != nil {
		m.log.WarnContext(ctx, "event not published", slog.String("type", eventType), slog.Any("error", err))
	}
}
