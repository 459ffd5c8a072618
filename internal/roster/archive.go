package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/queue"
)

// Delete archives the poll as a meeting record and then removes it. The
// poll is only removed if the archive was written and the roster did not
// change in between; otherwise the freshly written record is withdrawn
// and the poll stays.
func (m *Manager) Delete(ctx context.Context, id string, caller model.Caller, confirmed bool) (model.MeetingRecord, error) {
	if err := requireAdmin(caller); err != nil {
		return model.MeetingRecord{}, err
	}
	if !confirmed {
		return model.MeetingRecord{}, ErrConfirmationRequired
	}
	p, err := m.GetPoll(ctx, id)
	if err != nil {
		return model.MeetingRecord{}, err
	}

	rec := meetingFromPoll(p)
	if err := m.meetings.Create(ctx, &rec); err != nil {
		m.log.ErrorContext(ctx, "meeting archive failed", slog.String("poll_id", id), slog.Any("error", err))
		return model.MeetingRecord{}, fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}

	_, err = m.store.Transact(ctx, PollKey(id), func(cur []byte) ([]byte, error) {
		if cur == nil {
			return nil, ErrPollNotFound
		}
		var now model.Poll
		if err := docstore.Decode(cur, &now); err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(meetingFromPoll(now).Attendees, rec.Attendees) || now.Date != p.Date {
			return nil, ErrPollChanged
		}
		return nil, nil
	})
	if err != nil {
		if derr := m.meetings.Delete(ctx, rec.ID); derr != nil {
			m.log.ErrorContext(ctx, "withdrawing meeting record failed",
				slog.Uint64("meeting_id", rec.ID), slog.Any("error", derr))
		}
		if errors.Is(err, ErrPollNotFound) {
			return model.MeetingRecord{}, ErrPollNotFound
		}
		return model.MeetingRecord{}, err
	}

	m.metrics.Transition("roster", "delete")
	m.log.InfoContext(ctx, "poll archived and deleted", slog.String("poll_id", id), slog.Uint64("meeting_id", rec.ID),
		slog.Int("attendees", len(rec.Attendees)))
	m.publish(ctx, queue.TypeMeetingArchived, queue.MeetingArchived{
		MeetingID: rec.ID, PollID: id, Date: rec.Date, Attendees: rec.Attendees,
	})
	return rec, nil
}

func meetingFromPoll(p model.Poll) model.MeetingRecord {
	attendees := make([]model.AttendeeSummary, 0, len(p.Participants))
	for _, a := range p.Participants {
		attendees = append(attendees, a.Summary())
	}
	return model.MeetingRecord{
		PollID:    p.ID,
		Date:      p.Date,
		Time:      p.Time,
		Location:  p.Location,
		Fee:       p.Fee,
		Attendees: attendees,
	}
}
