package queue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/netplay-club/internal/model"
)

var at = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		payload any
		want    string
	}{
		{
			name:    "credited",
			typ:     TypeAttendanceCredited,
			payload: AttendanceCredited{PollID: "p1", Date: "2025-03-01", Names: []string{"kim", "lee"}},
			want:    "[2025-03-01T12:00:00Z] Attendance credited | poll_id=p1 | date=2025-03-01 | names=[kim,lee]",
		},
		{
			name: "archived counts guests",
			typ:  TypeMeetingArchived,
			payload: MeetingArchived{MeetingID: 7, PollID: "p1", Date: "2025-03-01",
				Attendees: []model.AttendeeSummary{{Name: "kim"}, {Name: "park", Guest: true}}},
			want: "[2025-03-01T12:00:00Z] Meeting archived | meeting_id=7 | poll_id=p1 | date=2025-03-01 | attendees=2 | guests=1",
		},
		{
			name:    "court closed",
			typ:     TypeCourtClosed,
			payload: CourtClosed{CourtID: 2, SessionID: 99, Credited: true, PlayerIDs: []int64{1, 2, 3, 4}},
			want:    "[2025-03-01T12:00:00Z] Court closed | court=2 | session=99 | credited=true | players=[1,2,3,4]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := NewEvent(tt.typ, at, tt.payload)
			require.NoError(t, err)
			line, err := FormatEvent(ev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, line)
		})
	}
}

func TestFormatEventRejectsUnknownType(t *testing.T) {
	_, err := FormatEvent(Event{Type: "booking.confirmed", Payload: []byte(`{}`)})
	assert.Error(t, err)
}

func TestJournalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "club-events.log")
	j := Journal{Path: path}

	for i := 0; i < 2; i++ {
		ev, err := NewEvent(TypeAttendanceRevoked, at, AttendanceRevoked{PollID: "p1", Date: "2025-03-01", Names: []string{"kim"}, Removed: 1})
		require.NoError(t, err)
		require.NoError(t, j.Write(ev))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := "[2025-03-01T12:00:00Z] Attendance revoked | poll_id=p1 | date=2025-03-01 | names=[kim] | removed=1\n"
	assert.Equal(t, line+line, string(data))
}
