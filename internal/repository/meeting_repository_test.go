package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/netplay-club/internal/model"
)

func TestMeetingCreate(t *testing.T) {
	mock, _, repo := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO meetings (poll_id, session_date, session_time, location, fee, attendees) VALUES (?,?,?,?,?,?)")).
		WithArgs("p1", "2025-03-01", "19:00", "Gym", "5000", []byte(`[{"name":"kim","guest":false},{"name":"lee","guest":true}]`)).
		WillReturnResult(sqlmock.NewResult(42, 1))

	rec := &model.MeetingRecord{
		PollID: "p1", Date: "2025-03-01", Time: "19:00", Location: "Gym", Fee: "5000",
		Attendees: []model.AttendeeSummary{{Name: "kim"}, {Name: "lee", Guest: true}},
	}
	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Equal(t, uint64(42), rec.ID)
}

func TestMeetingGetByIDNotFound(t *testing.T) {
	mock, _, repo := newMock(t)
	mock.ExpectQuery("FROM meetings WHERE id=\\?").WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrMeetingNotFound)
}

func TestMeetingListBetweenDecodesAttendees(t *testing.T) {
	mock, _, repo := newMock(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM meetings WHERE session_date>=\\? AND session_date<\\?").
		WithArgs("2025-03-01", "2025-04-01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "poll_id", "session_date", "session_time", "location", "fee", "attendees", "created_at"}).
			AddRow(1, "p1", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "19:00", "Gym", "5000", []byte(`[{"name":"kim","guest":false}]`), created))

	list, err := repo.ListBetween(context.Background(),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2025-03-01", list[0].Date)
	assert.Equal(t, []model.AttendeeSummary{{Name: "kim"}}, list[0].Attendees)
}

func TestMeetingDelete(t *testing.T) {
	mock, _, repo := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM meetings WHERE id=?")).WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM meetings WHERE id=?")).WithArgs(uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 1))
	assert.ErrorIs(t, repo.Delete(context.Background(), 2), ErrMeetingNotFound)
}
