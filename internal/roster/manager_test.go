package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/queue"
)

func createPoll(t *testing.T, f *fixture, date string, capacity int) model.Poll {
	t.Helper()
	p, err := f.mgr.CreatePoll(context.Background(), admin, CreatePollRequest{
		Date: date, Time: "19:00", Location: "Riverside Gym", Fee: "5000", Capacity: capacity,
	})
	require.NoError(t, err)
	return p
}

func caller(name string) model.Caller { return model.Caller{Name: name, PIN: "1111"} }

func TestCreatePoll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p := createPoll(t, f, "2025-03-08", 8)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "2025-03-08 meetup", p.Title)
	assert.Equal(t, []model.Attendee{}, p.Participants)

	got, err := f.mgr.GetPoll(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.mgr.CreatePoll(ctx, member, CreatePollRequest{Date: "2025-03-08", Time: "19:00", Location: "x", Capacity: 2})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.mgr.CreatePoll(ctx, admin, CreatePollRequest{Date: "08/03/2025", Time: "19:00", Location: "x", Capacity: 2})
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = f.mgr.CreatePoll(ctx, admin, CreatePollRequest{Date: "2025-03-08", Time: "19:00", Location: "x"})
	assert.ErrorIs(t, err, ErrInvalidCapacity)
	_, err = f.mgr.CreatePoll(ctx, admin, CreatePollRequest{Date: "2025-03-08", Capacity: 2})
	assert.ErrorIs(t, err, ErrInvalidPoll)
}

func TestListPollsClosestFirst(t *testing.T) {
	f := newFixture()
	far := createPoll(t, f, "2025-03-10", 4)
	past := createPoll(t, f, "2025-02-27", 4)
	next := createPoll(t, f, "2025-03-02", 4)

	polls, err := f.mgr.ListPolls(context.Background())
	require.NoError(t, err)
	require.Len(t, polls, 3)
	assert.Equal(t, []string{next.ID, past.ID, far.ID}, []string{polls[0].ID, polls[1].ID, polls[2].ID})
}

func TestJoinAndCancelThroughStore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 1)

	res, err := f.mgr.Join(ctx, p.ID, caller("a"))
	require.NoError(t, err)
	assert.Equal(t, Participants, res.Placed)

	res, err = f.mgr.Join(ctx, p.ID, caller("b"))
	require.NoError(t, err)
	assert.Equal(t, Waitlist, res.Placed)

	_, err = f.mgr.Join(ctx, p.ID, caller("b"))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	got, err := f.mgr.Cancel(ctx, p.ID, caller("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names(got.Participants))
	assert.Empty(t, got.Waitlist)

	stored, err := f.mgr.GetPoll(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
	require.Len(t, stored.Logs, 4)
	assert.Equal(t, model.LogPromote, stored.Logs[2].Type)
	assert.Equal(t, model.LogCancel, stored.Logs[3].Type)
}

func TestJoinRequiresIdentity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 2)

	_, err := f.mgr.Join(ctx, p.ID, model.Caller{Name: "kim"})
	assert.ErrorIs(t, err, ErrNotIdentified)
	_, err = f.mgr.Join(ctx, p.ID, model.Caller{Name: "a:b", PIN: "1"})
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = f.mgr.Join(ctx, "missing", member)
	assert.ErrorIs(t, err, ErrPollNotFound)
	_, err = f.mgr.Cancel(ctx, p.ID, model.Caller{PIN: "1"})
	assert.ErrorIs(t, err, ErrNotIdentified)
}

func TestConcurrentJoinsNeverOverfill(t *testing.T) {
	f := newFixture(docstore.WithMaxRetries(1000))
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 5)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.mgr.Join(ctx, p.ID, caller(fmt.Sprintf("player%02d", i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := f.mgr.GetPoll(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 5)
	assert.Len(t, got.Waitlist, 15)
	assert.Len(t, got.Logs, 20)
}

func TestConcurrentCancelsPromoteEachWaiterOnce(t *testing.T) {
	f := newFixture(docstore.WithMaxRetries(1000))
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 3)
	for _, n := range []string{"a", "b", "c", "w1", "w2", "w3", "w4"} {
		_, err := f.mgr.Join(ctx, p.ID, caller(n))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, n := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			_, err := f.mgr.Cancel(ctx, p.ID, caller(n))
			assert.NoError(t, err)
		}(n)
	}
	wg.Wait()

	got, err := f.mgr.GetPoll(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2", "w3"}, names(got.Participants))
	assert.Equal(t, []string{"w4"}, names(got.Waitlist))
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 2)
	capacity := 3

	_, err := f.mgr.Approve(ctx, p.ID, member)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.mgr.Reject(ctx, p.ID, member, "", true)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.mgr.ForceRemove(ctx, p.ID, member, "a", Participants)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.mgr.AddPerson(ctx, p.ID, member, "a", Participants, false)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.mgr.ToggleGuest(ctx, p.ID, member, "a")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.mgr.Edit(ctx, p.ID, member, Edit{Capacity: &capacity})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.mgr.Delete(ctx, p.ID, member, true)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.mgr.ApplyCredit(ctx, p.ID, member, []string{"a"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRejectNeedsConfirmationAndCurrentHead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 1)
	for _, n := range []string{"a", "b", "c"} {
		_, err := f.mgr.Join(ctx, p.ID, caller(n))
		require.NoError(t, err)
	}

	_, err := f.mgr.Reject(ctx, p.ID, admin, "b", false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	// another admin already rejected b
	_, err = f.mgr.Reject(ctx, p.ID, admin, "b", true)
	require.NoError(t, err)
	_, err = f.mgr.Reject(ctx, p.ID, admin, "b", true)
	assert.ErrorIs(t, err, ErrWaitlistHeadChanged)

	got, err := f.mgr.GetPoll(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names(got.Waitlist))
}

func TestEditCapacityRebalances(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 2)
	for _, n := range []string{"a", "b", "c", "d"} {
		_, err := f.mgr.Join(ctx, p.ID, caller(n))
		require.NoError(t, err)
	}

	capacity := 3
	got, err := f.mgr.Edit(ctx, p.ID, admin, Edit{Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(got.Participants))
	assert.Equal(t, []string{"d"}, names(got.Waitlist))
	assert.Len(t, got.Logs, 4)
}

func TestApplyCreditIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 4)
	_, err := f.mgr.Join(ctx, p.ID, caller("a"))
	require.NoError(t, err)
	_, err = f.mgr.AddPerson(ctx, p.ID, admin, "visitor", Participants, true)
	require.NoError(t, err)

	rep, err := f.mgr.ApplyCredit(ctx, p.ID, admin, []string{"a", "visitor", "ghost", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rep.Credited)
	assert.Equal(t, []string{"visitor"}, rep.SkippedGuests)
	assert.Equal(t, []string{"ghost"}, rep.NotParticipants)
	assert.Equal(t, 1, f.logs.count())

	rep, err = f.mgr.ApplyCredit(ctx, p.ID, admin, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, rep.Credited)
	assert.Equal(t, []string{"a"}, rep.AlreadyCredited)
	assert.Equal(t, 1, f.logs.count())

	credited, err := f.mgr.CreditedNames(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, credited)
	assert.Equal(t, []string{queue.TypeAttendanceCredited}, f.events.types())

	_, err = f.mgr.ApplyCredit(ctx, p.ID, admin, []string{" "})
	assert.ErrorIs(t, err, ErrNothingSelected)
}

func TestApplyCreditStopsOnBackendError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 4)
	_, err := f.mgr.Join(ctx, p.ID, caller("a"))
	require.NoError(t, err)

	f.logs.err = errors.New("connection refused")
	_, err = f.mgr.ApplyCredit(ctx, p.ID, admin, []string{"a"})
	require.Error(t, err)
	assert.Empty(t, f.events.types())
}

func TestRevokeCredit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 4)
	for _, n := range []string{"a", "b"} {
		_, err := f.mgr.Join(ctx, p.ID, caller(n))
		require.NoError(t, err)
	}
	_, err := f.mgr.ApplyCredit(ctx, p.ID, admin, []string{"a", "b"})
	require.NoError(t, err)

	removed, err := f.mgr.RevokeCredit(ctx, p.ID, admin, []string{"a", "zz"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	assert.Equal(t, 1, f.logs.count())
	assert.Equal(t, []string{queue.TypeAttendanceCredited, queue.TypeAttendanceRevoked}, f.events.types())
}

func TestDeleteArchivesThenRemoves(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 4)
	_, err := f.mgr.Join(ctx, p.ID, caller("a"))
	require.NoError(t, err)
	_, err = f.mgr.AddPerson(ctx, p.ID, admin, "visitor", Participants, true)
	require.NoError(t, err)

	_, err = f.mgr.Delete(ctx, p.ID, admin, false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	rec, err := f.mgr.Delete(ctx, p.ID, admin, true)
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, []model.AttendeeSummary{{Name: "a"}, {Name: "visitor", Guest: true}}, rec.Attendees)
	assert.Contains(t, f.meetings.records, rec.ID)

	_, err = f.mgr.GetPoll(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPollNotFound)
	assert.Equal(t, []string{queue.TypeMeetingArchived}, f.events.types())
}

func TestDeleteKeepsPollWhenArchiveFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 4)
	f.meetings.err = errors.New("mysql down")

	_, err := f.mgr.Delete(ctx, p.ID, admin, true)
	assert.ErrorIs(t, err, ErrArchiveFailed)

	_, err = f.mgr.GetPoll(ctx, p.ID)
	assert.NoError(t, err)
	assert.Empty(t, f.events.types())
}

func TestDeleteWithdrawsRecordWhenRosterChanged(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := createPoll(t, f, "2025-03-08", 4)
	f.meetings.onCreate = func() {
		_, err := f.mgr.Join(ctx, p.ID, caller("latecomer"))
		require.NoError(t, err)
	}

	_, err := f.mgr.Delete(ctx, p.ID, admin, true)
	assert.ErrorIs(t, err, ErrPollChanged)
	assert.True(t, IsLostRace(err))
	assert.Empty(t, f.meetings.records)

	got, err := f.mgr.GetPoll(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"latecomer"}, names(got.Participants))
}

func TestTemplates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.mgr.SaveTemplate(ctx, admin, model.PollTemplate{Name: "thursday", Time: "19:00", Location: "Riverside Gym"})
	assert.ErrorIs(t, err, ErrInvalidCapacity)
	_, err = f.mgr.SaveTemplate(ctx, member, model.PollTemplate{Name: "x", Time: "1", Location: "y", Capacity: 1})
	assert.ErrorIs(t, err, ErrForbidden)

	first, err := f.mgr.SaveTemplate(ctx, admin, model.PollTemplate{Name: "thursday", Time: "19:00", Location: "Riverside Gym", Capacity: 12})
	require.NoError(t, err)
	second, err := f.mgr.SaveTemplate(ctx, admin, model.PollTemplate{Name: "sunday", Time: "10:00", Location: "Hall B", Capacity: 8})
	require.NoError(t, err)

	list, err := f.mgr.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	require.NoError(t, f.mgr.DeleteTemplate(ctx, admin, first.ID))
	assert.ErrorIs(t, f.mgr.DeleteTemplate(ctx, admin, first.ID), ErrTemplateNotFound)

	list, err = f.mgr.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sunday"}, []string{list[0].Name})
}
