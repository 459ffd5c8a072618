package roster

import (
	"strings"
	"time"

	"github.com/iliyamo/netplay-club/internal/model"
)

// The functions in this file are the roster state machine. Each one takes
// the poll as read inside a store transaction, checks its preconditions
// against that value and mutates it in place. They never touch the store.

// List selects the participants list or the waitlist.
type List string

const (
	Participants List = "participants"
	Waitlist     List = "waitlist"
)

func (l List) valid() bool { return l == Participants || l == Waitlist }

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ":") {
		return "", ErrInvalidName
	}
	return name, nil
}

func appendLog(p *model.Poll, kind model.LogKind, name string, at time.Time) {
	p.Logs = append(p.Logs, model.LogEntry{Type: kind, Name: name, Time: at.UTC()})
}

func registered(p *model.Poll, name, pin string) bool {
	return model.IndexOf(p.Participants, name, pin) >= 0 || model.IndexOf(p.Waitlist, name, pin) >= 0
}

// promoteHead seats the waitlist head if there is room.
func promoteHead(p *model.Poll, at time.Time) (model.Attendee, bool) {
	if len(p.Waitlist) == 0 || !p.HasRoom() {
		return model.Attendee{}, false
	}
	head := p.Waitlist[0]
	p.Waitlist = append([]model.Attendee(nil), p.Waitlist[1:]...)
	p.Participants = append(p.Participants, head)
	appendLog(p, model.LogPromote, head.Name, at)
	return head, true
}

func removeAt(list []model.Attendee, i int) []model.Attendee {
	out := make([]model.Attendee, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

// applyJoin seats who or queues them when the session is full.
func applyJoin(p *model.Poll, who model.Attendee, at time.Time) (List, error) {
	if registered(p, who.Name, who.PIN) {
		return "", ErrAlreadyRegistered
	}
	placed := Waitlist
	if p.HasRoom() {
		p.Participants = append(p.Participants, who)
		placed = Participants
	} else {
		p.Waitlist = append(p.Waitlist, who)
	}
	appendLog(p, model.LogJoin, who.Name, at)
	return placed, nil
}

// applyCancel removes the caller and, when a seat frees up, promotes the
// waitlist head in the same update.
func applyCancel(p *model.Poll, name, pin string, at time.Time) (*model.Attendee, error) {
	wi := model.IndexOf(p.Waitlist, name, pin)
	pi := model.IndexOf(p.Participants, name, pin)
	if wi < 0 && pi < 0 {
		return nil, ErrNotRegistered
	}
	if wi >= 0 {
		p.Waitlist = removeAt(p.Waitlist, wi)
	}
	var promoted *model.Attendee
	if pi >= 0 {
		p.Participants = removeAt(p.Participants, pi)
		if head, ok := promoteHead(p, at); ok {
			promoted = &head
		}
	}
	appendLog(p, model.LogCancel, strings.TrimSpace(name), at)
	return promoted, nil
}

func applyApprove(p *model.Poll, at time.Time) (model.Attendee, error) {
	if len(p.Waitlist) == 0 {
		return model.Attendee{}, ErrWaitlistEmpty
	}
	if !p.HasRoom() {
		return model.Attendee{}, ErrCapacityExceeded
	}
	head, _ := promoteHead(p, at)
	return head, nil
}

// applyReject drops the waitlist head. expected, when set, must still be
// the head's name.
func applyReject(p *model.Poll, expected string, at time.Time) (model.Attendee, error) {
	if len(p.Waitlist) == 0 {
		return model.Attendee{}, ErrWaitlistEmpty
	}
	head := p.Waitlist[0]
	if expected = strings.TrimSpace(expected); expected != "" && head.Name != expected {
		return model.Attendee{}, ErrWaitlistHeadChanged
	}
	p.Waitlist = removeAt(p.Waitlist, 0)
	appendLog(p, model.LogAdminRemove, head.Name, at)
	return head, nil
}

// applyForceRemove removes every entry named name from list. Each seat
// freed in participants promotes one waitlist head.
func applyForceRemove(p *model.Poll, name string, list List, at time.Time) (removed int, promoted []model.Attendee, err error) {
	if !list.valid() {
		return 0, nil, ErrInvalidList
	}
	name = strings.TrimSpace(name)
	src := &p.Participants
	if list == Waitlist {
		src = &p.Waitlist
	}
	kept := make([]model.Attendee, 0, len(*src))
	for _, a := range *src {
		if a.Matches(name, "") {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	if removed == 0 {
		return 0, nil, ErrAttendeeNotFound
	}
	*src = kept
	if list == Participants {
		for i := 0; i < removed; i++ {
			head, ok := promoteHead(p, at)
			if !ok {
				break
			}
			promoted = append(promoted, head)
		}
	}
	appendLog(p, model.LogAdminRemove, name, at)
	return removed, promoted, nil
}

func applyAddPerson(p *model.Poll, name string, list List, guest bool, at time.Time) error {
	if !list.valid() {
		return ErrInvalidList
	}
	name, err := validName(name)
	if err != nil {
		return err
	}
	if registered(p, name, "") {
		return ErrAlreadyRegistered
	}
	who := model.Attendee{Name: name, Guest: guest}
	if list == Participants {
		if !p.HasRoom() {
			return ErrCapacityExceeded
		}
		p.Participants = append(p.Participants, who)
	} else {
		p.Waitlist = append(p.Waitlist, who)
	}
	appendLog(p, model.LogAdminAdd, name, at)
	return nil
}

// applyToggleGuest flips the first participant named name between the
// plain and guest representations without moving it.
func applyToggleGuest(p *model.Poll, name string) (model.Attendee, error) {
	name = strings.TrimSpace(name)
	for i, a := range p.Participants {
		if a.Name == name {
			p.Participants[i] = a.WithGuest(!a.Guest)
			return p.Participants[i], nil
		}
	}
	return model.Attendee{}, ErrAttendeeNotFound
}

// rebalance re-splits participants ++ waitlist at capacity, keeping order.
func rebalance(p *model.Poll, capacity int) {
	all := make([]model.Attendee, 0, len(p.Participants)+len(p.Waitlist))
	all = append(all, p.Participants...)
	all = append(all, p.Waitlist...)
	k := min(capacity, len(all))
	p.Capacity = capacity
	p.Participants = append([]model.Attendee{}, all[:k]...)
	p.Waitlist = append([]model.Attendee{}, all[k:]...)
}

// Edit carries the metadata fields an admin may change. Nil means keep.
type Edit struct {
	Title    *string `json:"title"`
	Date     *string `json:"date"`
	Time     *string `json:"time"`
	Location *string `json:"location"`
	Fee      *string `json:"fee"`
	Capacity *int    `json:"capacity"`
}

func applyEdit(p *model.Poll, e Edit) error {
	if e.Capacity != nil && *e.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if e.Date != nil {
		if _, err := time.Parse(model.DateLayout, strings.TrimSpace(*e.Date)); err != nil {
			return ErrInvalidDate
		}
		p.Date = strings.TrimSpace(*e.Date)
	}
	if e.Title != nil {
		p.Title = strings.TrimSpace(*e.Title)
	}
	if e.Time != nil {
		p.Time = strings.TrimSpace(*e.Time)
	}
	if e.Location != nil {
		p.Location = strings.TrimSpace(*e.Location)
	}
	if e.Fee != nil {
		p.Fee = strings.TrimSpace(*e.Fee)
	}
	if e.Capacity != nil {
		rebalance(p, *e.Capacity)
	}
	return nil
}

// normalize replaces null lists so stored documents always carry arrays.
func normalize(p *model.Poll) {
	if p.Participants == nil {
		p.Participants = []model.Attendee{}
	}
	if p.Waitlist == nil {
		p.Waitlist = []model.Attendee{}
	}
	if p.Logs == nil {
		p.Logs = []model.LogEntry{}
	}
}
