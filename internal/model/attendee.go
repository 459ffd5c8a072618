package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// AttendeeKind tells which stored shape an Attendee came from or will be written as.
type AttendeeKind int

const (
	// PlainName is a bare "name" string (legacy, PIN-less).
	PlainName AttendeeKind = iota
	// PinnedName is a "name:pin" string.
	PinnedName
	// GuestRecord is a structured {"name": ..., "guest": true} object.
	GuestRecord
)

func (k AttendeeKind) String() string {
	switch k {
	case PinnedName:
		return "pinned"
	case GuestRecord:
		return "guest"
	default:
		return "plain"
	}
}

// Attendee is one entry of a poll's participant list or waitlist.
//
// Stored documents hold either a bare string ("name" or "name:pin") or an
// object ({"name","pin","guest"}). Both shapes are accepted on read forever;
// on write a guest is always an object and everyone else a string.
type Attendee struct {
	Name  string
	PIN   string
	Guest bool
}

// ErrInvalidAttendee is returned when a stored entry has no usable name.
var ErrInvalidAttendee = errors.New("invalid attendee entry")

// NewAttendee builds the entry written for a self-service join.
func NewAttendee(name, pin string) Attendee {
	return Attendee{Name: strings.TrimSpace(name), PIN: strings.TrimSpace(pin)}
}

// Kind reports the tagged-union variant of the entry.
func (a Attendee) Kind() AttendeeKind {
	switch {
	case a.Guest:
		return GuestRecord
	case a.PIN != "":
		return PinnedName
	default:
		return PlainName
	}
}

// Matches reports whether the entry belongs to the caller identified by
// name and pin. Names must be equal; PINs are compared only when both sides
// carry one, so PIN-less legacy entries match by name alone.
func (a Attendee) Matches(name, pin string) bool {
	if a.Name != strings.TrimSpace(name) {
		return false
	}
	pin = strings.TrimSpace(pin)
	if pin == "" || a.PIN == "" {
		return true
	}
	return a.PIN == pin
}

// SameIdentity is Matches applied to another entry.
func (a Attendee) SameIdentity(b Attendee) bool { return a.Matches(b.Name, b.PIN) }

// WithGuest returns a copy with the guest flag set to v. Position-neutral.
func (a Attendee) WithGuest(v bool) Attendee {
	a.Guest = v
	return a
}

// Summary is the {name, guest} shape archived in meeting records.
func (a Attendee) Summary() AttendeeSummary {
	return AttendeeSummary{Name: a.Name, Guest: a.Guest}
}

type attendeeRecord struct {
	Name  string `json:"name"`
	PIN   string `json:"pin,omitempty"`
	Guest bool   `json:"guest"`
}

func (a Attendee) MarshalJSON() ([]byte, error) {
	switch a.Kind() {
	case GuestRecord:
		return json.Marshal(attendeeRecord{Name: a.Name, PIN: a.PIN, Guest: true})
	case PinnedName:
		return json.Marshal(a.Name + ":" + a.PIN)
	default:
		return json.Marshal(a.Name)
	}
}

func (a *Attendee) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ParseAttendee(s)
	} else {
		var rec attendeeRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		*a = Attendee{Name: strings.TrimSpace(rec.Name), PIN: strings.TrimSpace(rec.PIN), Guest: rec.Guest}
	}
	if a.Name == "" {
		return ErrInvalidAttendee
	}
	return nil
}

// ParseAttendee decodes the legacy string form. Everything after the first
// colon is the PIN.
func ParseAttendee(s string) Attendee {
	name, pin, _ := strings.Cut(strings.TrimSpace(s), ":")
	return Attendee{Name: strings.TrimSpace(name), PIN: strings.TrimSpace(pin)}
}

// IndexOf returns the position of the first entry matching name and pin, or -1.
func IndexOf(list []Attendee, name, pin string) int {
	for i, a := range list {
		if a.Matches(name, pin) {
			return i
		}
	}
	return -1
}
