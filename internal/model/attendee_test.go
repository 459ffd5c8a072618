package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendeeDecodesEveryStoredShape(t *testing.T) {
	raw := `["alice", "bob:1234", {"name": "carol", "guest": true}, {"name": "dave", "pin": "77", "guest": false}]`

	var list []Attendee
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	require.Len(t, list, 4)

	assert.Equal(t, Attendee{Name: "alice"}, list[0])
	assert.Equal(t, PlainName, list[0].Kind())
	assert.Equal(t, Attendee{Name: "bob", PIN: "1234"}, list[1])
	assert.Equal(t, PinnedName, list[1].Kind())
	assert.Equal(t, Attendee{Name: "carol", Guest: true}, list[2])
	assert.Equal(t, GuestRecord, list[2].Kind())
	assert.Equal(t, PinnedName, list[3].Kind())
}

func TestAttendeeWritesCanonicalShape(t *testing.T) {
	out, err := json.Marshal([]Attendee{
		{Name: "alice"},
		{Name: "bob", PIN: "1234"},
		{Name: "carol", Guest: true},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `["alice","bob:1234",{"name":"carol","guest":true}]`, string(out))
}

func TestAttendeeRejectsNamelessEntries(t *testing.T) {
	var a Attendee
	assert.ErrorIs(t, json.Unmarshal([]byte(`""`), &a), ErrInvalidAttendee)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"guest":true}`), &a), ErrInvalidAttendee)
}

func TestAttendeeMatches(t *testing.T) {
	tests := []struct {
		name  string
		entry Attendee
		who   string
		pin   string
		want  bool
	}{
		{"legacy entry matches by name", Attendee{Name: "kim"}, "kim", "1111", true},
		{"pinned entry matches same pin", Attendee{Name: "kim", PIN: "1111"}, "kim", "1111", true},
		{"pinned entry rejects other pin", Attendee{Name: "kim", PIN: "1111"}, "kim", "2222", false},
		{"pinned entry matches pinless lookup", Attendee{Name: "kim", PIN: "1111"}, "kim", "", true},
		{"guest record matches by name", Attendee{Name: "kim", Guest: true}, "kim", "1111", true},
		{"different name", Attendee{Name: "kim"}, "lee", "", false},
		{"lookup is trimmed", Attendee{Name: "kim", PIN: "1"}, " kim ", " 1 ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Matches(tt.who, tt.pin))
		})
	}
}

func TestIndexOf(t *testing.T) {
	list := []Attendee{ParseAttendee("a:1"), ParseAttendee("b"), {Name: "c", Guest: true}}
	assert.Equal(t, 0, IndexOf(list, "a", "1"))
	assert.Equal(t, -1, IndexOf(list, "a", "2"))
	assert.Equal(t, 1, IndexOf(list, "b", "9"))
	assert.Equal(t, 2, IndexOf(list, "c", ""))
	assert.Equal(t, -1, IndexOf(list, "d", ""))
}
