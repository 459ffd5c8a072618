package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/netplay-club/internal/logger"
	"github.com/iliyamo/netplay-club/internal/queue"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	closed    bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeConn struct{ ch *fakeChannel }

func (c fakeConn) Channel() (Publisher, error) { return c.ch, nil }
func (c fakeConn) Close() error { return nil }

func TestPublishSendsPersistentEnvelope(t *testing.T) {
	ch := &fakeChannel{}
	p := NewEventPublisher("amqp://test", logger.Discard(), nil)
	p.Dial = func(string) (Channeler, error) { return fakeConn{ch}, nil }

	ev, err := queue.NewEvent(queue.TypeCourtClosed, time.Unix(0, 0), queue.CourtClosed{CourtID: 1, SessionID: 5, Credited: true})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), ev))

	assert.Equal(t, []string{queue.ClubEventsQueue}, ch.declared)
	assert.Equal(t, []string{queue.ClubEventsQueue}, ch.keys)
	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, queue.TypeCourtClosed, msg.Type)

	var got queue.Event
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, queue.TypeCourtClosed, got.Type)
	assert.JSONEq(t, `{"court_id":1,"session_id":5,"credited":true,"player_ids":null}`, string(got.Payload))
	assert.True(t, ch.closed)
}

func TestPublishReturnsDialError(t *testing.T) {
	p := NewEventPublisher("amqp://test", logger.Discard(), nil)
	p.Dial = func(string) (Channeler, error) { return nil, errors.New("connection refused") }

	err := p.Publish(context.Background(), queue.Event{Type: queue.TypeMeetingArchived})
	assert.EqualError(t, err, "connection refused")
}
