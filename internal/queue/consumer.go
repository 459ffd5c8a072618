package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Journal appends one human readable line per club event to a file.
type Journal struct {
	Path string
}

// Write formats ev and appends it, creating the directory when needed.
func (j Journal) Write(ev Event) error {
	line, err := FormatEvent(ev)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir journal dir: %w", err)
	}
	f, err := os.OpenFile(j.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// FormatEvent renders one journal line. Unknown event types are rejected
// so they are dead-lettered instead of silently journaled.
func FormatEvent(ev Event) (string, error) {
	at := ev.OccurredAt.UTC().Format(time.RFC3339)
	switch ev.Type {
	case TypeAttendanceCredited:
		var p AttendanceCredited
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("[%s] Attendance credited | poll_id=%s | date=%s | names=[%s]",
			at, p.PollID, p.Date, strings.Join(p.Names, ",")), nil
	case TypeAttendanceRevoked:
		var p AttendanceRevoked
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("[%s] Attendance revoked | poll_id=%s | date=%s | names=[%s] | removed=%d",
			at, p.PollID, p.Date, strings.Join(p.Names, ","), p.Removed), nil
	case TypeMeetingArchived:
		var p MeetingArchived
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		guests := 0
		for _, a := range p.Attendees {
			if a.Guest {
				guests++
			}
		}
		return fmt.Sprintf("[%s] Meeting archived | meeting_id=%d | poll_id=%s | date=%s | attendees=%d | guests=%d",
			at, p.MeetingID, p.PollID, p.Date, len(p.Attendees), guests), nil
	case TypeCourtClosed:
		var p CourtClosed
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		ids := make([]string, 0, len(p.PlayerIDs))
		for _, id := range p.PlayerIDs {
			ids = append(ids, fmt.Sprint(id))
		}
		return fmt.Sprintf("[%s] Court closed | court=%d | session=%d | credited=%t | players=[%s]",
			at, p.CourtID, p.SessionID, p.Credited, strings.Join(ids, ",")), nil
	}
	return "", fmt.Errorf("unknown event type %q", ev.Type)
}

// Consume connects to the broker, declares the club events queue and
// journals every delivery. It reconnects with exponential backoff and
// returns only when ctx is cancelled.
func Consume(ctx context.Context, url string, journal Journal, log *slog.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("event consumer: dial failed", slog.Any("error", err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, journal, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("event consumer: loop ended, reconnecting", slog.Any("error", err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, journal Journal, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("event consumer: set QoS failed", slog.Any("error", err))
	}
	if _, err := ch.QueueDeclare(ClubEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, ClubEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		var ev Event
		err := json.Unmarshal(d.Body, &ev)
		if err == nil {
			err = journal.Write(ev)
		}
		if err != nil {
			log.Error("event consumer: message rejected", slog.Any("error", err))
			_ = d.Nack(false, false) // do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
