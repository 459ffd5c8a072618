package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/netplay-club/internal/model"
)

// MeetingRepo stores the immutable snapshots taken when a poll is deleted.
type MeetingRepo struct{ DB *sql.DB }

func NewMeetingRepo(db *sql.DB) *MeetingRepo { return &MeetingRepo{DB: db} }

const meetingColumns = "id, poll_id, session_date, session_time, location, fee, attendees, created_at"

// Create inserts rec and fills in its generated id.
func (r *MeetingRepo) Create(ctx context.Context, rec *model.MeetingRecord) error {
	if _, err := time.Parse(model.DateLayout, rec.Date); err != nil {
		return ErrInvalidDate
	}
	attendees := rec.Attendees
	if attendees == nil {
		attendees = []model.AttendeeSummary{}
	}
	payload, err := json.Marshal(attendees)
	if err != nil {
		return fmt.Errorf("encode attendees: %w", err)
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO meetings (poll_id, session_date, session_time, location, fee, attendees) VALUES (?,?,?,?,?,?)",
		rec.PollID, rec.Date, rec.Time, rec.Location, rec.Fee, payload)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// GetByID fetches a single meeting record.
func (r *MeetingRepo) GetByID(ctx context.Context, id uint64) (model.MeetingRecord, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+meetingColumns+" FROM meetings WHERE id=? LIMIT 1", id)
	m, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MeetingRecord{}, ErrMeetingNotFound
	}
	return m, err
}

// ListBetween returns meetings with from <= session_date < to in calendar order.
func (r *MeetingRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.MeetingRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+meetingColumns+" FROM meetings WHERE session_date>=? AND session_date<? ORDER BY session_date, id",
		from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MeetingRecord
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes one meeting record.
func (r *MeetingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM meetings WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(s rowScanner) (model.MeetingRecord, error) {
	var (
		m         model.MeetingRecord
		date      time.Time
		attendees []byte
	)
	if err := s.Scan(&m.ID, &m.PollID, &date, &m.Time, &m.Location, &m.Fee, &attendees, &m.CreatedAt); err != nil {
		return model.MeetingRecord{}, err
	}
	m.Date = date.Format(model.DateLayout)
	if len(attendees) > 0 {
		if err := json.Unmarshal(attendees, &m.Attendees); err != nil {
			return model.MeetingRecord{}, fmt.Errorf("decode attendees of meeting %d: %w", m.ID, err)
		}
	}
	return m, nil
}
