package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/netplay-club/internal/model"
)

// ParticipationLogRepo reads and writes the 'participation_logs' table.
// The unique key on (user_id, session_date) is the last line of defence
// for at most one credited attendance per identity and day.
type ParticipationLogRepo struct{ DB *sql.DB }

func NewParticipationLogRepo(db *sql.DB) *ParticipationLogRepo {
	return &ParticipationLogRepo{DB: db}
}

const participationColumns = "id, user_id, session_date, poll_id, guest, created_at"

// Exists reports whether userID already has a credited attendance on date.
func (r *ParticipationLogRepo) Exists(ctx context.Context, userID, date string) (bool, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return false, ErrInvalidDate
	}
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM participation_logs WHERE user_id=? AND session_date=? LIMIT 1",
		userID, date).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert stores one credited attendance. inserted is false when the
// (user_id, date) pair was already present, which is not an error.
func (r *ParticipationLogRepo) Insert(ctx context.Context, rec model.ParticipationLog) (inserted bool, err error) {
	if _, err := time.Parse(model.DateLayout, rec.Date); err != nil {
		return false, ErrInvalidDate
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO participation_logs (user_id, session_date, poll_id, guest) VALUES (?,?,?,?)",
		rec.UserID, rec.Date, rec.PollID, rec.Guest)
	if err != nil {
		if isDuplicateEntry(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteForUsers removes every log of the given identities on date and
// returns how many rows went away.
func (r *ParticipationLogRepo) DeleteForUsers(ctx context.Context, userIDs []string, date string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return 0, ErrInvalidDate
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, 0, len(userIDs)+1)
	args = append(args, date)
	for _, id := range userIDs {
		args = append(args, id)
	}
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM participation_logs WHERE session_date=? AND user_id IN (%s)", placeholders),
		args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByDate returns the logs credited for one session day.
func (r *ParticipationLogRepo) ListByDate(ctx context.Context, date string) ([]model.ParticipationLog, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+participationColumns+" FROM participation_logs WHERE session_date=? ORDER BY id",
		date)
	if err != nil {
		return nil, err
	}
	return scanParticipationLogs(rows)
}

// ListBetween returns logs with from <= session_date < to, oldest first.
func (r *ParticipationLogRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.ParticipationLog, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+participationColumns+" FROM participation_logs WHERE session_date>=? AND session_date<? ORDER BY session_date, id",
		from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	return scanParticipationLogs(rows)
}

func scanParticipationLogs(rows *sql.Rows) ([]model.ParticipationLog, error) {
	defer rows.Close()
	var out []model.ParticipationLog
	for rows.Next() {
		var (
			l    model.ParticipationLog
			date time.Time
		)
		if err := rows.Scan(&l.ID, &l.UserID, &date, &l.PollID, &l.Guest, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Date = date.Format(model.DateLayout)
		out = append(out, l)
	}
	return out, rows.Err()
}
