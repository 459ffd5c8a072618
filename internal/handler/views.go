package handler

import (
	"time"

	"github.com/iliyamo/netplay-club/internal/model"
)

// pollView is the poll as served over HTTP. Attendee PINs stay on the
// server.
type pollView struct {
	ID           string                  `json:"id"`
	Title        string                  `json:"title"`
	Date         string                  `json:"date"`
	Time         string                  `json:"time"`
	Location     string                  `json:"location"`
	Fee          string                  `json:"fee"`
	Capacity     int                     `json:"capacity"`
	Participants []model.AttendeeSummary `json:"participants"`
	Waitlist     []model.AttendeeSummary `json:"waitlist"`
	Logs         []model.LogEntry        `json:"logs"`
	CreatedAt    time.Time               `json:"created_at"`
}

func summaries(list []model.Attendee) []model.AttendeeSummary {
	out := make([]model.AttendeeSummary, 0, len(list))
	for _, a := range list {
		out = append(out, a.Summary())
	}
	return out
}

func toPollView(p model.Poll) pollView {
	logs := p.Logs
	if logs == nil {
		logs = []model.LogEntry{}
	}
	return pollView{
		ID:           p.ID,
		Title:        p.Title,
		Date:         p.Date,
		Time:         p.Time,
		Location:     p.Location,
		Fee:          p.Fee,
		Capacity:     p.Capacity,
		Participants: summaries(p.Participants),
		Waitlist:     summaries(p.Waitlist),
		Logs:         logs,
		CreatedAt:    p.CreatedAt,
	}
}

func toPollViews(ps []model.Poll) []pollView {
	out := make([]pollView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPollView(p))
	}
	return out
}
