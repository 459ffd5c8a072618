// Package ranking projects the participation logs into a monthly
// attendance ranking.
package ranking

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/netplay-club/internal/model"
)

const monthLayout = "2006-01"

var ErrInvalidMonth = errors.New("month must be YYYY-MM")

// LogSource lists participation logs with from <= date < to.
type LogSource interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]model.ParticipationLog, error)
}

type Entry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Ranking struct {
	Month   string  `json:"month"`
	Entries []Entry `json:"entries"`
}

type Service struct {
	logs LogSource
	now  func() time.Time
	loc  *time.Location
}

func NewService(logs LogSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{logs: logs, now: time.Now, loc: loc}
}

// CurrentMonth is today's YYYY-MM in the club's timezone.
func (s *Service) CurrentMonth() string { return s.now().In(s.loc).Format(monthLayout) }

// Monthly counts non-guest logs per identity for month (YYYY-MM, empty
// for the current month). Higher counts rank first; ties share a rank and
// are listed by name.
func (s *Service) Monthly(ctx context.Context, month string) (Ranking, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		month = s.CurrentMonth()
	}
	from, err := time.Parse(monthLayout, month)
	if err != nil {
		return Ranking{}, ErrInvalidMonth
	}
	logs, err := s.logs.ListBetween(ctx, from, from.AddDate(0, 1, 0))
	if err != nil {
		return Ranking{}, err
	}
	return Ranking{Month: month, Entries: Aggregate(logs)}, nil
}

// Aggregate builds the sorted ranking entries from raw logs.
func Aggregate(logs []model.ParticipationLog) []Entry {
	counts := make(map[string]int)
	for _, l := range logs {
		if l.Guest || l.UserID == "" {
			continue
		}
		counts[l.UserID]++
	}
	entries := make([]Entry, 0, len(counts))
	for name, n := range counts {
		entries = append(entries, Entry{Name: name, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	for i := range entries {
		if i > 0 && entries[i].Count == entries[i-1].Count {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	return entries
}
