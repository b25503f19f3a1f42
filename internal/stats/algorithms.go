package stats

import (
	"sort"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/tracking"
)

// TypeBreakdown is the per-type dashboard row.
type TypeBreakdown struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Planned    int `json:"planned"`
	Dropped    int `json:"dropped"`
}

// Snapshot is derived from a user's links on every read; it is never stored.
type Snapshot struct {
	Total         int     `json:"total"`
	Completed     int     `json:"completed"`
	InProgress    int     `json:"inProgress"`
	Planned       int     `json:"planned"`
	Dropped       int     `json:"dropped"`
	AverageRating float64 `json:"averageRating"`
	RatedCount    int     `json:"ratedCount"`

	// ByType always carries all four known types.
	ByType       map[catalog.MediaType]int           `json:"byType"`
	ByTypeDetail map[catalog.MediaType]TypeBreakdown `json:"byTypeDetail"`

	Streak int `json:"streak"`
}

func emptySnapshot() Snapshot {
	s := Snapshot{
		ByType:       make(map[catalog.MediaType]int, len(catalog.MediaTypes)),
		ByTypeDetail: make(map[catalog.MediaType]TypeBreakdown, len(catalog.MediaTypes)),
	}
	for _, t := range catalog.MediaTypes {
		s.ByType[t] = 0
		s.ByTypeDetail[t] = TypeBreakdown{}
	}
	return s
}

// Aggregate computes counters and the average rating over links.
// Links without a joined catalog entry, or with an unknown type, count toward
// Total but no per-type counter. Unrated links (rating 0) are left out of the average.
func Aggregate(links []tracking.Link) Snapshot {
	s := emptySnapshot()
	ratingSum := 0

	for _, l := range links {
		s.Total++
		switch l.Status {
		case tracking.Completed:
			s.Completed++
		case tracking.InProgress:
			s.InProgress++
		case tracking.Planned:
			s.Planned++
		case tracking.Dropped:
			s.Dropped++
		}

		if l.Rating > 0 {
			ratingSum += l.Rating
			s.RatedCount++
		}

		if l.Media == nil || !l.Media.Type.Valid() {
			continue
		}
		t := l.Media.Type
		s.ByType[t]++
		row := s.ByTypeDetail[t]
		row.Total++
		switch l.Status {
		case tracking.Completed:
			row.Completed++
		case tracking.InProgress:
			row.InProgress++
		case tracking.Planned:
			row.Planned++
		case tracking.Dropped:
			row.Dropped++
		}
		s.ByTypeDetail[t] = row
	}

	if s.RatedCount > 0 {
		s.AverageRating = float64(ratingSum) / float64(s.RatedCount)
	}
	return s
}

// truncateToDay returns midnight of t's calendar day in loc.
func truncateToDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Streak counts consecutive calendar days with activity, ending today or yesterday.
// Days are taken in loc; several updates on one day count once. Days after
// today (clock skew between writers) are ignored.
func Streak(updates []time.Time, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	today := truncateToDay(now, loc)

	// 1. Map to calendar days and deduplicate
	seen := make(map[int64]struct{}, len(updates))
	days := make([]time.Time, 0, len(updates))
	for _, u := range updates {
		if u.IsZero() {
			continue
		}
		d := truncateToDay(u, loc)
		if d.After(today) {
			continue
		}
		if _, ok := seen[d.Unix()]; ok {
			continue
		}
		seen[d.Unix()] = struct{}{}
		days = append(days, d)
	}
	if len(days) == 0 {
		return 0
	}

	// 2. Most recent first
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	// 3. The chain must start today or yesterday
	yesterday := today.AddDate(0, 0, -1)
	if !days[0].Equal(today) && !days[0].Equal(yesterday) {
		return 0
	}

	// 4. Walk back while each day is exactly the one before
	streak := 1
	for i := 1; i < len(days); i++ {
		if !days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
			break
		}
		streak++
	}
	return streak
}

// StreakOf computes the streak over the links' update times.
func StreakOf(links []tracking.Link, now time.Time, loc *time.Location) int {
	updates := make([]time.Time, len(links))
	for i, l := range links {
		updates[i] = l.UpdatedAt
	}
	return Streak(updates, now, loc)
}
