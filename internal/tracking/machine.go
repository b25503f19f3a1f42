package tracking

import (
	"math"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
)

// Event is a mutation request against a tracking link.
type Event interface {
	Name() string
}

// AddToList creates the link, or resets an existing one to Status. Zero Status means Planned.
type AddToList struct{ Status Status }

// SetProgress sets the completion percentage, optionally with an explicit status.
type SetProgress struct {
	Percent int
	Status  *Status
}

// SetEpisodes sets unit counts; progress is derived from them.
type SetEpisodes struct {
	Watched int
	Total   int
	Status  *Status
}

// SetStatus sets the status directly.
type SetStatus struct{ Status Status }

// SetRating sets the personal score, 0 clears it.
type SetRating struct{ Rating int }

// Remove deletes the link.
type Remove struct{}

func (AddToList) Name() string   { return "add_to_list" }
func (SetProgress) Name() string { return "set_progress" }
func (SetEpisodes) Name() string { return "set_episodes" }
func (SetStatus) Name() string   { return "set_status" }
func (SetRating) Name() string   { return "set_rating" }
func (Remove) Name() string      { return "remove" }

const (
	maxProgress = 100
	maxRating   = 10
)

// Apply computes the link that results from ev. cur is not modified.
// A nil result with a nil error means the link is removed.
// Every mutating event stamps UpdatedAt with now. Invalid events change nothing.
func Apply(cur *Link, ev Event, now time.Time) (*Link, error) {
	op := "tracking." + ev.Name()

	if _, ok := ev.(AddToList); !ok && cur == nil {
		return nil, apperr.NotFound(op, "media is not in the library")
	}

	switch e := ev.(type) {
	case AddToList:
		return applyAdd(cur, e, now, op)
	case SetProgress:
		if e.Status != nil && !e.Status.Valid() {
			return nil, apperr.Validation(op, "unknown status %q", *e.Status)
		}
		if e.Percent < 0 || e.Percent > maxProgress {
			return nil, apperr.Validation(op, "progress %d out of range [0,%d]", e.Percent, maxProgress)
		}
		next := cur.clone()
		if err := applyProgress(next, cur, e.Percent, e.Status, op); err != nil {
			return nil, err
		}
		next.UpdatedAt = now
		return next, nil
	case SetEpisodes:
		if e.Status != nil && !e.Status.Valid() {
			return nil, apperr.Validation(op, "unknown status %q", *e.Status)
		}
		if e.Watched < 0 || e.Total < 0 {
			return nil, apperr.Validation(op, "episode counts must not be negative")
		}
		if e.Watched > e.Total {
			return nil, apperr.Validation(op, "watched %d exceeds total %d", e.Watched, e.Total)
		}
		next := cur.clone()
		watched, total := e.Watched, e.Total
		next.WatchedEpisodes, next.TotalEpisodes = &watched, &total
		if err := applyProgress(next, cur, episodePercent(watched, total), e.Status, op); err != nil {
			return nil, err
		}
		next.UpdatedAt = now
		return next, nil
	case SetStatus:
		if !e.Status.Valid() {
			return nil, apperr.Validation(op, "unknown status %q", e.Status)
		}
		next := cur.clone()
		enterStatus(next, e.Status)
		next.UpdatedAt = now
		return next, nil
	case SetRating:
		if e.Rating < 0 || e.Rating > maxRating {
			return nil, apperr.Validation(op, "rating %d out of range [0,%d]", e.Rating, maxRating)
		}
		next := cur.clone()
		next.Rating = e.Rating
		next.UpdatedAt = now
		return next, nil
	case Remove:
		return nil, nil
	default:
		return nil, apperr.Validation(op, "unsupported event")
	}
}

func applyAdd(cur *Link, e AddToList, now time.Time, op string) (*Link, error) {
	status := e.Status
	if status == "" {
		status = Planned
	}
	if !status.Valid() {
		return nil, apperr.Validation(op, "unknown status %q", status)
	}

	var next *Link
	if cur == nil {
		next = &Link{}
	} else {
		next = cur.clone()
	}
	next.Status = status
	next.Progress = 0
	if next.WatchedEpisodes != nil {
		*next.WatchedEpisodes = 0
	}
	if status == Completed {
		markComplete(next)
	}
	next.UpdatedAt = now
	return next, nil
}

// applyProgress is the single place where status is derived from progress.
func applyProgress(next, cur *Link, percent int, explicit *Status, op string) error {
	if percent < cur.Progress && (explicit == nil || !explicit.resets()) {
		return apperr.Validation(op, "progress cannot decrease from %d to %d", cur.Progress, percent)
	}

	effective := cur.Status
	if explicit != nil {
		effective = *explicit
	}

	next.Progress = percent
	switch {
	case percent >= maxProgress && effective != Dropped:
		next.Status = Completed
	case percent > 0 && cur.Status == Planned:
		next.Status = InProgress
	case explicit != nil:
		next.Status = *explicit
	}

	if next.Status == Completed {
		markComplete(next)
	}
	return nil
}

// enterStatus applies the side effects of an explicit status change.
func enterStatus(l *Link, s Status) {
	l.Status = s
	switch {
	case s.resets():
		l.Progress = 0
		if l.WatchedEpisodes != nil {
			*l.WatchedEpisodes = 0
		}
	case s == Completed:
		markComplete(l)
	}
}

func markComplete(l *Link) {
	l.Progress = maxProgress
	if l.TotalEpisodes != nil && *l.TotalEpisodes > 0 {
		w := *l.TotalEpisodes
		l.WatchedEpisodes = &w
	}
}

// episodePercent rounds watched/total to a whole percentage, clamped to [0,100].
func episodePercent(watched, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(watched) / float64(total) * 100))
	return max(0, min(maxProgress, p))
}
