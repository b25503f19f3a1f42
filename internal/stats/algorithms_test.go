package stats

import (
	"testing"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/tracking"
	"github.com/stretchr/testify/assert"
)

func typed(t catalog.MediaType, status tracking.Status, rating int) tracking.Link {
	return tracking.Link{Status: status, Rating: rating, Media: &catalog.Entry{Type: t}}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.AverageRating)
	assert.Len(t, s.ByType, 4)
	for _, mt := range catalog.MediaTypes {
		assert.Equal(t, 0, s.ByType[mt])
	}
}

func TestAggregateExcludesUnratedFromAverage(t *testing.T) {
	s := Aggregate([]tracking.Link{
		typed(catalog.Movie, tracking.Completed, 0),
		typed(catalog.Movie, tracking.Completed, 8),
	})
	assert.Equal(t, 8.0, s.AverageRating)
	assert.Equal(t, 1, s.RatedCount)
}

func TestAggregateCounts(t *testing.T) {
	links := []tracking.Link{
		typed(catalog.Movie, tracking.Completed, 9),
		typed(catalog.Movie, tracking.Planned, 0),
		typed(catalog.TV, tracking.InProgress, 6),
		typed(catalog.Book, tracking.Dropped, 3),
		typed(catalog.Game, tracking.Completed, 0),
		typed("podcast", tracking.Completed, 0),
		{Status: tracking.Planned},
	}
	s := Aggregate(links)

	assert.Equal(t, 7, s.Total)
	assert.Equal(t, 3, s.Completed)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 2, s.Planned)
	assert.Equal(t, 1, s.Dropped)
	assert.InDelta(t, 6.0, s.AverageRating, 1e-9)

	assert.Equal(t, 2, s.ByType[catalog.Movie])
	assert.Equal(t, 1, s.ByType[catalog.TV])
	assert.Equal(t, 1, s.ByType[catalog.Book])
	assert.Equal(t, 1, s.ByType[catalog.Game])
	_, hasPodcast := s.ByType["podcast"]
	assert.False(t, hasPodcast)

	movie := s.ByTypeDetail[catalog.Movie]
	assert.Equal(t, TypeBreakdown{Total: 2, Completed: 1, Planned: 1}, movie)
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	a := typed(catalog.Movie, tracking.Completed, 7)
	b := typed(catalog.TV, tracking.Planned, 4)
	c := typed(catalog.Game, tracking.Dropped, 0)
	assert.Equal(t, Aggregate([]tracking.Link{a, b, c}), Aggregate([]tracking.Link{c, a, b}))
}

func TestStreak(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 10, 16, 15, 0, 0, 0, loc)
	day := func(offset int, hour int) time.Time {
		return time.Date(2026, 10, 16+offset, hour, 0, 0, 0, loc)
	}

	cases := []struct {
		name    string
		updates []time.Time
		want    int
	}{
		{"empty", nil, 0},
		{"today only", []time.Time{day(0, 9)}, 1},
		{"yesterday only", []time.Time{day(-1, 23)}, 1},
		{"two days ago breaks", []time.Time{day(-2, 12)}, 0},
		{"gap at day three", []time.Time{day(0, 1), day(-1, 1), day(-3, 1)}, 2},
		{"duplicates count once", []time.Time{day(0, 1), day(0, 2), day(0, 3)}, 1},
		{"chain from yesterday", []time.Time{day(-1, 5), day(-2, 5), day(-3, 5), day(-5, 5)}, 3},
		{"unsorted input", []time.Time{day(-2, 1), day(0, 1), day(-1, 1)}, 3},
		{"future ignored", []time.Time{day(2, 1), day(0, 1)}, 1},
		{"zero time ignored", []time.Time{{}, day(0, 1)}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Streak(tc.updates, now, loc))
		})
	}
}

func TestStreakUsesCalendarDaysNotDurations(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 10, 16, 0, 30, 0, 0, loc)
	// 23:50 yesterday and 00:10 today are one hour apart but two calendar days
	updates := []time.Time{
		time.Date(2026, 10, 15, 23, 50, 0, 0, loc),
		time.Date(2026, 10, 16, 0, 10, 0, 0, loc),
	}
	assert.Equal(t, 2, Streak(updates, now, loc))
}

func TestStreakRespectsLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, tokyo)
	// 20:00 UTC on the 15th is 05:00 on the 16th in Tokyo
	updates := []time.Time{time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC)}
	assert.Equal(t, 1, Streak(updates, now, tokyo))

	// the same instant seen from UTC is yesterday relative to a UTC "now" two days later
	assert.Equal(t, 0, Streak(updates, now.Add(48*time.Hour).In(time.UTC), time.UTC))
}

func TestStreakAcrossMonthBoundary(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, loc)
	updates := []time.Time{
		time.Date(2026, 3, 1, 1, 0, 0, 0, loc),
		time.Date(2026, 2, 28, 1, 0, 0, 0, loc),
		time.Date(2026, 2, 27, 1, 0, 0, 0, loc),
	}
	assert.Equal(t, 3, Streak(updates, now, loc))
}
