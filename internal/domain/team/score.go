package team

import (
	"sort"
	"time"
)

// ScoreEntry is one completed game credited to a team.
type ScoreEntry struct {
	CompletedAt time.Time
	Score       int
	Distance    int
	Homeruns    int
}

// DailyScore is the team's total for one calendar day.
type DailyScore struct {
	Day      time.Time
	Score    int
	Distance int
	Homeruns int
	Games    int
}

// AggregateDaily sums entries per UTC day, oldest day first.
func AggregateDaily(entries []ScoreEntry) []DailyScore {
	byDay := make(map[time.Time]*DailyScore)
	for _, e := range entries {
		t := e.CompletedAt.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		agg, ok := byDay[day]
		if !ok {
			agg = &DailyScore{Day: day}
			byDay[day] = agg
		}
		agg.Score += e.Score
		agg.Distance += e.Distance
		agg.Homeruns += e.Homeruns
		agg.Games++
	}

	out := make([]DailyScore, 0, len(byDay))
	for _, agg := range byDay {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Day.Before(out[j].Day)
	})
	return out
}
