// Package activity turns stored commit counts into the monthly series and
// summary figures shown on the dashboard chart.
package activity

import (
	"errors"
	"time"

	"github.com/montanaflynn/stats"
)

// MonthCount is the number of commits in the calendar month starting at Month.
type MonthCount struct {
	Month   time.Time
	Commits int64
}

// Bucket is one point of the monthly series.
type Bucket struct {
	Month   string `json:"month"`
	Commits int64  `json:"commits"`
}

// Summary is the monthly series plus figures over all months in it.
type Summary struct {
	Months       []Bucket `json:"months"`
	TotalCommits int64    `json:"totalCommits"`
	Mean         float64  `json:"mean"`
	Median       float64  `json:"median"`
	P90          float64  `json:"p90"`
	Max          int64    `json:"max"`
}

// Summarize fills months without commits between the first and last active
// month with zero buckets and computes the summary over that range. counts
// must be ordered by month. An empty input yields an empty summary.
func Summarize(counts []MonthCount) (Summary, error) {
	s := Summary{Months: []Bucket{}}
	if len(counts) == 0 {
		return s, nil
	}

	byMonth := make(map[time.Time]int64, len(counts))
	for _, c := range counts {
		byMonth[monthStart(c.Month)] += c.Commits
	}

	first := monthStart(counts[0].Month)
	last := monthStart(counts[len(counts)-1].Month)
	if last.Before(first) {
		return s, errors.New("month counts are not ordered")
	}

	var data stats.Float64Data
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		n := byMonth[m]
		s.Months = append(s.Months, Bucket{Month: m.Format("2006-01"), Commits: n})
		s.TotalCommits += n
		s.Max = max(s.Max, n)
		data = append(data, float64(n))
	}

	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	if s.P90, err = stats.Percentile(data, 90); err != nil {
		return s, err
	}
	s.Mean, _ = stats.Round(s.Mean, 2)
	s.Median, _ = stats.Round(s.Median, 2)
	s.P90, _ = stats.Round(s.P90, 2)
	return s, nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
