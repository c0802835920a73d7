package analytics

import (
	"time"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/submission"
)

const dateLayout = "2006-01-02"

var (
	errInvalidPeriod = core.NewValidationError(nil, core.FieldError{Field: "period", Error: "period must be one of day, week or month"})
	errInvalidDays   = core.NewValidationError(nil, core.FieldError{Field: "days", Error: "days must be between 1 and 366"})
)

func (tq *TrendQuery) Clean() error {
	if tq.Period = core.CleanString(tq.Period, true /* lower */); tq.Period == "" {
		tq.Period = DefaultPeriod
	}
	if tq.Days == 0 {
		tq.Days = DefaultDays
	}
	switch tq.Period {
	case PeriodDay, PeriodWeek, PeriodMonth:
	default:
		return errInvalidPeriod
	}
	if tq.Days < 0 || tq.Days > MaxDays {
		return errInvalidDays
	}
	return nil
}

// truncate returns the start of the period t falls in. Weeks start on monday.
func truncate(period string, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

func next(period string, t time.Time) time.Time {
	switch period {
	case PeriodWeek:
		return t.AddDate(0, 0, 7)
	case PeriodMonth:
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

type bucket struct {
	start  time.Time
	count  int
	grades []float64
}

// buckets cover the whole window, empty periods included.
type buckets struct {
	period string
	items  []*bucket
}

func newBuckets(period string, now time.Time, days int) *buckets {
	now = now.UTC()
	b := &buckets{period: period}
	end := truncate(period, now)
	for t := truncate(period, now.AddDate(0, 0, -days)); !t.After(end); t = next(period, t) {
		b.items = append(b.items, &bucket{start: t})
	}
	return b
}

func (b *buckets) start() time.Time {
	return b.items[0].start
}

func (b *buckets) find(t time.Time) *bucket {
	start := truncate(b.period, t.UTC())
	for _, bk := range b.items {
		if bk.start.Equal(start) {
			return bk
		}
	}
	return nil
}

func (b *buckets) fill(subs []submission.Submission) []TrendPoint {
	for _, s := range subs {
		if s.SubmittedAt == nil {
			continue
		}
		bk := b.find(*s.SubmittedAt)
		if bk == nil {
			continue
		}
		bk.count++
		if s.Grade != nil {
			bk.grades = append(bk.grades, *s.Grade)
		}
	}

	points := make([]TrendPoint, 0, len(b.items))
	for _, bk := range b.items {
		points = append(points, TrendPoint{
			Date:         bk.start.Format(dateLayout),
			Submissions:  bk.count,
			AverageGrade: core.RoundedMean(bk.grades),
		})
	}
	return points
}
