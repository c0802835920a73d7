package core

import "context"

// StatsInvalidator drops the statistics derived from rows that just changed.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// NoStats is a StatsInvalidator with nothing to drop.
var NoStats StatsInvalidator = noStats{}

type noStats struct{}

func (noStats) Invalidate(context.Context) {}
