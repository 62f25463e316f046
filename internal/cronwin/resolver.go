package cronwin

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// InvalidExpressionError reports a crontab that could not be parsed. It is
// returned before any timestamp is produced.
type InvalidExpressionError struct {
	Expr string
	Err  error
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid cron expression %q: %v", e.Expr, e.Err)
}

func (e *InvalidExpressionError) Unwrap() error { return e.Err }

// Resolver turns a cron expression plus a time window into the ordered,
// rate-limited sequence of timestamps the expression fires at inside the
// window.
type Resolver struct {
	parser cron.Parser
}

func New() *Resolver {
	return &Resolver{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Validate parses the expression and reports whether it is usable.
func (r *Resolver) Validate(crontab string) error {
	if _, err := r.parser.Parse(crontab); err != nil {
		return &InvalidExpressionError{Expr: crontab, Err: err}
	}
	return nil
}

// Window returns a lazy iterator over every eta in [startAt, stopAt) that
// matches the expression, keeping only etas at least resolution apart.
// A resolution of 0 disables throttling. The iterator is a pure function of
// its arguments: re-invoking Window with the same values yields the same
// sequence.
func (r *Resolver) Window(crontab string, startAt, stopAt time.Time, resolution time.Duration) (*Iterator, error) {
	sched, err := r.parser.Parse(crontab)
	if err != nil {
		return nil, &InvalidExpressionError{Expr: crontab, Err: err}
	}

	return &Iterator{
		sched:      sched,
		stopAt:     stopAt,
		resolution: resolution,
		// Seed one second early so a startAt that matches the expression
		// is itself included.
		cursor: startAt.Add(-time.Second),
	}, nil
}

// Iterator is a single-pass sequence of due timestamps.
type Iterator struct {
	sched      cron.Schedule
	stopAt     time.Time
	resolution time.Duration
	cursor     time.Time
	lastKept   time.Time
	done       bool
}

// Next returns the next due timestamp, or false when the window is
// exhausted. The underlying schedule is infinite; iteration stops as soon
// as a candidate reaches stopAt, so cost is bounded by the window length.
func (it *Iterator) Next() (time.Time, bool) {
	if it.done {
		return time.Time{}, false
	}

	for {
		eta := it.sched.Next(it.cursor)
		if eta.IsZero() || !eta.After(it.cursor) || !eta.Before(it.stopAt) {
			it.done = true
			return time.Time{}, false
		}
		it.cursor = eta

		// Throttle etas that fire more often than the resolution allows.
		// Skipped firings are intentional, not an error.
		if !it.lastKept.IsZero() && it.resolution > 0 && eta.Sub(it.lastKept) < it.resolution {
			continue
		}

		it.lastKept = eta
		return eta, true
	}
}

// All drains the iterator into a slice.
func (it *Iterator) All() []time.Time {
	var etas []time.Time
	for {
		eta, ok := it.Next()
		if !ok {
			return etas
		}
		etas = append(etas, eta)
	}
}
