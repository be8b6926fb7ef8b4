package rollover

import (
	"context"
	"errors"
	"time"

	"kada-backend/internal/config"
	"kada-backend/internal/mirror"
)

// NextMidnight returns the start of the day after now in loc.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	t := now.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
}

// CatchUp runs today's rollover when the last recorded one is older, so a
// process that was down across midnight does not leave yesterday's totals in
// the today counters.
func (j *Job) CatchUp(ctx context.Context, today string) (*Result, error) {
	last, err := mirror.LastRolloverDate(ctx, j.store)
	if err != nil {
		return nil, err
	}
	if last >= today {
		return nil, ErrAlreadyDone
	}
	return j.Run(ctx, today, false)
}

// Start catches up on a missed rollover, then runs the job at every midnight
// in loc until ctx is cancelled.
func (j *Job) Start(ctx context.Context, loc *time.Location) {
	go func() {
		today := time.Now().In(loc).Format("2006-01-02")
		if res, err := j.CatchUp(ctx, today); err != nil && !errors.Is(err, ErrAlreadyDone) {
			config.LogError(j.logger, "rollover", "Start", "catch-up rollover failed", today, err)
		} else if res != nil {
			j.logger.WithField("date", today).Warn("missed rollover caught up at startup")
		}

		for {
			next := NextMidnight(time.Now(), loc)
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			date := next.Format("2006-01-02")
			if _, err := j.Run(ctx, date, false); err != nil && !errors.Is(err, ErrAlreadyDone) {
				config.LogError(j.logger, "rollover", "Start", "scheduled rollover failed", date, err)
			}
		}
	}()
}
