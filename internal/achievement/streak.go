package achievement

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperengineering/pathwise/internal/types"
)

// Streak returns a predicate that holds when the user checked in on each of
// the n calendar days ending today.
//
// Only the n+1 most recent checkin rows are examined, so several checkins on
// one day can crowd an older day out of the window.
func Streak(n int) Predicate {
	return func(ctx context.Context, e Env) (bool, error) {
		if n <= 0 {
			return true, nil
		}
		dates, err := e.Store.RecentCheckinDates(ctx, e.UserID, n+1)
		if err != nil {
			return false, err
		}

		loc := e.Today.Location()
		days := make(map[string]bool, len(dates))
		for _, d := range dates {
			day, err := time.ParseInLocation(types.CheckinDateLayout, d, loc)
			if err != nil {
				return false, fmt.Errorf("parse checkin date %q: %w", d, err)
			}
			days[day.Format(types.CheckinDateLayout)] = true
		}

		for i := 0; i < n; i++ {
			if !days[e.Today.AddDate(0, 0, -i).Format(types.CheckinDateLayout)] {
				return false, nil
			}
		}
		return true, nil
	}
}

// midnight returns the start of t's calendar day in loc.
func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
