// Package clock holds the product's wall-clock conventions: operations are
// scheduled and recorded in São Paulo local time, formatted HH:mm.
package clock

import (
	"context"
	"sync"
	"time"
)

const Layout = "15:04"

var location = sync.OnceValue(func() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
})

// Now is the current time in the product timezone.
func Now() time.Time {
	return time.Now().In(location())
}

// CurrentTime formats Now as HH:mm.
func CurrentTime() string {
	return Now().Format(Layout)
}

// At resolves an HH:mm string against today's date in the product timezone.
func At(hhmm string, now time.Time) (time.Time, error) {
	parsed, err := time.ParseInLocation(Layout, hhmm, location())
	if err != nil {
		return time.Time{}, err
	}
	now = now.In(location())
	return time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, location()), nil
}

// IsNextMinute reports whether hhmm names the minute after now.
func IsNextMinute(hhmm string, now time.Time) bool {
	return now.In(location()).Add(time.Minute).Format(Layout) == hhmm
}

// WaitForTime blocks until the given HH:mm today; it returns immediately
// when that time has already passed or cannot be parsed.
func WaitForTime(ctx context.Context, hhmm string) error {
	target, err := At(hhmm, time.Now())
	if err != nil {
		return err
	}
	delay := time.Until(target)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
