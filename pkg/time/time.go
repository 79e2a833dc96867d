package time

import (
	"context"
	"time"
)

// TickWithCtx returns a chan that receives time.Time every time interval ticks.
// This channel will be closed after context cancelation.
func TickWithCtx(ctx context.Context, interval time.Duration) <-chan time.Time {
	ch := make(chan time.Time)
	ticker := time.NewTicker(interval)

	go func() {
		defer close(ch)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-ticker.C:
				select {
				case ch <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Date truncates t to midnight UTC of its calendar day in t's location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
