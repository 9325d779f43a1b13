package scheduler

import (
	"context"
	"time"

	"galebot/internal/executor"
	"galebot/internal/logger"
	"galebot/internal/pkg/clock"
	"galebot/internal/store"

	"golang.org/x/sync/errgroup"
)

// Dispatch runs one staking sequence for one user.
type Dispatch func(ctx context.Context, userID string, op executor.Operation) (bool, error)

// UserSource lists the users eligible for signal dispatch.
type UserSource interface {
	ActiveUsers(ctx context.Context, status string) ([]store.User, error)
}

// Dispatcher wakes on every minute boundary, looks up the signals scheduled
// for the minute about to start, and fans each one out to every active user
// still in the market-analysis state.
type Dispatcher struct {
	Book     *Book
	Users    UserSource
	Dispatch Dispatch

	ctx   context.Context
	nowFn func() time.Time
}

func NewDispatcher(ctx context.Context, book *Book, users UserSource, dispatch Dispatch) *Dispatcher {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Dispatcher{
		Book:     book,
		Users:    users,
		Dispatch: dispatch,
		ctx:      ctx,
		nowFn:    clock.Now,
	}
}

func (d *Dispatcher) Run() {
	if d == nil {
		return
	}
	if d.Book == nil || d.Users == nil || d.Dispatch == nil {
		logger.Warnf("Dispatcher: missing book, user source or dispatch fn, exit")
		return
	}
	if d.ctx == nil {
		d.ctx = context.Background()
	}
	if d.nowFn == nil {
		d.nowFn = clock.Now
	}

	startAt := d.nowFn()
	logger.Infof("Dispatcher: started at=%s", startAt.Format(time.RFC3339))

	for {
		now := d.nowFn()
		wakeAt := now.Truncate(time.Minute).Add(time.Minute)
		if !d.waitUntil(wakeAt) {
			return
		}
		d.tick(d.nowFn())
	}
}

// tick dispatches the signals named for the minute after now. The operate
// call itself gates on the signal's HH:mm, so firing one minute early gives
// each user time to connect and authenticate.
func (d *Dispatcher) tick(now time.Time) {
	next := now.Add(time.Minute).Format(clock.Layout)
	signals := d.Book.ForMinute(next)
	if len(signals) == 0 {
		return
	}

	users, err := d.Users.ActiveUsers(d.ctx, executor.StatusAnalyzingMarket)
	if err != nil {
		logger.Errorf("Dispatcher: listing active users failed: %v", err)
		return
	}
	if len(users) == 0 {
		logger.Infof("Dispatcher: %d signal(s) at %s but no eligible users", len(signals), next)
		return
	}

	logger.Infof("Dispatcher: dispatching %d signal(s) at %s to %d user(s)", len(signals), next, len(users))

	g, ctx := errgroup.WithContext(d.ctx)
	for _, sig := range signals {
		op := sig.Operation()
		for _, user := range users {
			userID := user.ID
			g.Go(func() error {
				ok, err := d.Dispatch(ctx, userID, op)
				if err != nil {
					logger.Errorf("Dispatcher: operate for user %s failed: %v", userID, err)
					return nil
				}
				logger.Infof("Dispatcher: user %s %s %s: success=%v", userID, op.Active, op.Direction, ok)
				return nil
			})
		}
	}
	_ = g.Wait()
}

func (d *Dispatcher) waitUntil(target time.Time) bool {
	wait := target.Sub(d.nowFn())
	if wait <= 0 {
		select {
		case <-d.ctx.Done():
			logger.Infof("Dispatcher: ctx done, exit")
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(wait)
	select {
	case <-d.ctx.Done():
		timer.Stop()
		logger.Infof("Dispatcher: ctx done, exit")
		return false
	case <-timer.C:
		return true
	}
}
