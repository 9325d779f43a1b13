package executor

import (
	"context"

	"galebot/internal/broker"
	"galebot/internal/logger"
	"galebot/internal/pkg/clock"
	"galebot/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bot drives the staking state machine for one user: the gale retry loop,
// in-memory balance bookkeeping per account mode, stop-condition
// evaluation, and persistence of status, history and ledger deltas.
type Bot struct {
	api   BrokerAPI
	users UserStore
	user  store.User
	mode  broker.Mode

	real decimal.Decimal
	demo decimal.Decimal

	operations []store.OperationRecord
	track      []store.BalanceCheckpoint
}

func NewBot(api BrokerAPI, users UserStore, user store.User) *Bot {
	mode := broker.Mode(user.Config.Mode)
	if mode != broker.Real {
		mode = broker.Demo
	}
	return &Bot{
		api:        api,
		users:      users,
		user:       user,
		mode:       mode,
		real:       user.RealBalance,
		demo:       user.DemoBalance,
		operations: user.Operations,
		track:      user.BalanceTrack,
	}
}

func (b *Bot) balance(mode broker.Mode) decimal.Decimal {
	if mode == broker.Real {
		return b.real
	}
	return b.demo
}

func (b *Bot) changeBalance(delta decimal.Decimal) {
	if b.mode == broker.Real {
		b.real = b.real.Add(delta)
	} else {
		b.demo = b.demo.Add(delta)
	}
}

func (b *Bot) saveUser(ctx context.Context) {
	b.user.Balance = b.balance(b.mode)
	b.user.RealBalance = b.real
	b.user.DemoBalance = b.demo
	b.user.Operations = b.operations
	b.user.BalanceTrack = b.track
	if err := b.users.UpdateUser(ctx, &b.user); err != nil {
		logger.Errorf("executor: persisting user %s failed: %v", b.user.ID, err)
	}
}

// isActive re-reads the external active flag. A read failure counts as
// inactive: trading blind against a store outage is worse than stopping.
func (b *Bot) isActive(ctx context.Context) bool {
	u, err := b.users.User(ctx, b.user.ID)
	if err != nil {
		logger.Errorf("executor: reloading user %s failed: %v", b.user.ID, err)
		return false
	}
	return u.IsActive
}

// Init establishes the broker connection and refreshes the persisted
// balances and session token from the live snapshot. A connection failure
// deactivates the user with a descriptive status.
func (b *Bot) Init(ctx context.Context) bool {
	if !b.api.EstablishConnection(ctx) {
		b.user.IsActive = false
		b.user.Status = StatusOffConnectError
		b.saveUser(ctx)
		return false
	}
	if v, ok := b.api.RealBalance(); ok {
		b.real = v
	}
	if v, ok := b.api.DemoBalance(); ok {
		b.demo = v
	}
	b.user.Broker.SSID = b.api.SSID()
	b.saveUser(ctx)
	return true
}

func (b *Bot) checkStop(nextStake decimal.Decimal) stopReason {
	balance := b.balance(b.mode)
	cfg := b.user.Config
	if balance.GreaterThanOrEqual(cfg.StopWin) {
		return stopWin
	}
	if balance.LessThanOrEqual(cfg.StopLoss) {
		return stopLoss
	}
	if balance.LessThan(nextStake) {
		return stopNoBalance
	}
	return stopNone
}

// Operate runs one full staking sequence: up to maxGales+1 attempts with a
// geometrically growing stake, ending on a win, a stop condition, an
// unplaceable order, a manual deactivation, or gale exhaustion. The
// cumulative transacted counter is incremented by the stakes actually
// placed, and the session is closed, on every exit path.
func (b *Bot) Operate(ctx context.Context, op Operation) (success bool) {
	if op.Time != "" {
		if err := clock.WaitForTime(ctx, op.Time); err != nil {
			logger.Warnf("executor: wait for %s aborted: %v", op.Time, err)
			return false
		}
	}

	cfg := b.user.Config
	transacted := decimal.Zero
	defer func() {
		b.api.Disconnect()
		if transacted.IsPositive() {
			if err := b.users.IncrementTransacted(ctx, b.user.ID, transacted); err != nil {
				logger.Errorf("executor: incrementing transacted for %s failed: %v", b.user.ID, err)
			}
		}
	}()

	for gale := 0; gale <= cfg.Gales; gale++ {
		if !b.isActive(ctx) {
			logger.Infof("executor: user %s deactivated, stopping before gale %d", b.user.ID, gale)
			return false
		}

		stake := Stake(cfg.Entry, cfg.GaleMultiplier, gale)
		if b.balance(b.mode).LessThan(stake) {
			b.user.IsActive = false
			b.user.Status = StatusOffNoBalance
			b.saveUser(ctx)
			return false
		}

		b.changeBalance(stake.Neg())
		startedAt := clock.CurrentTime()
		b.track = append(b.track, store.BalanceCheckpoint{Balance: b.balance(b.mode), Time: startedAt})
		b.user.Status = StatusOperating
		b.saveUser(ctx)

		out := b.api.BuyAndCheckWin(ctx, broker.Order{
			Active:    op.Active,
			Price:     stake,
			Direction: op.Direction,
			Duration:  op.Duration,
			Mode:      b.mode,
		})

		if !out.Bought {
			// The order never reached the book: refund the stake, drop the
			// checkpoint just taken, and abandon the remaining gales.
			b.changeBalance(stake)
			b.track = b.track[:len(b.track)-1]
			b.user.Status = StatusAnalyzingEntry
			b.saveUser(ctx)
			return false
		}

		transacted = transacted.Add(stake)
		b.changeBalance(out.Gains)

		if out.Win == nil || *out.Win {
			b.track = append(b.track, store.BalanceCheckpoint{Balance: b.balance(b.mode), Time: clock.CurrentTime()})
		}
		b.operations = append(b.operations, store.OperationRecord{
			ID:     uuid.NewString(),
			Active: op.Active,
			Entry:  stake,
			Profit: out.Gains.Sub(stake),
			Time:   startedAt,
			Win:    out.Win,
		})

		stop := b.checkStop(Stake(cfg.Entry, cfg.GaleMultiplier, gale+1))
		won := out.Win != nil && *out.Win
		ending := won || stop != stopNone

		active := stop == stopNone
		status := StatusOperating
		if ending || (!won && gale == cfg.Gales) {
			status = StatusAnalyzingEntry
		}
		if stop != stopNone {
			status = stop.status()
		}

		// Manual deactivation wins over everything, including a winning
		// streak that tripped no stop.
		if !b.isActive(ctx) {
			active = false
			status = StatusOffManual
		}

		b.user.IsActive = active
		b.user.Status = status
		b.saveUser(ctx)

		if ending {
			break
		}
	}

	return true
}
