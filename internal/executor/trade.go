package executor

import (
	"context"
	"time"

	"galebot/internal/broker"
	"galebot/internal/logger"
	"galebot/internal/pkg/clock"
	"galebot/internal/store"

	"github.com/shopspring/decimal"
)

// Trade mirrors one published trader call on the shared demo account: a
// gale loop with a fixed configured stake and no balance bookkeeping. The
// last outcome (win, loss or push) is appended to the trader's record.
func Trade(ctx context.Context, api BrokerAPI, traders TraderStore, trader store.Trader, op Operation, stake decimal.Decimal) bool {
	if !api.EstablishConnection(ctx) {
		return false
	}
	defer api.Disconnect()

	if op.Time != "" {
		if err := clock.WaitForTime(ctx, op.Time); err != nil {
			return false
		}
	}

	var result *bool
	for gale := 0; gale <= trader.Gales; gale++ {
		out := api.BuyAndCheckWin(ctx, broker.Order{
			Active:    op.Active,
			Price:     stake,
			Direction: op.Direction,
			Duration:  op.Duration,
			Mode:      broker.Demo,
		})
		if !out.Bought {
			return false
		}
		result = out.Win
		if out.Win != nil && *out.Win {
			break
		}
	}

	err := traders.AppendTrade(ctx, trader.ID, store.TradeRecord{
		PerformedAt: time.Now(),
		Active:      op.Active,
		Direction:   string(op.Direction),
		Duration:    op.Duration,
		Win:         result,
	})
	if err != nil {
		logger.Errorf("executor: recording trade for %s failed: %v", trader.Name, err)
		return false
	}
	return true
}
