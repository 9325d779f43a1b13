package executor

import (
	"context"

	"galebot/internal/broker"
	"galebot/internal/store"

	"github.com/shopspring/decimal"
)

// Operation is one trade call: what to trade, which way, for how long, and
// optionally at what wall-clock time.
type Operation struct {
	Time      string           `json:"time,omitempty"`
	Active    string           `json:"active"`
	Direction broker.Direction `json:"direction"`
	Duration  int              `json:"duration"`
}

// BrokerAPI is what the staking machine needs from a broker client.
type BrokerAPI interface {
	EstablishConnection(ctx context.Context) bool
	BuyAndCheckWin(ctx context.Context, order broker.Order) broker.Outcome
	RealBalance() (decimal.Decimal, bool)
	DemoBalance() (decimal.Decimal, bool)
	SSID() string
	Disconnect()
}

// UserStore is the slice of persistence the staking machine touches.
type UserStore interface {
	User(ctx context.Context, id string) (store.User, error)
	UpdateUser(ctx context.Context, u *store.User) error
	IncrementTransacted(ctx context.Context, id string, amount decimal.Decimal) error
}

// TraderStore persists shared-demo-account trade records.
type TraderStore interface {
	TraderByName(ctx context.Context, name string) (store.Trader, error)
	AppendTrade(ctx context.Context, traderID string, trade store.TradeRecord) error
}
