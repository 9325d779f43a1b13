package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// BrokerCredentials is a user's stored broker login plus the last session
// token the broker issued.
type BrokerCredentials struct {
	Name     string
	Email    string
	Password string
	SSID     string
}

// StakingConfig is the per-user staking strategy.
type StakingConfig struct {
	Mode           string
	Entry          decimal.Decimal
	Gales          int
	GaleMultiplier decimal.Decimal
	StopWin        decimal.Decimal
	StopLoss       decimal.Decimal
}

// OperationRecord is one completed gale attempt appended to user history.
type OperationRecord struct {
	ID     string          `json:"id"`
	Active string          `json:"active"`
	Entry  decimal.Decimal `json:"entry"`
	Profit decimal.Decimal `json:"profit"`
	Time   string          `json:"time"`
	Win    *bool           `json:"win"`
}

// BalanceCheckpoint is one point of the user's balance curve.
type BalanceCheckpoint struct {
	Balance decimal.Decimal `json:"balance"`
	Time    string          `json:"time"`
}

// User is one trading account driven by the bot.
type User struct {
	ID           string
	Email        string
	Broker       BrokerCredentials
	IsActive     bool
	Status       string
	Balance      decimal.Decimal
	RealBalance  decimal.Decimal
	DemoBalance  decimal.Decimal
	Transacted   decimal.Decimal
	Config       StakingConfig
	Operations   []OperationRecord
	BalanceTrack []BalanceCheckpoint
}

// TradeRecord is one shared-demo-account trade appended to a trader.
type TradeRecord struct {
	PerformedAt time.Time `json:"performedAt"`
	Active      string    `json:"active"`
	Direction   string    `json:"direction"`
	Duration    int       `json:"duration"`
	Win         *bool     `json:"win"`
}

// Trader is a published trader whose calls are mirrored on the shared demo
// account.
type Trader struct {
	ID     string
	Name   string
	Gales  int
	Trades []TradeRecord
}
