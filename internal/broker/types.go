package broker

import (
	"github.com/shopspring/decimal"
)

// Direction of a binary/digital option.
type Direction string

const (
	Call Direction = "call"
	Put  Direction = "put"
)

// Mode selects which account balance an order is placed against.
type Mode string

const (
	Real Mode = "real"
	Demo Mode = "demo"
)

// Balance is one account-balance snapshot, refreshed once per session on
// successful authentication.
type Balance struct {
	ID     int64
	Amount decimal.Decimal
}

// Balances holds the real and demo snapshots reported by the profile event.
type Balances struct {
	Real Balance
	Demo Balance
}

func (b Balances) ForMode(mode Mode) Balance {
	if mode == Real {
		return b.Real
	}
	return b.Demo
}

// Order is one requested trade, constructed per gale attempt. Immutable.
type Order struct {
	Active    string
	Price     decimal.Decimal
	Direction Direction
	Duration  int // minutes
	Mode      Mode
}

// BuyResult is the uniform order-placement result across brokers.
type BuyResult struct {
	Bought bool
	ID     int64
}

// Outcome is the uniform win/loss/gains result. Win is tri-state: nil means
// a push (gains exactly equal to the stake, net profit zero) and is neither
// a win nor a loss.
type Outcome struct {
	Bought bool
	Win    *bool
	Gains  decimal.Decimal
}

// AuthResult is the broker HTTP authentication response.
type AuthResult struct {
	Success bool
	SSID    string
}

func boolPtr(v bool) *bool { return &v }
