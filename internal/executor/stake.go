package executor

import "github.com/shopspring/decimal"

// Stake is the amount wagered on one gale attempt:
// entry × multiplier^gale.
func Stake(entry, multiplier decimal.Decimal, gale int) decimal.Decimal {
	if gale <= 0 {
		return entry
	}
	return entry.Mul(multiplier.Pow(decimal.NewFromInt(int64(gale))))
}
