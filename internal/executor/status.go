package executor

// User-facing status strings persisted on the user record. The product is
// Brazilian Portuguese; the scheduler also filters dispatchable users by
// StatusAnalyzingMarket, so these are part of the data contract.
const (
	StatusAnalyzingMarket = "Analisando o mercado"
	StatusAnalyzingEntry  = "Analisando possível entrada"
	StatusOperating       = "Realizando operação"

	StatusOffManual       = "Bot desligado"
	StatusOffConnectError = "Bot desligado: erro ao conectar"
	StatusOffNoBalance    = "Bot desligado: saldo insuficiente"
	StatusOffStopWin      = "Bot desligado: stop win atingido"
	StatusOffStopLoss     = "Bot desligado: stop loss atingido"
)

// stopReason is the terminal stop condition of a staking loop, evaluated in
// strict priority order: stop-win beats stop-loss beats no-balance.
type stopReason string

const (
	stopNone      stopReason = ""
	stopWin       stopReason = "stop-win"
	stopLoss      stopReason = "stop-loss"
	stopNoBalance stopReason = "no-balance"
)

func (r stopReason) status() string {
	switch r {
	case stopWin:
		return StatusOffStopWin
	case stopLoss:
		return StatusOffStopLoss
	case stopNoBalance:
		return StatusOffNoBalance
	default:
		return ""
	}
}
