package broker

// Actives maps asset symbols to the numeric active ids both brokers use on
// the wire. The -OTC entries are the weekend variants of the same pairs.
var Actives = map[string]int{
	"EURUSD": 1,
	"EURGBP": 2,
	"GBPJPY": 3,
	"EURJPY": 4,
	"GBPUSD": 5,
	"USDJPY": 6,
	"AUDCAD": 7,
	"NZDUSD": 8,
	"USDCHF": 10,
	"AUDUSD": 99,
	"USDCAD": 100,
	"EURAUD": 101,

	"EURUSD-OTC": 76,
	"EURGBP-OTC": 77,
	"USDCHF-OTC": 78,
	"EURJPY-OTC": 79,
	"NZDUSD-OTC": 80,
	"GBPUSD-OTC": 81,
	"GBPJPY-OTC": 84,
	"USDJPY-OTC": 85,
	"AUDCAD-OTC": 86,
}

// ActiveID resolves an asset symbol to its wire id.
func ActiveID(symbol string) (int, bool) {
	id, ok := Actives[symbol]
	return id, ok
}
