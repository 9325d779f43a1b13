package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	cmdSend      = "sendMessage"
	cmdSubscribe = "subscribeMessage"
)

// Endpoint carries the configurable part of a broker descriptor. Host falls
// back to the broker's production host when empty.
type Endpoint struct {
	Host    string
	Timeout time.Duration
}

func (e Endpoint) withDefaults(host string) Endpoint {
	if strings.TrimSpace(e.Host) == "" {
		e.Host = host
	}
	if e.Timeout <= 0 {
		e.Timeout = 30 * time.Second
	}
	return e
}

// Instrument is the concrete tradable id produced by pre-placement
// discovery. Brokers that place directly leave it zero.
type Instrument struct {
	Index  int64
	Symbol string
}

// PlacementInput is everything a descriptor needs to build its
// order-placement frame.
type PlacementInput struct {
	Order      Order
	ActiveID   int
	BalanceID  int64
	Expires    int64
	Kind       OptionKind
	Instrument Instrument
}

// OutcomeSpec describes how a broker reports a settled position and how its
// payload maps onto the uniform tri-state result.
type OutcomeSpec struct {
	Event       string
	FilterByID  bool          // match the outcome event against the placed order id
	SettleDelay time.Duration // fixed pause before arming the unfiltered wait
	FixedWindow time.Duration // overrides the per-duration window when set
	Margin      time.Duration
	Normalize   func(payload gjson.Result, stake decimal.Decimal) (win *bool, gains decimal.Decimal)
}

func (o OutcomeSpec) window(durationMin int) time.Duration {
	if o.FixedWindow > 0 {
		return o.FixedWindow + o.Margin
	}
	return time.Duration(durationMin)*time.Minute + o.Margin
}

// Descriptor parameterizes the generic client engine with one broker's
// command shapes and response schemas. The two supported brokers are
// near-identical state machines differing only here.
type Descriptor struct {
	Name         string
	WebsocketURL string
	AuthURL      string
	Timeout      time.Duration

	// Discover runs the broker's instrument lookup + price subscription
	// before an order can be placed; nil for brokers that place directly.
	Discover func(ctx context.Context, c *Client, activeID int, direction Direction) (Instrument, bool)

	// PrePlace fires any subscriptions the broker wants armed before the
	// placement command, with no response awaited.
	PrePlace func(c *Client, in PlacementInput)

	// Placement builds the order frame: command tag plus body.
	Placement func(in PlacementInput) (string, any)

	PlacedEvent string
	Outcome     OutcomeSpec
}

// ByName selects a descriptor by its config name.
func ByName(name string, ep Endpoint) (Descriptor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "exnova":
		return Exnova(ep), nil
	case "bullex":
		return Bullex(ep), nil
	default:
		return Descriptor{}, fmt.Errorf("unknown broker %q", name)
	}
}

// Exnova trades plain binary options: a single open-option command, with the
// settled outcome event carrying the order id for filtering.
func Exnova(ep Endpoint) Descriptor {
	ep = ep.withDefaults("trade.exnova.com")
	return Descriptor{
		Name:         "exnova",
		WebsocketURL: fmt.Sprintf("wss://%s/echo/websocket", ep.Host),
		AuthURL:      fmt.Sprintf("https://api.%s/v2", ep.Host),
		Timeout:      ep.Timeout,
		Placement: func(in PlacementInput) (string, any) {
			return cmdSend, map[string]any{
				"name":    "binary-options.open-option",
				"version": "1.0",
				"body": map[string]any{
					"price":           in.Order.Price.InexactFloat64(),
					"active_id":       in.ActiveID,
					"expired":         in.Expires,
					"direction":       strings.ToLower(string(in.Order.Direction)),
					"option_type_id":  int(in.Kind),
					"user_balance_id": in.BalanceID,
				},
			}
		},
		PlacedEvent: "socket-option-opened",
		Outcome: OutcomeSpec{
			Event:      "socket-option-closed",
			FilterByID: true,
			Margin:     ep.Timeout,
			Normalize: func(payload gjson.Result, _ decimal.Decimal) (*bool, decimal.Decimal) {
				gains, err := decimal.NewFromString(payload.Get("profit_amount").String())
				if err != nil {
					gains = decimal.Zero
				}
				switch payload.Get("win").String() {
				case "win":
					return boolPtr(true), gains
				case "equal":
					return nil, gains
				default:
					return boolPtr(false), gains
				}
			},
		},
	}
}

// Bullex trades digital options: instrument lookup, then a price
// subscription to obtain a tradable symbol, then placement. The settled
// outcome arrives untagged, so it is awaited unfiltered after a fixed
// settle delay.
func Bullex(ep Endpoint) Descriptor {
	ep = ep.withDefaults("trade.bull-ex.com")
	return Descriptor{
		Name:         "bullex",
		WebsocketURL: fmt.Sprintf("wss://ws.%s/echo/websocket", ep.Host),
		AuthURL:      fmt.Sprintf("https://api.%s/v2", ep.Host),
		Timeout:      ep.Timeout,
		Discover:     bullexDiscover,
		PrePlace: func(c *Client, in PlacementInput) {
			c.sess.Send(cmdSubscribe, map[string]any{
				"name":    "portfolio.position-changed",
				"version": "3.0",
				"params": map[string]any{
					"routingFilters": map[string]any{
						"user_balance_id": in.BalanceID,
						"instrument_type": "digital-option",
					},
				},
			})
		},
		Placement: func(in PlacementInput) (string, any) {
			return cmdSend, map[string]any{
				"name":    "digital-options.place-digital-option",
				"version": "2.0",
				"body": map[string]any{
					"amount":           in.Order.Price.String(),
					"asset_id":         in.ActiveID,
					"option_type_id":   int(in.Kind),
					"user_balance_id":  in.BalanceID,
					"instrument_id":    in.Instrument.Symbol,
					"instrument_index": in.Instrument.Index,
				},
			}
		},
		PlacedEvent: "digital-option-placed",
		Outcome: OutcomeSpec{
			Event:       "position-changed",
			SettleDelay: 10 * time.Second,
			FixedWindow: 10 * time.Minute,
			Margin:      ep.Timeout,
			Normalize: func(payload gjson.Result, stake decimal.Decimal) (*bool, decimal.Decimal) {
				gains := decimal.NewFromFloat(payload.Get("close_profit").Float())
				if gains.Equal(stake) {
					return nil, gains
				}
				return boolPtr(gains.GreaterThan(decimal.Zero)), gains
			},
		},
	}
}

func bullexDiscover(ctx context.Context, c *Client, activeID int, direction Direction) (Instrument, bool) {
	lookup, ok := c.request(ctx, "instruments", cmdSend, map[string]any{
		"name":    "digital-option-instruments.get-instruments",
		"version": "1.0",
		"body": map[string]any{
			"instrument_type": "digital-option",
			"asset_id":        activeID,
		},
	}, nil)
	if !ok {
		return Instrument{}, false
	}
	index := lookup.Get("instruments.0.index").Int()

	prices, ok := c.request(ctx, "client-price-generated", cmdSubscribe, map[string]any{
		"name":    "price-splitter.client-price-generated",
		"version": "1.0",
		"params": map[string]any{
			"routingFilters": map[string]any{
				"instrument_type":  "digital-option",
				"asset_id":         activeID,
				"instrument_index": index,
			},
		},
	}, nil)
	if !ok {
		return Instrument{}, false
	}

	rows := prices.Get("prices").Array()
	if len(rows) == 0 {
		return Instrument{}, false
	}
	symbol := rows[len(rows)-1].Get(string(direction) + ".symbol").String()
	if symbol == "" {
		return Instrument{}, false
	}
	return Instrument{Index: index, Symbol: symbol}, true
}
