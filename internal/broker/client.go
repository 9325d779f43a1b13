package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"galebot/internal/event"
	"galebot/internal/logger"
	"galebot/internal/session"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Credentials are the stored broker login of one user; SSID is the last
// session token the broker issued, possibly stale.
type Credentials struct {
	Email    string
	Password string
	SSID     string
}

// Client is the generic broker engine. One Client owns one live session and
// serves one trade flow at a time; the descriptor supplies everything
// broker-specific.
type Client struct {
	desc  Descriptor
	creds Credentials
	bus   *event.Bus
	sess  *session.Session
	httpc *http.Client

	balances *Balances
}

func NewClient(desc Descriptor, creds Credentials) *Client {
	bus := event.NewBus()
	return &Client{
		desc:  desc,
		creds: creds,
		bus:   bus,
		sess:  session.New(session.Config{URL: desc.WebsocketURL, ConnectTimeout: desc.Timeout}, bus),
		httpc: &http.Client{Timeout: desc.Timeout},
	}
}

func (c *Client) SSID() string { return c.creds.SSID }

func (c *Client) RealBalance() (decimal.Decimal, bool) {
	if c.balances == nil {
		return decimal.Zero, false
	}
	return c.balances.Real.Amount, true
}

func (c *Client) DemoBalance() (decimal.Decimal, bool) {
	if c.balances == nil {
		return decimal.Zero, false
	}
	return c.balances.Demo.Amount, true
}

func (c *Client) Disconnect() { c.sess.Disconnect() }

// IsConnected reflects the live session's transport state.
func (c *Client) IsConnected() bool { return c.sess.IsConnected() }

// request arms a wait for eventName, sends the command as the triggering
// side effect, and blocks until the response or the descriptor timeout.
func (c *Client) request(ctx context.Context, eventName, tag string, body any, pred event.Predicate) (gjson.Result, bool) {
	return c.bus.Wait(ctx, eventName, c.desc.Timeout, func() {
		c.sess.Send(tag, body)
	}, pred)
}

// Authenticate performs the stateless credential exchange over HTTP,
// independent of the live session. Failures of any kind collapse to an
// unsuccessful result.
func (c *Client) Authenticate(ctx context.Context, email, password string) AuthResult {
	payload, _ := json.Marshal(map[string]string{
		"identifier": email,
		"password":   password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.desc.AuthURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return AuthResult{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		logger.Warnf("broker %s: authenticate request failed: %v", c.desc.Name, err)
		return AuthResult{}
	}
	defer resp.Body.Close()

	var body struct {
		Code string `json:"code"`
		SSID string `json:"ssid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		logger.Warnf("broker %s: authenticate decode failed: %v", c.desc.Name, err)
		return AuthResult{}
	}
	return AuthResult{Success: body.Code == "success", SSID: body.SSID}
}

// validateSSID sends the known session token and waits for the profile
// event that carries the account balances.
func (c *Client) validateSSID(ctx context.Context) bool {
	if c.creds.SSID == "" {
		return false
	}
	profile, ok := c.request(ctx, "profile", "ssid", c.creds.SSID, nil)
	if !ok {
		return false
	}
	balances := profile.Get("balances").Array()
	if len(balances) < 2 {
		return false
	}
	c.balances = &Balances{
		Real: Balance{ID: balances[0].Get("id").Int(), Amount: decimal.NewFromFloat(balances[0].Get("amount").Float())},
		Demo: Balance{ID: balances[1].Get("id").Int(), Amount: decimal.NewFromFloat(balances[1].Get("amount").Float())},
	}
	return true
}

// EstablishConnection opens the session, waits for the server clock to
// sync, then validates the known session token. When validation fails it
// authenticates with the stored credentials and retries the validation
// exactly once; there is no further retry. A failure after the socket
// opened closes it again, so no read loop outlives a failed establishment.
func (c *Client) EstablishConnection(ctx context.Context) bool {
	if !c.sess.Connect(ctx) {
		return false
	}

	c.bus.Wait(ctx, "timeSync", c.desc.Timeout, nil, nil)
	if _, ok := c.sess.ServerNow(); !ok {
		logger.Warnf("broker %s: server clock never synced", c.desc.Name)
		c.sess.Disconnect()
		return false
	}

	if c.validateSSID(ctx) {
		return true
	}

	auth := c.Authenticate(ctx, c.creds.Email, c.creds.Password)
	logger.Infof("broker %s: fresh authentication success=%v", c.desc.Name, auth.Success)
	if !auth.Success {
		c.sess.Disconnect()
		return false
	}
	c.creds.SSID = auth.SSID
	if c.validateSSID(ctx) {
		return true
	}
	c.sess.Disconnect()
	return false
}

// Buy runs the descriptor's command sequence for one order. Any awaited
// step that times out short-circuits to a not-bought result; abandoned
// subscriptions carry no broker-side cost and are not rolled back.
//
// Calling Buy before the session clock and balances are established is a
// contract violation and panics.
func (c *Client) Buy(ctx context.Context, order Order) BuyResult {
	serverNow, clockOK := c.sess.ServerNow()
	if !clockOK || c.balances == nil {
		panic("broker: buy called before connection is established")
	}

	activeID, ok := ActiveID(order.Active)
	if !ok {
		logger.Errorf("broker %s: unknown active %q", c.desc.Name, order.Active)
		return BuyResult{}
	}

	var inst Instrument
	if c.desc.Discover != nil {
		inst, ok = c.desc.Discover(ctx, c, activeID, order.Direction)
		if !ok {
			return BuyResult{}
		}
	}

	expires, kind := ExpirationTime(serverNow.Unix(), order.Duration)
	in := PlacementInput{
		Order:      order,
		ActiveID:   activeID,
		BalanceID:  c.balances.ForMode(order.Mode).ID,
		Expires:    expires,
		Kind:       kind,
		Instrument: inst,
	}

	if c.desc.PrePlace != nil {
		c.desc.PrePlace(c, in)
	}

	tag, body := c.desc.Placement(in)
	placed, ok := c.request(ctx, c.desc.PlacedEvent, tag, body, nil)
	if !ok {
		return BuyResult{}
	}
	return BuyResult{Bought: true, ID: placed.Get("id").Int()}
}

// BuyAndCheckWin places the order and waits for its settled outcome,
// normalized to the uniform tri-state result. An outcome wait that times
// out after a successful placement is reported as not bought: the true
// result is unknown on our side and is not reconciled.
func (c *Client) BuyAndCheckWin(ctx context.Context, order Order) Outcome {
	placed := c.Buy(ctx, order)
	if !placed.Bought {
		return Outcome{}
	}

	spec := c.desc.Outcome
	if spec.SettleDelay > 0 {
		select {
		case <-time.After(spec.SettleDelay):
		case <-ctx.Done():
			return Outcome{}
		}
	}

	var pred event.Predicate
	if spec.FilterByID {
		pred = func(r gjson.Result) bool { return r.Get("id").Int() == placed.ID }
	}

	payload, ok := c.bus.Wait(ctx, spec.Event, spec.window(order.Duration), nil, pred)
	if !ok {
		return Outcome{}
	}

	win, gains := spec.Normalize(payload, order.Price)
	return Outcome{Bought: true, Win: win, Gains: gains}
}
