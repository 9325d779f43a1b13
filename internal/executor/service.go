package executor

import (
	"context"
	"encoding/json"
	"strings"

	"galebot/internal/broker"
	"galebot/internal/logger"
	"galebot/internal/store"

	"github.com/shopspring/decimal"
)

// BrokerFactory builds a broker client for a named broker and a set of
// credentials. Injected so tests can substitute doubles.
type BrokerFactory func(name string, creds broker.Credentials) (BrokerAPI, error)

// DefaultFactory builds real clients from configured endpoints.
func DefaultFactory(endpoints map[string]broker.Endpoint) BrokerFactory {
	return func(name string, creds broker.Credentials) (BrokerAPI, error) {
		desc, err := broker.ByName(name, endpoints[strings.ToLower(strings.TrimSpace(name))])
		if err != nil {
			return nil, err
		}
		return broker.NewClient(desc, creds), nil
	}
}

// TraderAccount is the injected operator account for the shared-demo
// trading flow.
type TraderAccount struct {
	Broker   string
	Email    string
	Password string
	Stake    decimal.Decimal
}

// Store is the persistence surface the service needs.
type Store interface {
	UserStore
	TraderStore
}

// Service wires the staking machine to persistence and broker clients; the
// HTTP facade and the scheduler both drive it.
type Service struct {
	store         Store
	factory       BrokerFactory
	defaultBroker string
	trader        TraderAccount
	audit         *store.AuditLog
}

// SetAuditLog enables the append-only journal of operate calls.
func (s *Service) SetAuditLog(l *store.AuditLog) {
	s.audit = l
}

func NewService(st Store, factory BrokerFactory, defaultBroker string, trader TraderAccount) *Service {
	if defaultBroker == "" {
		defaultBroker = "exnova"
	}
	return &Service{store: st, factory: factory, defaultBroker: defaultBroker, trader: trader}
}

// AuthCheck is the result of a credential check against the default
// broker.
type AuthCheck struct {
	Success     bool            `json:"success"`
	SSID        string          `json:"ssid,omitempty"`
	RealBalance decimal.Decimal `json:"realBalance"`
	DemoBalance decimal.Decimal `json:"demoBalance"`
}

// MarshalJSON emits the balances as JSON numbers; decimal's default quoted
// strings would break clients of the authenticate route.
func (a AuthCheck) MarshalJSON() ([]byte, error) {
	type wire struct {
		Success     bool        `json:"success"`
		SSID        string      `json:"ssid,omitempty"`
		RealBalance json.Number `json:"realBalance"`
		DemoBalance json.Number `json:"demoBalance"`
	}
	return json.Marshal(wire{
		Success:     a.Success,
		SSID:        a.SSID,
		RealBalance: json.Number(a.RealBalance.String()),
		DemoBalance: json.Number(a.DemoBalance.String()),
	})
}

// Authenticate verifies credentials by establishing a throwaway session
// and reporting the issued token plus balance snapshots.
func (s *Service) Authenticate(ctx context.Context, email, password string) AuthCheck {
	api, err := s.factory(s.defaultBroker, broker.Credentials{Email: email, Password: password})
	if err != nil {
		return AuthCheck{}
	}
	defer api.Disconnect()

	if !api.EstablishConnection(ctx) {
		return AuthCheck{}
	}
	real, _ := api.RealBalance()
	demo, _ := api.DemoBalance()
	return AuthCheck{Success: true, SSID: api.SSID(), RealBalance: real, DemoBalance: demo}
}

// Operate runs one staking sequence for a stored user.
func (s *Service) Operate(ctx context.Context, userID string, op Operation) (bool, error) {
	user, err := s.store.User(ctx, userID)
	if err != nil {
		return false, err
	}
	api, err := s.factory(user.Broker.Name, broker.Credentials{
		Email:    user.Broker.Email,
		Password: user.Broker.Password,
		SSID:     user.Broker.SSID,
	})
	if err != nil {
		return false, err
	}

	bot := NewBot(api, s.store, user)
	ok := bot.Init(ctx) && bot.Operate(ctx, op)
	s.recordAudit(ctx, user, op, ok)
	return ok, nil
}

func (s *Service) recordAudit(ctx context.Context, user store.User, op Operation, ok bool) {
	if s.audit == nil {
		return
	}
	err := s.audit.Append(ctx, store.AuditEntry{
		UserID:    user.ID,
		Active:    op.Active,
		Direction: string(op.Direction),
		Duration:  op.Duration,
		Stake:     user.Config.Entry,
		Success:   ok,
	})
	if err != nil {
		logger.Errorf("executor: appending audit entry for %s failed: %v", user.ID, err)
	}
}

// AccountTrader mirrors an operation on the shared demo account of a named
// trader.
func (s *Service) AccountTrader(ctx context.Context, traderName string, op Operation) (bool, error) {
	trader, err := s.store.TraderByName(ctx, traderName)
	if err != nil {
		return false, err
	}
	api, err := s.factory(s.trader.Broker, broker.Credentials{
		Email:    s.trader.Email,
		Password: s.trader.Password,
	})
	if err != nil {
		return false, err
	}
	return Trade(ctx, api, s.store, trader, op, s.trader.Stake), nil
}
