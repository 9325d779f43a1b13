package executor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"galebot/internal/broker"
	"galebot/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) EstablishConnection(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockBroker) BuyAndCheckWin(ctx context.Context, order broker.Order) broker.Outcome {
	return m.Called(ctx, order).Get(0).(broker.Outcome)
}

func (m *mockBroker) RealBalance() (decimal.Decimal, bool) {
	args := m.Called()
	return args.Get(0).(decimal.Decimal), args.Bool(1)
}

func (m *mockBroker) DemoBalance() (decimal.Decimal, bool) {
	args := m.Called()
	return args.Get(0).(decimal.Decimal), args.Bool(1)
}

func (m *mockBroker) SSID() string {
	return m.Called().String(0)
}

func (m *mockBroker) Disconnect() {
	m.Called()
}

// fakeUserStore keeps the bot's own writes visible to its re-reads. The
// activeSeq slice scripts the external active flag, one value per User()
// call; the last value sticks.
type fakeUserStore struct {
	mu         sync.Mutex
	user       store.User
	activeSeq  []bool
	reads      int
	saves      []store.User
	transacted decimal.Decimal
	readErr    error
}

func newFakeUserStore(u store.User, activeSeq ...bool) *fakeUserStore {
	return &fakeUserStore{user: u, activeSeq: activeSeq}
}

func (f *fakeUserStore) User(ctx context.Context, id string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return store.User{}, f.readErr
	}
	u := f.user
	if len(f.activeSeq) > 0 {
		idx := f.reads
		if idx >= len(f.activeSeq) {
			idx = len(f.activeSeq) - 1
		}
		u.IsActive = f.activeSeq[idx]
	}
	f.reads++
	return u, nil
}

func (f *fakeUserStore) UpdateUser(ctx context.Context, u *store.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = *u
	f.saves = append(f.saves, *u)
	return nil
}

func (f *fakeUserStore) IncrementTransacted(ctx context.Context, id string, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transacted = f.transacted.Add(amount)
	return nil
}

func demoUser(balance decimal.Decimal, cfg store.StakingConfig) store.User {
	cfg.Mode = string(broker.Demo)
	return store.User{
		ID:          "u-1",
		Email:       "user@example.com",
		Broker:      store.BrokerCredentials{Name: "exnova", Email: "user@example.com", Password: "pw"},
		IsActive:    true,
		Status:      StatusAnalyzingMarket,
		DemoBalance: balance,
		RealBalance: decimal.NewFromInt(1),
		Config:      cfg,
	}
}

func win(v bool) *bool { return &v }

func lossOutcome() broker.Outcome {
	return broker.Outcome{Bought: true, Win: win(false), Gains: decimal.Zero}
}

func winOutcome(gains int64) broker.Outcome {
	return broker.Outcome{Bought: true, Win: win(true), Gains: decimal.NewFromInt(gains)}
}

var anyOrder = mock.AnythingOfType("broker.Order")

func TestOperateSingleLossKeepsUserActive(t *testing.T) {
	cfg := store.StakingConfig{
		Entry:          decimal.NewFromInt(50),
		Gales:          0,
		GaleMultiplier: decimal.NewFromInt(1),
		StopWin:        decimal.NewFromInt(1000),
		StopLoss:       decimal.Zero,
	}
	users := newFakeUserStore(demoUser(decimal.NewFromInt(100), cfg))

	api := new(mockBroker)
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(lossOutcome()).Once()
	api.On("Disconnect").Return().Once()

	bot := NewBot(api, users, users.user)
	ok := bot.Operate(context.Background(), Operation{Active: "EURUSD", Direction: broker.Call, Duration: 1})

	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(50).Equal(users.user.DemoBalance))
	assert.Equal(t, StatusAnalyzingEntry, users.user.Status)
	assert.True(t, users.user.IsActive)
	assert.True(t, decimal.NewFromInt(50).Equal(users.transacted))
	require.Len(t, users.user.Operations, 1)
	assert.True(t, decimal.NewFromInt(-50).Equal(users.user.Operations[0].Profit))
	api.AssertExpectations(t)
}

func TestOperateRefundsOnUnplacedOrder(t *testing.T) {
	cfg := store.StakingConfig{
		Entry:          decimal.NewFromInt(30),
		Gales:          2,
		GaleMultiplier: decimal.NewFromInt(2),
		StopWin:        decimal.NewFromInt(1000),
		StopLoss:       decimal.Zero,
	}
	users := newFakeUserStore(demoUser(decimal.NewFromInt(200), cfg))

	api := new(mockBroker)
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(broker.Outcome{Bought: false}).Once()
	api.On("Disconnect").Return().Once()

	bot := NewBot(api, users, users.user)
	ok := bot.Operate(context.Background(), Operation{Active: "EURUSD", Direction: broker.Put, Duration: 1})

	assert.False(t, ok)
	assert.True(t, decimal.NewFromInt(200).Equal(users.user.DemoBalance))
	assert.Empty(t, users.user.BalanceTrack)
	assert.Empty(t, users.user.Operations)
	assert.Equal(t, StatusAnalyzingEntry, users.user.Status)
	assert.True(t, users.transacted.IsZero(), "nothing was transacted")
	api.AssertExpectations(t)
}

func TestOperateGaleRecoversAfterLoss(t *testing.T) {
	cfg := store.StakingConfig{
		Entry:          decimal.NewFromInt(10),
		Gales:          2,
		GaleMultiplier: decimal.NewFromInt(2),
		StopWin:        decimal.NewFromInt(1000),
		StopLoss:       decimal.Zero,
	}
	users := newFakeUserStore(demoUser(decimal.NewFromInt(100), cfg))

	api := new(mockBroker)
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(lossOutcome()).Once()
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(winOutcome(38)).Once()
	api.On("Disconnect").Return().Once()

	bot := NewBot(api, users, users.user)
	ok := bot.Operate(context.Background(), Operation{Active: "EURUSD-OTC", Direction: broker.Call, Duration: 1})

	require.True(t, ok)
	// 100 - 10 - 20 + 38
	assert.True(t, decimal.NewFromInt(108).Equal(users.user.DemoBalance))
	assert.True(t, decimal.NewFromInt(30).Equal(users.transacted))
	require.Len(t, users.user.Operations, 2)
	assert.True(t, decimal.NewFromInt(20).Equal(users.user.Operations[1].Entry))
	assert.True(t, users.user.IsActive)
	api.AssertExpectations(t)
}

func TestOperatePushContinuesSequence(t *testing.T) {
	cfg := store.StakingConfig{
		Entry:          decimal.NewFromInt(10),
		Gales:          1,
		GaleMultiplier: decimal.NewFromInt(2),
		StopWin:        decimal.NewFromInt(1000),
		StopLoss:       decimal.Zero,
	}
	users := newFakeUserStore(demoUser(decimal.NewFromInt(100), cfg))

	// A push refunds the stake and the sequence keeps going.
	push := broker.Outcome{Bought: true, Win: nil, Gains: decimal.NewFromInt(10)}

	api := new(mockBroker)
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(push).Once()
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(winOutcome(38)).Once()
	api.On("Disconnect").Return().Once()

	bot := NewBot(api, users, users.user)
	ok := bot.Operate(context.Background(), Operation{Active: "EURUSD", Direction: broker.Call, Duration: 1})

	require.True(t, ok)
	// push: 100 - 10 + 10; win at gale 1: -20 + 38
	assert.True(t, decimal.NewFromInt(118).Equal(users.user.DemoBalance))
	require.Len(t, users.user.Operations, 2)
	assert.Nil(t, users.user.Operations[0].Win)
	api.AssertNumberOfCalls(t, "BuyAndCheckWin", 2)
	api.AssertExpectations(t)
}

func TestOperateStopWinBeatsStopLoss(t *testing.T) {
	// Both thresholds tripped by the same balance; stop-win has priority.
	cfg := store.StakingConfig{
		Entry:          decimal.NewFromInt(10),
		Gales:          3,
		GaleMultiplier: decimal.NewFromInt(2),
		StopWin:        decimal.NewFromInt(100),
		StopLoss:       decimal.NewFromInt(200),
	}
	users := newFakeUserStore(demoUser(decimal.NewFromInt(100), cfg))

	api := new(mockBroker)
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(winOutcome(19)).Once()
	api.On("Disconnect").Return().Once()

	bot := NewBot(api, users, users.user)
	ok := bot.Operate(context.Background(), Operation{Active: "EURUSD", Direction: broker.Call, Duration: 1})

	require.True(t, ok)
	assert.False(t, users.user.IsActive)
	assert.Equal(t, StatusOffStopWin, users.user.Status)
	api.AssertNumberOfCalls(t, "BuyAndCheckWin", 1)
	api.AssertExpectations(t)
}

func TestOperateStopLossDeactivates(t *testing.T) {
	cfg := store.StakingConfig{
		Entry:          decimal.NewFromInt(40),
		Gales:          3,
		GaleMultiplier: decimal.NewFromInt(1),
		StopWin:        decimal.NewFromInt(1000),
		StopLoss:       decimal.NewFromInt(70),
	}
	users := newFakeUserStore(demoUser(decimal.NewFromInt(100), cfg))

	api := new(mockBroker)
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(lossOutcome()).Once()
	api.On("Disconnect").Return().Once()

	bot := NewBot(api, users, users.user)
	ok := bot.Operate(context.Background(), Operation{Active: "EURUSD", Direction: broker.Put, Duration: 1})

	require.True(t, ok)
	// 100 - 40 = 60 <= 70
	assert.True(t, decimal.NewFromInt(60).Equal(users.user.DemoBalance))
	assert.False(t, users.user.IsActive)
	assert.Equal(t, StatusOffStopLoss, users.user.Status)
	api.AssertExpectations(t)
}

func TestOperateManualDeactivationBetweenGales(t *testing.T) {
	cfg := store.StakingConfig{
		Entry:          decimal.NewFromInt(10),
		Gales:          2,
		GaleMultiplier: decimal.NewFromInt(2),
		StopWin:        decimal.NewFromInt(1000),
		StopLoss:       decimal.Zero,
	}
	// Active for the first attempt's two checks, gone by the second
	// attempt's top-of-loop check.
	users := newFakeUserStore(demoUser(decimal.NewFromInt(100), cfg), true, true, false)

	api := new(mockBroker)
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(lossOutcome()).Once()
	api.On("Disconnect").Return().Once()

	bot := NewBot(api, users, users.user)
	ok := bot.Operate(context.Background(), Operation{Active: "EURUSD", Direction: broker.Call, Duration: 1})

	assert.False(t, ok)
	assert.True(t, decimal.NewFromInt(90).Equal(users.user.DemoBalance))
	assert.True(t, decimal.NewFromInt(10).Equal(users.transacted))
	api.AssertNumberOfCalls(t, "BuyAndCheckWin", 1)
	api.AssertExpectations(t)
}

func TestOperateInsufficientBalanceDeactivates(t *testing.T) {
	cfg := store.StakingConfig{
		Entry:          decimal.NewFromInt(50),
		Gales:          0,
		GaleMultiplier: decimal.NewFromInt(2),
		StopWin:        decimal.NewFromInt(1000),
		StopLoss:       decimal.NewFromInt(-100),
	}
	users := newFakeUserStore(demoUser(decimal.NewFromInt(20), cfg))

	api := new(mockBroker)
	api.On("Disconnect").Return().Once()

	bot := NewBot(api, users, users.user)
	ok := bot.Operate(context.Background(), Operation{Active: "EURUSD", Direction: broker.Call, Duration: 1})

	assert.False(t, ok)
	assert.False(t, users.user.IsActive)
	assert.Equal(t, StatusOffNoBalance, users.user.Status)
	assert.True(t, decimal.NewFromInt(20).Equal(users.user.DemoBalance))
	api.AssertNotCalled(t, "BuyAndCheckWin", mock.Anything, mock.Anything)
	api.AssertExpectations(t)
}

func TestOperateStoreOutageStopsBeforeBuying(t *testing.T) {
	cfg := store.StakingConfig{
		Entry:          decimal.NewFromInt(10),
		Gales:          0,
		GaleMultiplier: decimal.NewFromInt(2),
		StopWin:        decimal.NewFromInt(1000),
		StopLoss:       decimal.Zero,
	}
	users := newFakeUserStore(demoUser(decimal.NewFromInt(100), cfg))
	users.readErr = errors.New("store down")

	api := new(mockBroker)
	api.On("Disconnect").Return().Once()

	bot := NewBot(api, users, users.user)
	ok := bot.Operate(context.Background(), Operation{Active: "EURUSD", Direction: broker.Call, Duration: 1})

	assert.False(t, ok)
	api.AssertNotCalled(t, "BuyAndCheckWin", mock.Anything, mock.Anything)
	api.AssertExpectations(t)
}

func TestInitConnectFailureDeactivates(t *testing.T) {
	cfg := store.StakingConfig{Entry: decimal.NewFromInt(10), GaleMultiplier: decimal.NewFromInt(2)}
	users := newFakeUserStore(demoUser(decimal.NewFromInt(100), cfg))

	api := new(mockBroker)
	api.On("EstablishConnection", mock.Anything).Return(false).Once()

	bot := NewBot(api, users, users.user)
	ok := bot.Init(context.Background())

	assert.False(t, ok)
	assert.False(t, users.user.IsActive)
	assert.Equal(t, StatusOffConnectError, users.user.Status)
	api.AssertExpectations(t)
}

func TestInitRefreshesBalancesAndToken(t *testing.T) {
	cfg := store.StakingConfig{Entry: decimal.NewFromInt(10), GaleMultiplier: decimal.NewFromInt(2)}
	users := newFakeUserStore(demoUser(decimal.NewFromInt(100), cfg))

	api := new(mockBroker)
	api.On("EstablishConnection", mock.Anything).Return(true).Once()
	api.On("RealBalance").Return(decimal.NewFromInt(321), true)
	api.On("DemoBalance").Return(decimal.NewFromInt(9999), true)
	api.On("SSID").Return("fresh-token")

	bot := NewBot(api, users, users.user)
	ok := bot.Init(context.Background())

	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(321).Equal(users.user.RealBalance))
	assert.True(t, decimal.NewFromInt(9999).Equal(users.user.DemoBalance))
	assert.Equal(t, "fresh-token", users.user.Broker.SSID)
	api.AssertExpectations(t)
}
