package executor

import (
	"context"
	"encoding/json"
	"testing"

	"galebot/internal/broker"
	"galebot/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	*fakeUserStore
	*fakeTraderStore
}

func staticFactory(api BrokerAPI, capture *broker.Credentials) BrokerFactory {
	return func(name string, creds broker.Credentials) (BrokerAPI, error) {
		if capture != nil {
			*capture = creds
		}
		return api, nil
	}
}

func TestAuthenticateReportsBalancesAndToken(t *testing.T) {
	api := new(mockBroker)
	api.On("EstablishConnection", mock.Anything).Return(true).Once()
	api.On("RealBalance").Return(decimal.NewFromInt(150), true)
	api.On("DemoBalance").Return(decimal.NewFromInt(10000), true)
	api.On("SSID").Return("issued-token")
	api.On("Disconnect").Return().Once()

	var creds broker.Credentials
	svc := NewService(nil, staticFactory(api, &creds), "exnova", TraderAccount{})

	res := svc.Authenticate(context.Background(), "user@example.com", "pw")

	require.True(t, res.Success)
	assert.Equal(t, "issued-token", res.SSID)
	assert.True(t, decimal.NewFromInt(150).Equal(res.RealBalance))
	assert.True(t, decimal.NewFromInt(10000).Equal(res.DemoBalance))
	assert.Equal(t, "user@example.com", creds.Email)
	assert.Empty(t, creds.SSID)
	api.AssertExpectations(t)
}

func TestAuthCheckMarshalsBalancesAsNumbers(t *testing.T) {
	res := AuthCheck{
		Success:     true,
		SSID:        "tok",
		RealBalance: decimal.NewFromInt(150),
		DemoBalance: decimal.RequireFromString("10000.5"),
	}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"realBalance":150`)
	assert.Contains(t, string(data), `"demoBalance":10000.5`)
}

func TestAuthenticateFailureHasNoToken(t *testing.T) {
	api := new(mockBroker)
	api.On("EstablishConnection", mock.Anything).Return(false).Once()
	api.On("Disconnect").Return().Once()

	svc := NewService(nil, staticFactory(api, nil), "exnova", TraderAccount{})

	res := svc.Authenticate(context.Background(), "user@example.com", "bad")

	assert.False(t, res.Success)
	assert.Empty(t, res.SSID)
	api.AssertExpectations(t)
}

func TestOperateUsesStoredCredentials(t *testing.T) {
	cfg := store.StakingConfig{
		Entry:          decimal.NewFromInt(10),
		Gales:          0,
		GaleMultiplier: decimal.NewFromInt(1),
		StopWin:        decimal.NewFromInt(1000),
		StopLoss:       decimal.Zero,
	}
	user := demoUser(decimal.NewFromInt(100), cfg)
	user.Broker.SSID = "stored-token"
	st := fakeStore{fakeUserStore: newFakeUserStore(user), fakeTraderStore: &fakeTraderStore{}}

	api := new(mockBroker)
	api.On("EstablishConnection", mock.Anything).Return(true).Once()
	api.On("RealBalance").Return(decimal.NewFromInt(1), true)
	api.On("DemoBalance").Return(decimal.NewFromInt(100), true)
	api.On("SSID").Return("stored-token")
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(winOutcome(19)).Once()
	api.On("Disconnect").Return().Once()

	var creds broker.Credentials
	svc := NewService(st, staticFactory(api, &creds), "exnova", TraderAccount{})

	ok, err := svc.Operate(context.Background(), "u-1", Operation{Active: "EURUSD", Direction: broker.Call, Duration: 1})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "stored-token", creds.SSID)
	assert.Equal(t, "user@example.com", creds.Email)
	api.AssertExpectations(t)
}

func TestAccountTraderUsesConfiguredAccount(t *testing.T) {
	st := fakeStore{
		fakeUserStore:   newFakeUserStore(store.User{}),
		fakeTraderStore: &fakeTraderStore{trader: store.Trader{ID: "t-1", Name: "top-trader", Gales: 0}},
	}

	api := new(mockBroker)
	api.On("EstablishConnection", mock.Anything).Return(true).Once()
	api.On("BuyAndCheckWin", mock.Anything, anyOrder).Return(winOutcome(18)).Once()
	api.On("Disconnect").Return().Once()

	var creds broker.Credentials
	account := TraderAccount{Broker: "bullex", Email: "ops@example.com", Password: "pw", Stake: decimal.NewFromInt(10)}
	svc := NewService(st, staticFactory(api, &creds), "exnova", account)

	ok, err := svc.AccountTrader(context.Background(), "top-trader", Operation{Active: "EURUSD", Direction: broker.Put, Duration: 1})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ops@example.com", creds.Email)
	require.Len(t, st.fakeTraderStore.appends, 1)
	api.AssertExpectations(t)
}
