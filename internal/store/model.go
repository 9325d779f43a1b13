package store

import (
	"encoding/json"

	"galebot/internal/logger"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type userModel struct {
	ID             string         `gorm:"column:id;primaryKey"`
	Email          string         `gorm:"column:email;uniqueIndex"`
	BrokerName     string         `gorm:"column:broker_name"`
	BrokerEmail    string         `gorm:"column:broker_email"`
	BrokerPassword string         `gorm:"column:broker_password"`
	BrokerSSID     string         `gorm:"column:broker_ssid"`
	IsActive       bool           `gorm:"column:is_active"`
	Status         string         `gorm:"column:status"`
	Balance        float64        `gorm:"column:balance"`
	RealBalance    float64        `gorm:"column:real_balance"`
	DemoBalance    float64        `gorm:"column:demo_balance"`
	Transacted     float64        `gorm:"column:transacted"`
	Mode           string         `gorm:"column:mode"`
	Entry          float64        `gorm:"column:entry"`
	Gales          int            `gorm:"column:gales"`
	GaleMultiplier float64        `gorm:"column:gale_multiplier"`
	StopWin        float64        `gorm:"column:stop_win"`
	StopLoss       float64        `gorm:"column:stop_loss"`
	Operations     datatypes.JSON `gorm:"column:operations;type:TEXT"`
	BalanceTrack   datatypes.JSON `gorm:"column:balance_track;type:TEXT"`
	CreatedAtUnix  int64          `gorm:"column:created_at"`
	UpdatedAtUnix  int64          `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type traderModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Name          string         `gorm:"column:name;uniqueIndex"`
	Gales         int            `gorm:"column:gales"`
	Trades        datatypes.JSON `gorm:"column:trades;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (traderModel) TableName() string { return "traders" }

func (m *userModel) toDomain() User {
	u := User{
		ID:    m.ID,
		Email: m.Email,
		Broker: BrokerCredentials{
			Name:     m.BrokerName,
			Email:    m.BrokerEmail,
			Password: m.BrokerPassword,
			SSID:     m.BrokerSSID,
		},
		IsActive:    m.IsActive,
		Status:      m.Status,
		Balance:     decimal.NewFromFloat(m.Balance),
		RealBalance: decimal.NewFromFloat(m.RealBalance),
		DemoBalance: decimal.NewFromFloat(m.DemoBalance),
		Transacted:  decimal.NewFromFloat(m.Transacted),
		Config: StakingConfig{
			Mode:           m.Mode,
			Entry:          decimal.NewFromFloat(m.Entry),
			Gales:          m.Gales,
			GaleMultiplier: decimal.NewFromFloat(m.GaleMultiplier),
			StopWin:        decimal.NewFromFloat(m.StopWin),
			StopLoss:       decimal.NewFromFloat(m.StopLoss),
		},
	}
	if len(m.Operations) > 0 {
		if err := json.Unmarshal(m.Operations, &u.Operations); err != nil {
			logger.Warnf("store: corrupt operations for user %s: %v", m.ID, err)
		}
	}
	if len(m.BalanceTrack) > 0 {
		if err := json.Unmarshal(m.BalanceTrack, &u.BalanceTrack); err != nil {
			logger.Warnf("store: corrupt balance track for user %s: %v", m.ID, err)
		}
	}
	return u
}

func (u *User) toModel() (*userModel, error) {
	ops, err := json.Marshal(u.Operations)
	if err != nil {
		return nil, err
	}
	track, err := json.Marshal(u.BalanceTrack)
	if err != nil {
		return nil, err
	}
	return &userModel{
		ID:             u.ID,
		Email:          u.Email,
		BrokerName:     u.Broker.Name,
		BrokerEmail:    u.Broker.Email,
		BrokerPassword: u.Broker.Password,
		BrokerSSID:     u.Broker.SSID,
		IsActive:       u.IsActive,
		Status:         u.Status,
		Balance:        u.Balance.InexactFloat64(),
		RealBalance:    u.RealBalance.InexactFloat64(),
		DemoBalance:    u.DemoBalance.InexactFloat64(),
		Transacted:     u.Transacted.InexactFloat64(),
		Mode:           u.Config.Mode,
		Entry:          u.Config.Entry.InexactFloat64(),
		Gales:          u.Config.Gales,
		GaleMultiplier: u.Config.GaleMultiplier.InexactFloat64(),
		StopWin:        u.Config.StopWin.InexactFloat64(),
		StopLoss:       u.Config.StopLoss.InexactFloat64(),
		Operations:     datatypes.JSON(ops),
		BalanceTrack:   datatypes.JSON(track),
	}, nil
}

func (m *traderModel) toDomain() Trader {
	tr := Trader{ID: m.ID, Name: m.Name, Gales: m.Gales}
	if len(m.Trades) > 0 {
		if err := json.Unmarshal(m.Trades, &tr.Trades); err != nil {
			logger.Warnf("store: corrupt trades for trader %s: %v", m.ID, err)
		}
	}
	return tr
}
