package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists user and trader records on sqlite.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return newStore(db)
}

func newStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&userModel{}, &traderModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser inserts a user, assigning an id when absent.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m, err := u.toModel()
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	m.CreatedAtUnix = now
	m.UpdatedAtUnix = now
	return s.db.WithContext(ctx).Create(m).Error
}

// User loads one user by id.
func (s *Store) User(ctx context.Context, id string) (User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return User{}, err
	}
	return m.toDomain(), nil
}

// UpdateUser writes back every mutable user field.
func (s *Store) UpdateUser(ctx context.Context, u *User) error {
	m, err := u.toModel()
	if err != nil {
		return err
	}
	m.UpdatedAtUnix = time.Now().Unix()
	return s.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"broker_ssid":   m.BrokerSSID,
			"is_active":     m.IsActive,
			"status":        m.Status,
			"balance":       m.Balance,
			"real_balance":  m.RealBalance,
			"demo_balance":  m.DemoBalance,
			"operations":    m.Operations,
			"balance_track": m.BalanceTrack,
			"updated_at":    m.UpdatedAtUnix,
		}).Error
}

// IncrementTransacted atomically adds amount to the user's cumulative
// transacted counter.
func (s *Store) IncrementTransacted(ctx context.Context, id string, amount decimal.Decimal) error {
	return s.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		UpdateColumn("transacted", gorm.Expr("transacted + ?", amount.InexactFloat64())).
		Error
}

// ActiveUsers lists users that are active and currently in the given
// status, the dispatch filter used by the scheduler.
func (s *Store) ActiveUsers(ctx context.Context, status string) ([]User, error) {
	var models []userModel
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND status = ?", true, status).
		Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]User, 0, len(models))
	for i := range models {
		users = append(users, models[i].toDomain())
	}
	return users, nil
}

// CreateTrader inserts a trader, assigning an id when absent.
func (s *Store) CreateTrader(ctx context.Context, tr *Trader) error {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	trades, err := json.Marshal(tr.Trades)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	return s.db.WithContext(ctx).Create(&traderModel{
		ID:            tr.ID,
		Name:          tr.Name,
		Gales:         tr.Gales,
		Trades:        datatypes.JSON(trades),
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}).Error
}

// TraderByName loads one trader by display name.
func (s *Store) TraderByName(ctx context.Context, name string) (Trader, error) {
	var m traderModel
	if err := s.db.WithContext(ctx).First(&m, "name = ?", name).Error; err != nil {
		return Trader{}, err
	}
	return m.toDomain(), nil
}

// AppendTrade appends one trade record to a trader inside a transaction.
func (s *Store) AppendTrade(ctx context.Context, traderID string, trade TradeRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m traderModel
		if err := tx.First(&m, "id = ?", traderID).Error; err != nil {
			return err
		}
		tr := m.toDomain()
		tr.Trades = append(tr.Trades, trade)
		trades, err := json.Marshal(tr.Trades)
		if err != nil {
			return err
		}
		return tx.Model(&traderModel{}).
			Where("id = ?", traderID).
			Updates(map[string]any{
				"trades":     datatypes.JSON(trades),
				"updated_at": time.Now().Unix(),
			}).Error
	})
}
