package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuditLog(t *testing.T) *AuditLog {
	t.Helper()
	l, err := NewAuditLog(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAuditLogAppendAndRecent(t *testing.T) {
	l := newTestAuditLog(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, AuditEntry{
		UserID: "u-1", Active: "EURUSD", Direction: "call", Duration: 1,
		Stake: decimal.NewFromInt(10), Success: true,
	}))
	require.NoError(t, l.Append(ctx, AuditEntry{
		UserID: "u-2", Active: "GBPUSD", Direction: "put", Duration: 5,
		Stake: decimal.RequireFromString("12.5"), Success: false,
	}))

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Most recent first.
	assert.Equal(t, "u-2", entries[0].UserID)
	assert.False(t, entries[0].Success)
	assert.True(t, decimal.RequireFromString("12.5").Equal(entries[0].Stake))
	assert.Equal(t, "u-1", entries[1].UserID)
	assert.True(t, entries[1].Success)
	assert.NotZero(t, entries[0].CreatedAt)
}

func TestAuditLogRecentLimit(t *testing.T) {
	l := newTestAuditLog(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(ctx, AuditEntry{
			UserID: "u-1", Active: "EURUSD", Direction: "call", Duration: 1,
			Stake: decimal.NewFromInt(int64(i + 1)),
		}))
	}
	entries, err := l.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestAuditLogClosed(t *testing.T) {
	l := newTestAuditLog(t)
	require.NoError(t, l.Close())
	err := l.Append(context.Background(), AuditEntry{UserID: "u-1"})
	assert.Error(t, err)
	_, err = l.Recent(context.Background(), 1)
	assert.Error(t, err)
}

func TestAuditLogEmptyPath(t *testing.T) {
	_, err := NewAuditLog("")
	assert.Error(t, err)
}
