package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/lakbychance/guess-btc/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database migrated to the full schema.
// The shared-cache name keeps GORM's pooled connections on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	return gdb
}

// stubPriceSource returns a fixed price and counts how often it was consulted
type stubPriceSource struct {
	price float64
	err   error
	calls int
}

func (s *stubPriceSource) CurrentPrice(ctx context.Context) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.price, nil
}
