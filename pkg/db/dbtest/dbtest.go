// Package dbtest opens throwaway sqlite databases carrying the service schema.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/condo-backend/pkg/db"
)

// Option tweaks the gorm configuration of a test database.
type Option func(*gorm.Config)

// WithNow pins gorm's clock so autoCreateTime/autoUpdateTime columns are deterministic.
func WithNow(now func() time.Time) Option {
	return func(cfg *gorm.Config) {
		cfg.NowFunc = now
	}
}

// New returns a client backed by a private in-memory sqlite database.
func New(t testing.TB, opts ...Option) *db.Client {
	t.Helper()

	cfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	client := db.FromGorm(conn)
	if err := client.EnsureSQLiteSchema(context.Background()); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
