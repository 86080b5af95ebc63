package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormCatalogMetricsProvider(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE users (id TEXT PRIMARY KEY, role TEXT, active BOOLEAN)`,
		`CREATE TABLE products (id TEXT PRIMARY KEY, seller_id TEXT, active BOOLEAN)`,
		`INSERT INTO users VALUES ('s1', 'SELLER', true), ('s2', 'SELLER', false), ('c1', 'CLIENT', true)`,
		`INSERT INTO products VALUES ('p1', 's1', true), ('p2', 's1', false), ('p3', 's2', true)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	provider := NewGormCatalogMetricsProvider(db)
	ctx := context.Background()

	products, err := provider.CountActiveProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), products)

	sellers, err := provider.CountActiveSellers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sellers)
}
