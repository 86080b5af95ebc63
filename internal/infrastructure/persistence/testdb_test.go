package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupMarketplaceTestDB opens an in-memory SQLite database with the marketplace tables.
// A single connection keeps every query on the same in-memory database.
func setupMarketplaceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.UserModel{},
		&models.ProductModel{},
		&models.CartItemModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
	))
	return db
}

// newMockPostgresDB returns a GORM postgres handle backed by sqlmock
func newMockPostgresDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role identity.Role) *identity.User {
	t.Helper()
	user, err := identity.NewUser(email, "secret123", "User "+email, role)
	require.NoError(t, err)
	require.NoError(t, NewGormUserRepository(db).Save(context.Background(), user))
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, name, price string, publishedAt time.Time) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(sellerID, catalog.ProductInput{
		Name:        name,
		Description: "Descrição de " + name,
		ImageURL:    "https://img.example.com/" + name + ".png",
		Price:       decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	product.PublishedAt = publishedAt
	require.NoError(t, NewGormProductRepository(db).Save(context.Background(), product))
	return product
}
