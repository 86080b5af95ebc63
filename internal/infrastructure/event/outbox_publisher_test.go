package event

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOutboxPublisher_SaveEvents(t *testing.T) {
	db := openOutboxDB(t)
	pub := NewOutboxPublisher(pingCodec())
	ev := newPing("Ping", "persisted")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return pub.SaveEvents(context.Background(), tx, ev)
	}))

	var row models.OutboxEntryModel
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, ev.ID, row.EventID)
	assert.Equal(t, "Ping", row.EventType)
	assert.Equal(t, ev.AggID, row.AggregateID)
	assert.Equal(t, shared.OutboxPending, row.Status)
	assert.Contains(t, string(row.Payload), `"note":"persisted"`)
}

func TestOutboxPublisher_RollsBackWithTransaction(t *testing.T) {
	db := openOutboxDB(t)
	pub := NewOutboxPublisher(pingCodec())
	abort := errors.New("abort")

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, pub.SaveEvents(context.Background(), tx, newPing("Ping", "")))
		return abort
	})
	require.ErrorIs(t, err, abort)

	var n int64
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestOutboxPublisher_BatchInsert(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "outbox_entries"`)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	pub := NewOutboxPublisher(pingCodec())
	err = pub.SaveEvents(context.Background(), db,
		newPing("Ping", "1"), newPing("Ping", "2"), newPing("Ping", "3"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisher_Guards(t *testing.T) {
	pub := NewOutboxPublisher(pingCodec())

	assert.NoError(t, pub.SaveEvents(context.Background(), nil), "no events, nothing to write")

	err := pub.SaveEvents(context.Background(), "not a tx", newPing("Ping", ""))
	assert.ErrorContains(t, err, "expected *gorm.DB")
}
