package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultClaimLease is how long a PROCESSING entry may stay claimed before
// another processor takes it over
const DefaultClaimLease = 2 * time.Minute

type GormOutboxRepository struct {
	db    *gorm.DB
	lease time.Duration
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db, lease: DefaultClaimLease}
}

// WithClaimLease returns a copy that reclaims PROCESSING entries after lease
func (r *GormOutboxRepository) WithClaimLease(lease time.Duration) *GormOutboxRepository {
	if lease <= 0 {
		lease = DefaultClaimLease
	}
	return &GormOutboxRepository{db: r.db, lease: lease}
}

func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.OutboxEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.OutboxEntryModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// ClaimBatch selects deliverable rows oldest first with FOR UPDATE SKIP
// LOCKED and flips them to PROCESSING in the same transaction, so concurrent
// processors never claim the same row.
func (r *GormOutboxRepository) ClaimBatch(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []models.OutboxEntryModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", shared.OutboxPending).
			Or("status = ? AND next_attempt_at <= ?", shared.OutboxFailed, now).
			Or("status = ? AND updated_at <= ?", shared.OutboxProcessing, now.Add(-r.lease)).
			Order("created_at ASC").
			Limit(limit).
			Find(&rows).Error
		if err != nil || len(rows) == 0 {
			return err
		}

		ids := make([]uuid.UUID, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
			rows[i].Status = shared.OutboxProcessing
			rows[i].UpdatedAt = now
		}
		return tx.Model(&models.OutboxEntryModel{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"status": shared.OutboxProcessing, "updated_at": now}).Error
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*shared.OutboxEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	return r.db.WithContext(ctx).Save(models.OutboxEntryModelFromDomain(entry)).Error
}

func (r *GormOutboxRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND sent_at < ?", shared.OutboxSent, before).
		Delete(&models.OutboxEntryModel{})
	return res.RowsAffected, res.Error
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
