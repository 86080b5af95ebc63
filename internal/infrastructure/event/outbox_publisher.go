package event

import (
	"context"
	"fmt"

	"github.com/marketplace/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes events into outbox_entries on the caller's
// transaction, so they commit or roll back with the state change
type OutboxPublisher struct {
	codec *Codec
}

func NewOutboxPublisher(codec *Codec) *OutboxPublisher {
	return &OutboxPublisher{codec: codec}
}

// SaveEvents expects tx to be the *gorm.DB of an open transaction
func (p *OutboxPublisher) SaveEvents(ctx context.Context, tx any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	db, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox: expected *gorm.DB, got %T", tx)
	}

	entries := make([]*shared.OutboxEntry, len(events))
	for i, ev := range events {
		payload, err := p.codec.Encode(ev)
		if err != nil {
			return err
		}
		entries[i] = shared.NewOutboxEntry(ev, payload)
	}
	return NewGormOutboxRepository(db).Save(ctx, entries...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
