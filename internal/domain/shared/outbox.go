package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "PENDING"
	OutboxProcessing OutboxStatus = "PROCESSING"
	OutboxSent       OutboxStatus = "SENT"
	OutboxFailed     OutboxStatus = "FAILED"
	OutboxDead       OutboxStatus = "DEAD"
)

const (
	OutboxMaxAttempts = 5
	outboxBackoffBase = time.Second
	outboxBackoffCap  = 5 * time.Minute
)

// OutboxEntry is a serialized event written in the same transaction as the
// state change that produced it
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	LastError     string
	NextAttemptAt *time.Time
	SentAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps an already encoded event
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkSent records a successful delivery
func (e *OutboxEntry) MarkSent(now time.Time) {
	e.Status = OutboxSent
	e.SentAt = &now
	e.NextAttemptAt = nil
	e.LastError = ""
	e.UpdatedAt = now
}

// MarkFailed counts a failed attempt. Once maxAttempts is reached the entry
// is parked as DEAD and MarkFailed returns true. maxAttempts <= 0 means
// OutboxMaxAttempts.
func (e *OutboxEntry) MarkFailed(cause error, now time.Time, maxAttempts int) (dead bool) {
	if maxAttempts <= 0 {
		maxAttempts = OutboxMaxAttempts
	}
	e.Attempts++
	if cause != nil {
		e.LastError = cause.Error()
	}
	e.UpdatedAt = now

	if e.Attempts >= maxAttempts {
		e.Status = OutboxDead
		e.NextAttemptAt = nil
		return true
	}
	e.Status = OutboxFailed
	next := now.Add(RetryBackoff(e.Attempts))
	e.NextAttemptAt = &next
	return false
}

// RetryBackoff doubles from one second per attempt, capped at five minutes
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := outboxBackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= outboxBackoffCap {
			return outboxBackoffCap
		}
	}
	return d
}

// OutboxRepository stores outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// ClaimBatch moves up to limit deliverable entries to PROCESSING and
	// returns them. Deliverable means pending, failed and due, or stuck in
	// PROCESSING past the claim lease.
	ClaimBatch(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// Purge deletes entries sent before the cutoff
	Purge(ctx context.Context, before time.Time) (int64, error)
}
