package event

import (
	"context"
	"sync"
	"time"

	"github.com/marketplace/backend/internal/domain/shared"
	"go.uber.org/zap"
)

type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	MaxAttempts      int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		MaxAttempts:      shared.OutboxMaxAttempts,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessor polls the outbox and hands decoded events to the bus.
// Several processors may run against one database; ClaimBatch keeps them
// from delivering the same row twice.
type OutboxProcessor struct {
	repo   shared.OutboxRepository
	bus    shared.EventPublisher
	codec  *Codec
	cfg    OutboxProcessorConfig
	logger *zap.Logger
	now    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	codec *Codec,
	cfg OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:   repo,
		bus:    bus,
		codec:  codec,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.every(ctx, p.cfg.PollInterval, func(ctx context.Context) { _, _ = p.RunOnce(ctx) })
	if p.cfg.CleanupEnabled {
		p.wg.Add(1)
		go p.every(ctx, p.cfg.CleanupInterval, p.cleanup)
	}

	p.logger.Info("Outbox processor started",
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Duration("poll_interval", p.cfg.PollInterval),
	)
	return nil
}

// Stop cancels the loops and waits for the current batch to finish
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("Outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// RunOnce claims one batch and delivers it. It returns how many entries
// were delivered successfully.
func (p *OutboxProcessor) RunOnce(ctx context.Context) (int, error) {
	entries, err := p.repo.ClaimBatch(ctx, p.now(), p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("Failed to claim outbox batch", zap.Error(err))
		return 0, err
	}

	delivered := 0
	for _, entry := range entries {
		if p.deliver(ctx, entry) {
			delivered++
		}
	}
	return delivered, nil
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) bool {
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)

	ev, err := p.codec.Decode(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, ev)
	}

	if err != nil {
		if entry.MarkFailed(err, p.now(), p.cfg.MaxAttempts) {
			log.Warn("Outbox entry is dead",
				zap.String("aggregate_type", entry.AggregateType),
				zap.String("aggregate_id", entry.AggregateID.String()),
				zap.Int("attempts", entry.Attempts),
				zap.Error(err),
			)
		} else {
			log.Info("Outbox delivery failed, will retry",
				zap.Int("attempts", entry.Attempts),
				zap.Timep("next_attempt_at", entry.NextAttemptAt),
				zap.Error(err),
			)
		}
		if uerr := p.repo.Update(ctx, entry); uerr != nil {
			log.Error("Failed to record outbox failure", zap.Error(uerr))
		}
		return false
	}

	entry.MarkSent(p.now())
	if err := p.repo.Update(ctx, entry); err != nil {
		// the claim lease expires and the entry is delivered again
		log.Error("Failed to mark outbox entry sent", zap.Error(err))
		return false
	}
	log.Debug("Outbox entry delivered")
	return true
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := p.now().Add(-p.cfg.CleanupRetention)
	n, err := p.repo.Purge(ctx, cutoff)
	if err != nil {
		p.logger.Error("Failed to purge outbox", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Info("Purged sent outbox entries", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
}
