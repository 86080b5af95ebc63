package shared

// BaseAggregateRoot is embedded by aggregates (User, Product, Order).
// Version backs optimistic locking; events queue until the aggregate is saved.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	events  []DomainEvent
}

// NewBaseAggregateRoot starts a new aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// BumpVersion is called once per state change
func (a *BaseAggregateRoot) BumpVersion() {
	a.Version++
}

// RecordEvent queues an event for publication after the next save
func (a *BaseAggregateRoot) RecordEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// PendingEvents returns the queued events in the order they were recorded
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.events
}

// ClearEvents drops the queue once the events are handed off
func (a *BaseAggregateRoot) ClearEvents() {
	a.events = nil
}
