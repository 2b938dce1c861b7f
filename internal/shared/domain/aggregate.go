package domain

// BaseAggregateRoot is embedded by aggregates that raise events. Events
// stay with the aggregate until the service pulls them into the outbox in
// the same transaction that stores the aggregate.
type BaseAggregateRoot struct {
	BaseEntity
	pending []DomainEvent
}

// NewBaseAggregateRoot wraps an entity with an empty event list.
func NewBaseAggregateRoot(entity BaseEntity) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: entity}
}

// AddDomainEvent records an event raised by the aggregate.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents reports how many events have not been pulled yet.
func (a *BaseAggregateRoot) PendingEvents() int {
	return len(a.pending)
}

// PullDomainEvents hands over the recorded events, oldest first, and
// forgets them.
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
