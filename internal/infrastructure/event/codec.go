package event

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/marketplace/backend/internal/domain/shared"
)

// Codec encodes events as JSON and decodes them back into their concrete
// types by event type name
type Codec struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

func NewCodec() *Codec {
	return &Codec{factories: make(map[string]func() shared.DomainEvent)}
}

// Register makes eventType decodable as *T
func Register[T any, P interface {
	*T
	shared.DomainEvent
}](c *Codec, eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[eventType] = func() shared.DomainEvent { return P(new(T)) }
}

func (c *Codec) Encode(ev shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	return data, nil
}

// Decode rebuilds an event. The payload's own type must agree with eventType.
func (c *Codec) Decode(eventType string, data []byte) (shared.DomainEvent, error) {
	c.mu.RLock()
	factory, ok := c.factories[eventType]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decode: unknown event type %q", eventType)
	}

	ev := factory()
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	if ev.EventType() != eventType {
		return nil, fmt.Errorf("decode %s: payload carries type %q", eventType, ev.EventType())
	}
	return ev, nil
}

// Types lists the registered event types in sorted order
func (c *Codec) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]string, 0, len(c.factories))
	for t := range c.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
