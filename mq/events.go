// Package mq carries storefront events over Redis pub/sub.
package mq

import (
	"context"
	"sync"
)

const (
	ProductCreated     = "product-created"
	ProductUpdated     = "product-updated"
	ProductDeleted     = "product-deleted"
	StockChanged       = "stock-changed"
	ReviewChanged      = "review-changed"
	OrderPlaced        = "order-placed"
	OrderStatusChanged = "order-status-changed"
)

// Event is the message published for every storefront mutation.
type Event struct {
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	ItemID     string `json:"item_id,omitempty"` // related entity, e.g. the product of a review
	Status     string `json:"status,omitempty"`
	Stock      *int   `json:"stock,omitempty"`
}

// Emitter publishes events. Emit never fails the caller's operation;
// delivery problems are logged by the implementation.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(context.Context, Event) {}

// Recorder keeps emitted events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
}

// Names returns the names of the recorded events in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.Events))
	for i, e := range r.Events {
		names[i] = e.Name
	}
	return names
}
