// Package events carries call-queue notifications to display screens and downstream consumers.
package events

import (
	"context"
	"errors"
	"time"
)

const (
	CallRequested    = "call.requested"
	CallStateChanged = "call.state_changed"
	CallReordered    = "call.reordered"
	CallEscalated    = "call.escalated"
)

// TopicCalls is the hub topic every call event is broadcast on.
const TopicCalls = "calls"

type Event struct {
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error { return f(ctx, event) }

// Multi delivers to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
