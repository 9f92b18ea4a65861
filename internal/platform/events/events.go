// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package events publishes domain events to a message broker.

Every event travels in the same JSON [Envelope]. The broker is chosen at
startup (EVENT_BROKER): NATS JetStream, RabbitMQ or none.

Publishing is best effort. Callers log a failed publish and carry on; the
database remains the source of truth.
*/
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Meta describes an event independently of its payload.
type Meta struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Type          string    `json:"type"`
	Time          time.Time `json:"time"`
}

// Envelope is the wire format of every published event.
type Envelope struct {
	Meta Meta            `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// Publisher hands events to a broker.
type Publisher interface {
	Publish(context context.Context, envelope Envelope) error
	Close() error
}

// NewEnvelope wraps data into an [Envelope] with a fresh id.
// correlationID is usually the request id and falls back to the event id.
func NewEnvelope(eventType, correlationID string, data any) (Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", eventType, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	if correlationID == "" {
		correlationID = id.String()
	}

	return Envelope{
		Meta: Meta{
			ID:            id.String(),
			CorrelationID: correlationID,
			Type:          eventType,
			Time:          time.Now().UTC(),
		},
		Data: payload,
	}, nil
}

// # Noop

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }
func (Noop) Close() error                             { return nil }

// # Recorder

// Recorder keeps published events in memory. Used by tests and local runs.
type Recorder struct {
	mu        sync.Mutex
	envelopes []Envelope
	Err       error
}

// Publish records envelope, or returns Err when set.
func (r *Recorder) Publish(_ context.Context, envelope Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.envelopes = append(r.envelopes, envelope)
	return nil
}

// Close is a no-op.
func (r *Recorder) Close() error { return nil }

// Envelopes returns a copy of everything recorded so far.
func (r *Recorder) Envelopes() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.envelopes...)
}

// OfType returns the recorded envelopes with the given type.
func (r *Recorder) OfType(eventType string) []Envelope {
	var matched []Envelope
	for _, envelope := range r.Envelopes() {
		if envelope.Meta.Type == eventType {
			matched = append(matched, envelope)
		}
	}
	return matched
}
