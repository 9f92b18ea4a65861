// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSPublisher publishes events to a NATS JetStream stream.
// The event type is the subject (e.g. "chat.message.appended").
type NATSPublisher struct {
	conn   *nats.Conn
	stream jetstream.JetStream
}

// ConnectNATS connects to NATS and ensures the stream exists with a "chat.>" subject.
func ConnectNATS(context context.Context, url, streamName string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("helpline-api"))
	if err != nil {
		return nil, fmt.Errorf("events: nats connect: %w", err)
	}

	stream, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: jetstream init: %w", err)
	}

	_, err = stream.CreateOrUpdateStream(context, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"chat.>"},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: jetstream stream create: %w", err)
	}

	logger.Info("nats_connected", slog.String("url", url), slog.String("stream", streamName))
	return &NATSPublisher{conn: conn, stream: stream}, nil
}

// Publish sends the envelope with the event id as the JetStream message id,
// so broker-side de-duplication drops retried publishes.
func (publisher *NATSPublisher) Publish(context context.Context, envelope Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}

	if _, err := publisher.stream.Publish(context, envelope.Meta.Type, body, jetstream.WithMsgID(envelope.Meta.ID)); err != nil {
		return fmt.Errorf("events: nats publish %s: %w", envelope.Meta.Type, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (publisher *NATSPublisher) Close() error {
	return publisher.conn.Drain()
}

// Healthy reports an error unless the NATS connection is established.
func (publisher *NATSPublisher) Healthy() error {
	if status := publisher.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("events: nats %s", status)
	}
	return nil
}
