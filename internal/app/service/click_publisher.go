package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/ShortURL/internal/app/model"
)

// EventPublisher is the part of nats.JetStreamContext the publisher uses.
type EventPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// ClickPublisher records clicks by publishing them to NATS JetStream. The
// count itself is applied later by a ClickConsumer.
type ClickPublisher struct {
	js  EventPublisher
	now func() time.Time
}

var _ ClickRecorder = (*ClickPublisher)(nil)

// NewClickPublisher creates a new click event publisher
func NewClickPublisher(js EventPublisher) *ClickPublisher {
	return &ClickPublisher{js: js, now: time.Now}
}

// RecordClick publishes a click event for id to the stream.
func (p *ClickPublisher) RecordClick(ctx context.Context, id int64) error {
	event := model.ClickEvent{
		ID:         uuid.New().String(),
		ShortURLID: id,
		Timestamp:  p.now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// The event id doubles as the JetStream dedup id.
	_, err = p.js.Publish(model.ClickStreamSubject, data, nats.Context(ctx), nats.MsgId(event.ID))
	return err
}
