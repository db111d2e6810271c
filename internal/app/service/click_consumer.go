package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/ShortURL/internal/app/model"
	apprepository "github.com/sifan077/ShortURL/internal/app/repository"
	"go.uber.org/zap"
)

const (
	clickFetchBatch   = 10
	clickFetchMaxWait = 5 * time.Second
)

// errMalformedClick marks events that can never be applied.
var errMalformedClick = errors.New("malformed click event")

// ClickConsumer consumes click events from NATS JetStream and applies them
// as click count increments.
type ClickConsumer struct {
	js      nats.JetStreamContext
	logger  *zap.Logger
	repo    apprepository.ShortURLRepository
	timeout time.Duration
}

// NewClickConsumer creates a new click event consumer. repo should be the
// cached repository so that increments also invalidate the cache.
func NewClickConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.ShortURLRepository, timeout time.Duration) *ClickConsumer {
	if timeout <= 0 {
		timeout = DefaultClickTimeout
	}
	return &ClickConsumer{js: js, logger: logger, repo: repo, timeout: timeout}
}

// EnsureStream creates the click stream and its durable consumer when they
// do not exist yet.
func EnsureStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(model.ClickStreamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     model.ClickStreamName,
			Subjects: []string{model.ClickStreamSubject},
			MaxBytes: model.ClickStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	if _, err := js.ConsumerInfo(model.ClickStreamName, model.ClickConsumerName); err != nil {
		_, err = js.AddConsumer(model.ClickStreamName, &nats.ConsumerConfig{
			Durable:   model.ClickConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}
	return nil
}

// Run consumes click events until ctx is done.
func (c *ClickConsumer) Run(ctx context.Context) error {
	if err := EnsureStream(c.js); err != nil {
		return err
	}

	sub, err := c.js.PullSubscribe(model.ClickStreamSubject, model.ClickConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Debug("failed to unsubscribe click consumer", zap.Error(err))
		}
	}()

	c.logger.Info("click consumer started", zap.String("subject", model.ClickStreamSubject))

	for {
		if ctx.Err() != nil {
			c.logger.Info("click consumer stopped")
			return nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, clickFetchMaxWait)
		msgs, err := sub.Fetch(clickFetchBatch, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				continue
			}
			c.logger.Error("failed to fetch messages", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range msgs {
			c.settle(msg, c.apply(msg.Data))
		}
	}
}

func (c *ClickConsumer) settle(msg *nats.Msg, err error) {
	var ackErr error
	switch {
	case err == nil:
		ackErr = msg.Ack()
	case errors.Is(err, errMalformedClick), errors.Is(err, apprepository.ErrShortURLNotFound):
		// Redelivery cannot fix these.
		ackErr = msg.Term()
	default:
		ackErr = msg.Nak()
	}
	if ackErr != nil {
		c.logger.Warn("failed to settle click event", zap.Error(ackErr))
	}
}

// apply decodes one event and increments the matching click count.
func (c *ClickConsumer) apply(data []byte) error {
	var event model.ClickEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Error("failed to unmarshal click event", zap.Error(err))
		return fmt.Errorf("%w: %v", errMalformedClick, err)
	}
	if event.ShortURLID <= 0 {
		c.logger.Error("click event without short url id", zap.String("id", event.ID))
		return fmt.Errorf("%w: missing short url id", errMalformedClick)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.repo.IncrementClickCount(ctx, event.ShortURLID); err != nil {
		c.logger.Error("failed to apply click event",
			zap.String("id", event.ID),
			zap.Int64("short_url_id", event.ShortURLID),
			zap.Error(err))
		return err
	}

	c.logger.Debug("click event applied",
		zap.String("id", event.ID),
		zap.Int64("short_url_id", event.ShortURLID),
		zap.Time("timestamp", event.Timestamp),
	)
	return nil
}
