package model

import "time"

// ClickEvent is published for every successful redirect when clicks are
// accounted through NATS.
type ClickEvent struct {
	ID         string    `json:"id"`
	ShortURLID int64     `json:"short_url_id"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-counter"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
