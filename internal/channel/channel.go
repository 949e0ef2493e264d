// Package channel defines the notification-channel boundary: inbound
// complaint ingestion and outbound message delivery.
package channel

import (
	"context"
	"time"
)

// InboundMessage is one externally-sourced complaint candidate.
type InboundMessage struct {
	ID            string    `json:"id"`
	CustomerEmail string    `json:"customer_email"`
	Subject       string    `json:"subject"`
	OriginalText  string    `json:"original_text"`
	Timestamp     time.Time `json:"timestamp"`
}

// Channel is the notification collaborator. FetchInbound failures surface as
// CHANNEL_UNREACHABLE, Deliver failures as CHANNEL_ERROR.
type Channel interface {
	FetchInbound(ctx context.Context) ([]InboundMessage, error)
	Deliver(ctx context.Context, to, subject, body string) error
}
