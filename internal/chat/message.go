package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message statuses. Transitions only move forward in practice (sent -> read)
// but nothing enforces monotonicity; any writer can overwrite any field.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

type Message struct {
	ID         string              `json:"id"`
	Text       string              `json:"text"`
	SenderID   string              `json:"senderId"`
	SenderName string              `json:"senderName"`
	Timestamp  int64               `json:"timestamp"`
	Status     string              `json:"status"`
	ReplyToID  string              `json:"replyToId,omitempty"`
	IsSystem   bool                `json:"isSystem,omitempty"` // for "user joined" notices
	Reactions  map[string][]string `json:"reactions,omitempty"`
}

// New builds a freshly sent message.
func New(senderID, senderName, text, replyToID string, at time.Time) Message {
	return Message{
		ID:         uuid.NewString(),
		Text:       text,
		SenderID:   senderID,
		SenderName: senderName,
		Timestamp:  at.UnixMilli(),
		Status:     StatusSent,
		ReplyToID:  replyToID,
	}
}
