package chat

import (
	"time"

	"github.com/mealdash/appcore/internal/api"
)

// Status is the delivery state of a message as seen by this client.
type Status string

const (
	// StatusPending marks an optimistic echo not yet confirmed by the backend.
	StatusPending Status = "pending"
	// StatusSent marks a message the backend has durably persisted.
	StatusSent Status = "sent"
	// StatusFailed marks a send whose persistence call failed. The entry
	// stays in the transcript; it is never silently dropped.
	StatusFailed Status = "failed"
)

// Message is one entry in a conversation.
//
// ID is authoritative once assigned by the backend. An optimistic message
// carries only LocalID until the authoritative echo supersedes it.
type Message struct {
	ID         string
	LocalID    string
	OrderID    string
	SenderID   string
	SenderName string
	// ReceiverID is kept on locally-authored entries so a retried send
	// carries the same counterpart as the original.
	ReceiverID  string
	Content     string
	MessageType string
	CreatedAt   time.Time
	Read        bool
	Status      Status
}

// fromAPI converts a backend message into a confirmed store entry.
func fromAPI(m api.Message) Message {
	return Message{
		ID:          m.ID,
		OrderID:     m.OrderID,
		SenderID:    m.SenderID,
		SenderName:  m.SenderName,
		Content:     m.Content,
		MessageType: m.MessageType,
		CreatedAt:   m.CreatedAt,
		Read:        m.IsRead,
		Status:      StatusSent,
	}
}

// decodeEvent converts a raw message_received payload into a Message.
// Returns false when the payload is not a message.
func decodeEvent(data map[string]any) (Message, bool) {
	if data == nil {
		return Message{}, false
	}
	m := Message{
		ID:          stringField(data, "_id"),
		OrderID:     stringField(data, "orderId"),
		SenderID:    stringField(data, "senderId"),
		SenderName:  stringField(data, "senderName"),
		Content:     stringField(data, "content"),
		MessageType: stringField(data, "messageType"),
		CreatedAt:   timeField(data, "createdAt"),
		Status:      StatusSent,
	}
	if v, ok := data["isRead"].(bool); ok {
		m.Read = v
	}
	if m.ID == "" && m.Content == "" {
		return Message{}, false
	}
	return m, true
}

func stringField(data map[string]any, key string) string {
	v, _ := data[key].(string)
	return v
}

// timeField accepts RFC3339 strings and epoch milliseconds, the two stamp
// encodings the backend has been seen to emit.
func timeField(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	case float64:
		return time.UnixMilli(int64(v))
	case int64:
		return time.UnixMilli(v)
	}
	return time.Now()
}
