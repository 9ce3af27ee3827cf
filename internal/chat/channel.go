package chat

import (
	"context"
	"sync"

	"github.com/mealdash/appcore/internal/api"
	"github.com/mealdash/appcore/internal/socket"
	"github.com/mealdash/appcore/pkg/logger"
)

// Transport is the socket surface a channel needs. *socket.Manager
// satisfies it.
type Transport interface {
	EnsureConnected() error
	Emit(event string, data map[string]any) error
	Subscribe(event string, h socket.Handler) (cancel func())
	OnReconnect(fn func()) (cancel func())
}

// Messenger is the API surface used for authoritative persistence of sends.
// *api.Client satisfies it.
type Messenger interface {
	SendMessage(ctx context.Context, in api.SendMessageInput) (api.Message, error)
}

// Channel is the per-order subscription multiplexed over the shared socket
// session. It exists while the order's chat screen is mounted; Close
// unregisters its listeners so they cannot leak across screens.
type Channel struct {
	orderID   string
	transport Transport
	persist   Messenger
	store     *Store

	cancelMsg func()
	cancelRec func()
	closeOnce sync.Once
}

// OpenChannel joins the order's room and wires inbound events into the
// store. Reconnects invalidate server-side room membership, so the channel
// re-joins (and retries unconfirmed sends) whenever the session is replaced.
func OpenChannel(transport Transport, persist Messenger, store *Store) (*Channel, error) {
	c := &Channel{
		orderID:   store.OrderID(),
		transport: transport,
		persist:   persist,
		store:     store,
	}
	c.cancelMsg = transport.Subscribe(socket.EventMessageReceived, c.onMessage)
	c.cancelRec = transport.OnReconnect(c.onReconnect)

	if err := c.Join(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Join ensures a connected session exists and emits the join request. Safe
// to call repeatedly; the server scopes room membership to the connection
// and order pair.
func (c *Channel) Join() error {
	if err := c.transport.EnsureConnected(); err != nil {
		return err
	}
	return c.transport.Emit(socket.EventJoinOrder, map[string]any{
		"orderId": c.orderID,
	})
}

// Send appends an optimistic echo, fans the message out over the socket, and
// persists it through the API. The returned message reflects the entry's
// state after persistence: sent with the authoritative id, or failed with
// the optimistic entry kept in the transcript.
func (c *Channel) Send(ctx context.Context, senderID, senderName, receiverID, content, messageType string) (Message, error) {
	local := c.store.AppendOptimistic(senderID, senderName, receiverID, content, messageType)

	// Realtime fan-out is best effort; the API call below is authoritative.
	if err := c.transport.Emit(socket.EventSendMessage, map[string]any{
		"orderId":     c.orderID,
		"receiverId":  receiverID,
		"content":     content,
		"messageType": messageType,
	}); err != nil {
		logger.Debugf("chat: realtime send skipped for order %s: %v", c.orderID, err)
	}

	authoritative, err := c.persist.SendMessage(ctx, api.SendMessageInput{
		OrderID:     c.orderID,
		ReceiverID:  receiverID,
		Content:     content,
		MessageType: messageType,
	})
	if err != nil {
		c.store.MarkFailed(local.LocalID)
		m, _ := c.store.Get(local.LocalID)
		return m, err
	}

	c.store.MarkSent(local.LocalID, fromAPI(authoritative))
	m, _ := c.store.Get(local.LocalID)
	return m, nil
}

// Retry re-attempts persistence for a pending or failed entry.
func (c *Channel) Retry(ctx context.Context, localID string) error {
	m, ok := c.store.Get(localID)
	if !ok || m.Status == StatusSent {
		return nil
	}
	c.store.MarkPending(localID)

	authoritative, err := c.persist.SendMessage(ctx, api.SendMessageInput{
		OrderID:     c.orderID,
		ReceiverID:  m.ReceiverID,
		Content:     m.Content,
		MessageType: m.MessageType,
	})
	if err != nil {
		c.store.MarkFailed(localID)
		return err
	}
	c.store.MarkSent(localID, fromAPI(authoritative))
	return nil
}

// Close unregisters the channel's listeners and closes the store. Explicit
// leave is unnecessary: room membership dies with the connection.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		if c.cancelMsg != nil {
			c.cancelMsg()
		}
		if c.cancelRec != nil {
			c.cancelRec()
		}
		c.store.Close()
	})
}

func (c *Channel) onMessage(data map[string]any) {
	m, ok := decodeEvent(data)
	if !ok {
		return
	}
	// A stale listener from a previous screen may still be registered for a
	// beat; drop anything not addressed to this channel's order.
	if m.OrderID != c.orderID {
		logger.Debugf("chat: discarding event for order %s on channel %s", m.OrderID, c.orderID)
		return
	}
	c.store.ReconcileInbound(m)
}

func (c *Channel) onReconnect() {
	if err := c.Join(); err != nil {
		logger.Warnf("chat: re-join after reconnect failed for order %s: %v", c.orderID, err)
		return
	}
	for _, m := range c.store.Unconfirmed() {
		if err := c.Retry(context.Background(), m.LocalID); err != nil {
			logger.Warnf("chat: retry after reconnect failed for order %s: %v", c.orderID, err)
		}
	}
}
