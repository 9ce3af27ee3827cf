package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mealdash/appcore/pkg/logger"
)

// echoMatchWindow bounds the timestamp distance used when matching an
// inbound echo against an optimistic entry that lost its correlation id.
const echoMatchWindow = 2 * time.Minute

// Store is the in-memory, time-ordered buffer of messages for one open
// conversation. It merges fetched history, optimistic local echoes, and live
// inbound events. Lifetime matches the conversation screen: the caller drops
// the store on unmount and a fresh one re-derives state from history.
type Store struct {
	mu      sync.Mutex
	orderID string
	msgs    []Message
	closed  bool
}

// NewStore creates an empty store bound to one order's conversation.
func NewStore(orderID string) *Store {
	return &Store{orderID: orderID}
}

// OrderID returns the order this conversation is bound to.
func (s *Store) OrderID() string { return s.orderID }

// Close marks the store as unmounted. Late completions (a history fetch that
// resolves after the screen is gone, a stale listener) become no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Messages returns a snapshot of the conversation in display order.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Len returns the number of entries in the conversation.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// UnreadCount returns how many confirmed messages have not been marked read.
// Entries authored on this device are excluded; history entries are counted
// regardless of sender since the store does not know the local user's id.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.LocalID != "" {
			continue
		}
		if !m.Read && m.Status == StatusSent {
			n++
		}
	}
	return n
}

// Get looks up an entry by its local correlation id.
func (s *Store) Get(localID string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.LocalID == localID {
			return m, true
		}
	}
	return Message{}, false
}

// Unconfirmed returns the optimistic entries that have not been persisted.
func (s *Store) Unconfirmed() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.msgs {
		if m.Status != StatusSent {
			out = append(out, m)
		}
	}
	return out
}

// AppendOptimistic inserts a locally-authored message immediately so the UI
// reflects the send with zero latency. The entry carries a local correlation
// id and stays pending until persistence confirms or fails it.
func (s *Store) AppendOptimistic(senderID, senderName, receiverID, content, messageType string) Message {
	m := Message{
		LocalID:     uuid.NewString(),
		OrderID:     s.orderID,
		SenderID:    senderID,
		SenderName:  senderName,
		ReceiverID:  receiverID,
		Content:     content,
		MessageType: messageType,
		CreatedAt:   time.Now(),
		Status:      StatusPending,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return m
	}
	s.insertChronological(m)
	return m
}

// ReconcileInbound merges one live event into the conversation. An event
// matching a previously optimistic entry supersedes it in place; an event
// already known by authoritative id is updated, not duplicated; anything else
// is inserted at its chronological position.
func (s *Store) ReconcileInbound(in Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if in.ID != "" {
		for i := range s.msgs {
			if s.msgs[i].ID == in.ID {
				s.msgs[i].Read = in.Read
				return
			}
		}
	}

	if i, ok := s.matchOptimistic(in); ok {
		// Keep the entry's position and stamp so the bubble does not jump.
		s.msgs[i].ID = in.ID
		s.msgs[i].Status = StatusSent
		s.msgs[i].Read = in.Read
		return
	}

	s.insertChronological(in)
}

// MarkSent supersedes the optimistic entry with the authoritative copy
// returned by the persistence call, in place.
func (s *Store) MarkSent(localID string, authoritative Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	// If the socket echo landed first under the authoritative id, drop the
	// optimistic duplicate instead of confirming it.
	echoIdx := -1
	for i := range s.msgs {
		if authoritative.ID != "" && s.msgs[i].ID == authoritative.ID {
			echoIdx = i
			break
		}
	}

	for i := range s.msgs {
		if s.msgs[i].LocalID != localID {
			continue
		}
		if echoIdx >= 0 && echoIdx != i {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			return
		}
		s.msgs[i].ID = authoritative.ID
		s.msgs[i].Status = StatusSent
		s.msgs[i].Read = authoritative.Read
		return
	}
}

// MarkFailed flags an optimistic entry whose persistence call failed. The
// transcript keeps the bubble so the user can see and retry the send.
func (s *Store) MarkFailed(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].LocalID == localID {
			s.msgs[i].Status = StatusFailed
			return
		}
	}
}

// MarkPending returns a failed entry to pending ahead of a retry.
func (s *Store) MarkPending(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].LocalID == localID {
			s.msgs[i].Status = StatusPending
			return
		}
	}
}

// matchOptimistic finds an unconfirmed entry that represents the same
// logical send as the inbound echo: same sender and content, authored within
// the match window. Callers hold s.mu.
func (s *Store) matchOptimistic(in Message) (int, bool) {
	for i := range s.msgs {
		m := s.msgs[i]
		if m.Status == StatusSent || m.LocalID == "" {
			continue
		}
		if m.SenderID != in.SenderID || m.Content != in.Content {
			continue
		}
		delta := in.CreatedAt.Sub(m.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= echoMatchWindow {
			return i, true
		}
	}
	return 0, false
}

// insertChronological inserts scanning from the tail, so equal stamps keep
// arrival order and the sequence stays non-decreasing by CreatedAt. Callers
// hold s.mu.
func (s *Store) insertChronological(in Message) {
	i := len(s.msgs)
	for i > 0 && s.msgs[i-1].CreatedAt.After(in.CreatedAt) {
		i--
	}
	s.msgs = append(s.msgs, Message{})
	copy(s.msgs[i+1:], s.msgs[i:])
	s.msgs[i] = in
	logger.Tracef("chat: inserted message at %d/%d for order %s", i, len(s.msgs), s.orderID)
}
