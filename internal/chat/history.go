package chat

import (
	"context"
	"fmt"

	"github.com/mealdash/appcore/internal/api"
)

// HistoryClient is the API surface needed to load a conversation's durable
// log. *api.Client satisfies it.
type HistoryClient interface {
	Messages(ctx context.Context, orderID string, limit, offset int) ([]api.Message, error)
}

// LoadHistory fetches one page of the durable message log and replaces the
// confirmed portion of the store with it. The backend returns messages
// newest-first; they are reversed to chronological order before the merge.
// Optimistic entries that are still pending or failed are carried over so a
// reload never drops a message the user believes they sent.
//
// On failure the store is left untouched and the error is returned for the
// caller to surface as retryable.
func (s *Store) LoadHistory(ctx context.Context, client HistoryClient, limit, offset int) error {
	page, err := client.Messages(ctx, s.orderID, limit, offset)
	if err != nil {
		return fmt.Errorf("load history for order %s: %w", s.orderID, err)
	}

	merged := make([]Message, 0, len(page))
	for i := len(page) - 1; i >= 0; i-- {
		merged = append(merged, fromAPI(page[i]))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// The screen unmounted while the fetch was in flight.
		return nil
	}

	locals := make([]Message, 0)
	for _, m := range s.msgs {
		if m.Status != StatusSent && m.LocalID != "" {
			locals = append(locals, m)
		}
	}

	s.msgs = merged
	for _, m := range locals {
		s.insertChronological(m)
	}
	return nil
}
