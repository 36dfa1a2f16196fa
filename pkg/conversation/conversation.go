// Package conversation is the single authority for "the conversation with
// peer P": it merges optimistic sends, fetched history and realtime events
// into one ordered, de-duplicated timeline and tracks per-message delivery
// state.
package conversation

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parlorchat/parlor/pkg/api"
)

// DeliveryState tracks whether a message has been persisted by the backend.
type DeliveryState string

const (
	DeliveryPending DeliveryState = "pending"
	DeliverySent    DeliveryState = "sent"
	DeliveryFailed  DeliveryState = "failed"
)

// Message is a timeline entry. Optimistic entries carry a temporary id until
// the authoritative server copy replaces them in place.
type Message struct {
	ID         string
	Text       string
	SenderID   string
	ReceiverID string
	CreatedAt  time.Time
	Delivery   DeliveryState
}

var (
	// ErrNoPeerSelected is returned by BeginSend when no conversation is open.
	ErrNoPeerSelected = errors.New("no peer selected")
	// ErrEmptyMessage is returned for whitespace-only sends.
	ErrEmptyMessage = errors.New("message text is empty")
)

// Store holds the timeline for the currently selected peer plus messages
// queued for peers that are not selected. All methods are safe for
// concurrent use; internally each transition is serialized.
type Store struct {
	mu       sync.Mutex
	selfID   string
	selected string
	gen      uint64
	timeline []Message
	queued   map[string][]Message
}

func NewStore(selfID string) *Store {
	return &Store{
		selfID: selfID,
		queued: make(map[string][]Message),
	}
}

// SelectedPeer returns the id of the open conversation, or "".
func (s *Store) SelectedPeer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SelectPeer switches the open conversation. The view is cleared immediately
// and a generation token is returned; the caller passes it back with the
// fetched history so that a fetch resolving after another switch is
// discarded instead of overwriting the newer conversation.
func (s *Store) SelectPeer(peerID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = peerID
	s.timeline = nil
	s.gen++
	return s.gen
}

// ApplyHistory installs fetched history for the generation returned by
// SelectPeer. Messages that arrived over the realtime channel while the
// fetch was in flight, and messages queued while the peer was not selected,
// are folded in after the history, de-duplicated by id. Returns false when
// the fetch is stale.
func (s *Store) ApplyHistory(gen uint64, history []api.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}

	seen := make(map[string]struct{}, len(history))
	merged := make([]Message, 0, len(history)+len(s.timeline))
	for _, m := range history {
		merged = append(merged, fromAPI(m))
		seen[m.ID] = struct{}{}
	}
	for _, m := range s.timeline {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		merged = append(merged, m)
		seen[m.ID] = struct{}{}
	}
	for _, m := range s.queued[s.selected] {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		merged = append(merged, m)
		seen[m.ID] = struct{}{}
	}
	delete(s.queued, s.selected)

	s.timeline = merged
	return true
}

// FailHistory resets the conversation to empty after a failed fetch, so the
// view never shows stale messages. Stale generations are ignored.
func (s *Store) FailHistory(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.timeline = nil
	return true
}

// BeginSend appends an optimistic pending message for the selected peer and
// returns it. The caller then performs the REST send and resolves or fails
// the entry by its temporary id.
func (s *Store) BeginSend(text string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return Message{}, ErrNoPeerSelected
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	msg := Message{
		ID:         "temp-" + uuid.New().String(),
		Text:       text,
		SenderID:   s.selfID,
		ReceiverID: s.selected,
		CreatedAt:  time.Now().UTC(),
		Delivery:   DeliveryPending,
	}
	s.timeline = append(s.timeline, msg)
	return msg, nil
}

// ResolveSend replaces the optimistic entry with the authoritative server
// copy, preserving its position. Returns false when the temporary id is no
// longer present (e.g. the peer was switched and the view cleared).
func (s *Store) ResolveSend(tempID string, m api.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.timeline {
		if s.timeline[i].ID == tempID {
			s.timeline[i] = fromAPI(m)
			return true
		}
	}
	return false
}

// FailSend marks the optimistic entry failed in place. The entry is kept so
// the user sees which message did not go through.
func (s *Store) FailSend(tempID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.timeline {
		if s.timeline[i].ID == tempID {
			s.timeline[i].Delivery = DeliveryFailed
			return true
		}
	}
	return false
}

// Ingest is the single ingestion point for messages arriving over the
// realtime channel. Self-originated echoes are dropped here: the backend
// broadcasts a sender's own message back to it, and appending the echo would
// duplicate the optimistic entry. Messages for a peer other than the
// selected one are queued, never dropped. Returns true when the message
// landed in the visible timeline.
func (s *Store) Ingest(m api.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.SenderID == s.selfID {
		return false
	}

	if m.SenderID != s.selected {
		for _, q := range s.queued[m.SenderID] {
			if q.ID == m.ID {
				return false
			}
		}
		s.queued[m.SenderID] = append(s.queued[m.SenderID], fromAPI(m))
		return false
	}

	for _, t := range s.timeline {
		if t.ID == m.ID {
			return false
		}
	}
	s.timeline = append(s.timeline, fromAPI(m))
	return true
}

// Timeline returns a copy of the visible conversation.
func (s *Store) Timeline() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.timeline))
	copy(out, s.timeline)
	return out
}

// UnreadCount returns how many messages are queued for a non-selected peer.
func (s *Store) UnreadCount(peerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queued[peerID])
}

// UnreadCounts returns queued message counts per peer id.
func (s *Store) UnreadCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.queued))
	for id, msgs := range s.queued {
		if len(msgs) > 0 {
			out[id] = len(msgs)
		}
	}
	return out
}

func fromAPI(m api.Message) Message {
	return Message{
		ID:         m.ID,
		Text:       m.Text,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		CreatedAt:  m.CreatedAt,
		Delivery:   DeliverySent,
	}
}
