// Package live fans out change notifications to streaming subscribers.
//
// Events carry no payload beyond what changed and where. Subscribers react by
// reloading a full snapshot, so a subscriber that is behind only needs to know
// that something changed since its last read. Each subscription therefore
// buffers a single pending event and Publish never blocks.
package live

import (
	"sync"
)

// EventType identifies what changed.
type EventType string

const (
	EventGroupCreated    EventType = "group_created"
	EventMemberJoined    EventType = "member_joined"
	EventExpenseRecorded EventType = "expense_recorded"
)

// Event is a change notification.
type Event struct {
	Type    EventType
	GroupID string
	UserID  string
}

// GroupTopic is the topic for changes inside one group.
func GroupTopic(groupID string) string { return "group:" + groupID }

// UserTopic is the topic for changes to the set of groups a user belongs to.
func UserTopic(uid string) string { return "user:" + uid }

// Subscription receives events for its topics until closed.
type Subscription struct {
	hub    *Hub
	topics []string
	ch     chan Event
	once   sync.Once
}

// C returns the event channel. It is closed by Close.
func (s *Subscription) C() <-chan Event { return s.ch }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub routes published events to subscriptions by topic.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	count  int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers interest in one or more topics.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	sub := &Subscription{
		hub:    h,
		topics: topics,
		ch:     make(chan Event, 1),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		subs, ok := h.topics[t]
		if !ok {
			subs = make(map[*Subscription]struct{})
			h.topics[t] = subs
		}
		subs[sub] = struct{}{}
	}
	h.count++
	return sub
}

// Publish delivers ev to every subscription on any of the topics.
// A subscription that already holds an unread event keeps that one.
func (h *Hub) Publish(ev Event, topics ...string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Subscription]struct{})
	for _, t := range topics {
		for sub := range h.topics[t] {
			if _, ok := seen[sub]; ok {
				continue
			}
			seen[sub] = struct{}{}
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range sub.topics {
		subs := h.topics[t]
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, t)
		}
	}
	h.count--
	close(sub.ch)
}
