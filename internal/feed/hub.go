package feed

import (
	"sync"

	"github.com/pacelog/pacelog/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

const subscriberBufferSize = 16

// Hub fans committed table changes out to per-user subscribers. Publish
// never blocks: a subscriber that cannot keep up loses events, which is
// fine since clients reconcile on the next full load anyway.
type Hub struct {
	mu             sync.RWMutex
	subscribers    map[int]map[*Subscription]struct{}
	metricsManager *metrics.Manager
}

type Subscription struct {
	C      chan ChangeEvent
	userID int
	hub    *Hub
	once   sync.Once
}

func NewHub(metricsManager *metrics.Manager) *Hub {
	return &Hub{
		subscribers:    make(map[int]map[*Subscription]struct{}),
		metricsManager: metricsManager,
	}
}

func (h *Hub) Subscribe(userID int) *Subscription {
	sub := &Subscription{
		C:      make(chan ChangeEvent, subscriberBufferSize),
		userID: userID,
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[*Subscription]struct{})
	}
	h.subscribers[userID][sub] = struct{}{}

	if h.metricsManager != nil {
		h.metricsManager.GaugeFeedSubscribers.Inc()
	}

	return sub
}

// Unsubscribe is safe to call more than once; only the first call
// removes the subscription and closes the channel.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()

		if subs, ok := h.subscribers[s.userID]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.subscribers, s.userID)
			}
		}
		close(s.C)

		if h.metricsManager != nil {
			h.metricsManager.GaugeFeedSubscribers.Dec()
		}
	})
}

// Publish delivers the event to all current subscribers of the user.
func (h *Hub) Publish(userID int, ev ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[userID] {
		select {
		case sub.C <- ev:
		default:
			log.Warnf("feed: subscriber of user %d too slow, %s event dropped", userID, ev.Type)
		}
	}

	if h.metricsManager != nil {
		h.metricsManager.CounterFeedEvents.Inc()
	}
}

// PublishChange builds and publishes a ChangeEvent from raw records.
func (h *Hub) PublishChange(userID int, eventType EventType, newRecord, oldRecord any) {
	ev, err := NewChangeEvent(eventType, newRecord, oldRecord)
	if err != nil {
		log.Errorf("feed: marshal %s event for user %d: %s", eventType, userID, err)
		return
	}
	h.Publish(userID, ev)
}

// Close drops all subscriptions, ending their event streams. Used on
// server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Subscription
	for _, subs := range h.subscribers {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
}

// SubscribersCount is used in tests and the hub gauge sanity checks.
func (h *Hub) SubscribersCount(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
