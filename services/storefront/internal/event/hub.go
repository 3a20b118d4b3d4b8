package event

import (
	"sync"

	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

// Snapshot is what a cart view receives when its cart changes.
type Snapshot struct {
	Mode  domain.CartMode       `json:"mode"`
	Items []domain.CartLineItem `json:"items"`
}

// Subscription delivers snapshots of one cart. Only the latest undelivered
// snapshot is kept; a slow reader skips intermediate states.
type Subscription struct {
	C <-chan Snapshot

	ch   chan Snapshot
	hub  *Hub
	key  string
	once sync.Once
}

// Close detaches the subscription from the hub. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub fans cart snapshots out to the views subscribed to each cart owner.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe starts receiving snapshots for owner.
func (h *Hub) Subscribe(owner domain.Owner) *Subscription {
	ch := make(chan Snapshot, 1)
	sub := &Subscription{C: ch, ch: ch, hub: h, key: owner.Key()}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.key]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[sub.key] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Publish hands a snapshot of owner's cart to every subscriber. It never
// blocks.
func (h *Hub) Publish(owner domain.Owner, items []domain.CartLineItem) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[owner.Key()]
	for sub := range set {
		snap := Snapshot{Mode: owner.Mode, Items: domain.CloneLines(items)}
		select {
		case sub.ch <- snap:
		default:
			// Replace the pending snapshot with the newer one.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
	}
	return len(set)
}

// Subscribers reports how many views watch owner's cart.
func (h *Hub) Subscribers(owner domain.Owner) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[owner.Key()])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.key]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.key)
	}
}
