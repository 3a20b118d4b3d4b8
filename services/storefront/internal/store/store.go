// Package store holds an in-memory, observable cart.
package store

import (
	"sync"

	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

// Listener receives the cart contents after every effective change.
type Listener func(items []domain.CartLineItem)

// Store is an ordered list of cart lines. Insertion order is display order.
// Mutations that change nothing do not notify listeners.
type Store struct {
	mu        sync.Mutex
	items     []domain.CartLineItem
	listeners map[int]Listener
	nextID    int
}

// New returns a store seeded with a copy of items.
func New(items []domain.CartLineItem) *Store {
	return &Store{
		items:     domain.CloneLines(items),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// AddOrIncrement appends item, or adds its quantity to the existing line of
// the same variant. Stock and display fields are refreshed from item and the
// resulting quantity is clamped to the stock.
func (s *Store) AddOrIncrement(item domain.CartLineItem) {
	item = item.Clone()
	item.Normalize()

	s.mutate(func(items []domain.CartLineItem) ([]domain.CartLineItem, bool) {
		i := domain.FindLine(items, item.VariantID)
		if i < 0 {
			item.Quantity = domain.ClampQuantity(item.Quantity, item.StockLevel)
			return append(items, item), true
		}
		merged := item
		merged.Quantity = domain.ClampQuantity(items[i].Quantity+item.Quantity, item.StockLevel)
		if merged.CartItemID == nil {
			merged.CartItemID = items[i].CartItemID
		}
		items[i] = merged
		return items, true
	})
}

// SetQuantity clamps q into [1, stockLevel] and stores it. Lines without stock
// keep their quantity. It reports whether the stored quantity changed.
func (s *Store) SetQuantity(variantID int64, q int) bool {
	return s.mutate(func(items []domain.CartLineItem) ([]domain.CartLineItem, bool) {
		i := domain.FindLine(items, variantID)
		if i < 0 || items[i].StockLevel <= 0 {
			return items, false
		}
		q = domain.ClampQuantity(q, items[i].StockLevel)
		if items[i].Quantity == q {
			return items, false
		}
		items[i].Quantity = q
		return items, true
	})
}

// Remove deletes the line of variantID and reports whether one existed.
func (s *Store) Remove(variantID int64) bool {
	return s.mutate(func(items []domain.CartLineItem) ([]domain.CartLineItem, bool) {
		i := domain.FindLine(items, variantID)
		if i < 0 {
			return items, false
		}
		return append(items[:i], items[i+1:]...), true
	})
}

// ReplaceAll swaps the contents for a copy of items.
func (s *Store) ReplaceAll(items []domain.CartLineItem) {
	next := domain.CloneLines(items)
	s.mutate(func([]domain.CartLineItem) ([]domain.CartLineItem, bool) {
		return next, true
	})
}

// Clear empties the store. Clearing an empty store is a no-op.
func (s *Store) Clear() bool {
	return s.mutate(func(items []domain.CartLineItem) ([]domain.CartLineItem, bool) {
		if len(items) == 0 {
			return items, false
		}
		return []domain.CartLineItem{}, true
	})
}

// Snapshot returns a deep copy of the current lines.
func (s *Store) Snapshot() []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneLines(s.items)
}

// Len is the number of lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get returns a copy of the line of variantID.
func (s *Store) Get(variantID int64) (domain.CartLineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := domain.FindLine(s.items, variantID); i >= 0 {
		return s.items[i].Clone(), true
	}
	return domain.CartLineItem{}, false
}

// mutate applies fn under the lock and notifies listeners outside of it.
func (s *Store) mutate(fn func([]domain.CartLineItem) ([]domain.CartLineItem, bool)) bool {
	s.mu.Lock()
	items, changed := fn(s.items)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.items = items
	snapshot := domain.CloneLines(items)
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(domain.CloneLines(snapshot))
	}
	return true
}
