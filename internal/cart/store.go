package cart

import (
	"sync"

	"github.com/nevelline/storefront/internal/domain"
)

// Observer receives the full cart state after every mutation.
type Observer func(lines []domain.LineItem)

// Store is the authoritative in-memory cart of one session. It performs no I/O;
// persistence is attached by subscribing an observer.
type Store struct {
	mu        sync.Mutex
	lines     []domain.LineItem
	observers []Observer
}

func NewStore() *Store {
	return &Store{lines: []domain.LineItem{}}
}

// Restore replays saved lines as Add commands, so duplicated or invalid entries
// coming back from storage are merged or dropped. Observers are not notified.
func (s *Store) Restore(lines []domain.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lines {
		s.lines = domain.Apply(s.lines, domain.Add{Item: l})
	}
}

func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Dispatch applies cmd and notifies observers with the resulting state.
// Observers run under the store lock so they see states in dispatch order; they must not
// call back into the store.
func (s *Store) Dispatch(cmd domain.Command) []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = domain.Apply(s.lines, cmd)
	for _, o := range s.observers {
		o(domain.CloneLines(s.lines))
	}
	return domain.CloneLines(s.lines)
}

func (s *Store) Add(item domain.LineItem) []domain.LineItem {
	return s.Dispatch(domain.Add{Item: item})
}

func (s *Store) UpdateQuantity(productID, variantKey string, quantity int) []domain.LineItem {
	return s.Dispatch(domain.UpdateQuantity{ProductID: productID, VariantKey: variantKey, Quantity: quantity})
}

func (s *Store) Remove(productID, variantKey string) []domain.LineItem {
	return s.Dispatch(domain.Remove{ProductID: productID, VariantKey: variantKey})
}

func (s *Store) Clear() {
	s.Dispatch(domain.Clear{})
}

// Lines returns a snapshot copy of the current lines.
func (s *Store) Lines() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneLines(s.lines)
}

func (s *Store) Snapshot() domain.Cart {
	return domain.Cart{Lines: s.Lines()}
}

func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Total(s.lines)
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ItemCount(s.lines)
}
