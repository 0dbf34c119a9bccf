package cart

import (
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/veilmart/storefront/internal/domain/product"
	"github.com/veilmart/storefront/internal/storage"
)

// DefaultStorageKey is the key the serialized cart is persisted under.
const DefaultStorageKey = "cart"

// Store is the sole owner and mutator of the cart. One instance per session;
// construct it explicitly and pass it to whatever needs it.
//
// Every mutation is written through to the backing KV store best-effort and
// published to subscribers in mutation order. Persistence failures are logged
// and swallowed: the in-memory state stays authoritative for the session.
type Store struct {
	kv  storage.KV
	key string
	lg  *zap.Logger

	mu      sync.Mutex
	items   []LineItem
	subs    map[int]func([]LineItem)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence warnings.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Store) { s.lg = lg }
}

// WithStorageKey overrides the key the cart is persisted under.
func WithStorageKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// NewStore creates a Store hydrated from kv. A missing, unreadable, or
// corrupt stored value yields an empty cart; hydration never fails.
func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:   kv,
		key:  DefaultStorageKey,
		lg:   zap.NewNop(),
		subs: make(map[int]func([]LineItem)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hydrate()
	return s
}

// hydrate loads the persisted cart, if any. Fail-open: any problem leaves
// the cart empty.
func (s *Store) hydrate() {
	data, err := s.kv.Get(s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.lg.Warn("cart hydration failed, starting empty", zap.Error(err))
		}
		return
	}

	items, err := decodeItems(data)
	if err != nil {
		s.lg.Warn("persisted cart is corrupt, starting empty", zap.Error(err))
		return
	}

	// Re-validate persisted quantities against the frozen snapshots so the
	// quantity invariant holds even if the stored value was edited.
	for _, item := range items {
		item.Quantity = clampQuantity(item.Quantity, item.Product.Stock)
		if item.Product.ID == "" || item.Quantity <= 0 {
			continue
		}
		s.items = append(s.items, item)
	}
}

// Add puts qty units of p (with an optional size variant) into the cart.
// An existing line item with the same key absorbs the quantity instead of
// duplicating; the result is clamped to the snapshot's stock. An insert that
// clamps to zero leaves the cart unchanged; a merge that clamps to zero
// removes the line item, keeping every stored quantity at least 1.
func (s *Store) Add(p product.Product, qty int, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{ProductID: p.ID, Size: size}
	if i := s.index(key); i >= 0 {
		item := &s.items[i]
		merged := clampQuantity(item.Quantity+qty, item.Product.Stock)
		if merged <= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		} else {
			item.Quantity = merged
		}
	} else {
		qty = clampQuantity(qty, p.Stock)
		if qty <= 0 {
			return
		}
		s.items = append(s.items, LineItem{Product: p, Quantity: qty, Size: size})
	}

	s.persist()
	s.publish()
}

// SetQuantity sets the quantity of the line item identified by
// (productID, size). A non-positive quantity removes the item; a quantity
// above stock is clamped. A key not present in the cart is a no-op.
func (s *Store) SetQuantity(productID, size string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(Key{ProductID: productID, Size: size})
	if i < 0 {
		return
	}

	if qty <= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	} else {
		item := &s.items[i]
		item.Quantity = clampQuantity(qty, item.Product.Stock)
	}

	s.persist()
	s.publish()
}

// Remove deletes the line item identified by (productID, size). Absent keys
// are a no-op.
func (s *Store) Remove(productID, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(Key{ProductID: productID, Size: size})
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)

	s.persist()
	s.publish()
}

// Clear empties the cart unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil

	s.persist()
	s.publish()
}

// Items returns a snapshot copy of the current line items in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// ItemCount returns the sum of quantities across all line items, the number
// shown on a cart badge.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// Contains reports whether a line item with the given key is in the cart.
func (s *Store) Contains(productID, size string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index(Key{ProductID: productID, Size: size}) >= 0
}

// Quantity returns the quantity of the line item with the given key, or zero
// when absent.
func (s *Store) Quantity(productID, size string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(Key{ProductID: productID, Size: size}); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

// Subscribe registers fn to receive the current snapshot immediately and
// every subsequent snapshot in mutation order. The returned cancel func
// unregisters fn. Callbacks run synchronously inside the store; they must
// return promptly and must not call back into the Store.
func (s *Store) Subscribe(fn func([]LineItem)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	fn(s.snapshot())
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// index returns the position of the line item with the given key, or -1.
// Callers must hold mu.
func (s *Store) index(key Key) int {
	for i, item := range s.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

// snapshot copies the current line items. Callers must hold mu.
func (s *Store) snapshot() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// persist writes the cart through to the KV store. Best-effort: failures are
// logged and the in-memory state remains authoritative. Callers must hold mu.
func (s *Store) persist() {
	if err := s.kv.Set(s.key, encodeItems(s.items)); err != nil {
		s.lg.Warn("cart persistence failed", zap.Error(err))
	}
}

// publish delivers the current snapshot to all subscribers in registration
// order. Callers must hold mu, which is what keeps delivery ordered with
// respect to mutations.
func (s *Store) publish() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshot()
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			fn(snap)
		}
	}
}
