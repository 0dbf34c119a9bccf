package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmart/storefront/internal/domain/product"
	"github.com/veilmart/storefront/internal/storage"
)

// --- Fakes ---

// memKV is an in-memory storage.KV with injectable failures.
type memKV struct {
	values map[string][]byte
	setErr error
	getErr error
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string][]byte)}
}

func (m *memKV) Get(key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

type fakeCatalog struct {
	byID map[string]product.Product
	err  error
}

func (f *fakeCatalog) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *fakeCatalog) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Helpers ---

func testProduct(id string, price string, stock int) product.Product {
	return product.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Category: "test",
	}
}

// --- Add ---

func TestAdd_MergesOnSameKey(t *testing.T) {
	s := NewStore(newMemKV())
	p := testProduct("p1", "29.99", 10)

	s.Add(p, 2, "M")
	s.Add(p, 3, "M")

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAdd_DifferentSizesAreDistinctItems(t *testing.T) {
	s := NewStore(newMemKV())
	p := testProduct("p1", "29.99", 10)

	s.Add(p, 1, "M")
	s.Add(p, 1, "L")

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "M", items[0].Size)
	assert.Equal(t, "L", items[1].Size)
}

func TestAdd_MergeClampsToStock(t *testing.T) {
	s := NewStore(newMemKV())
	p := testProduct("p1", "10.00", 5)

	s.Add(p, 3, "")
	s.Add(p, 4, "")

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAdd_InsertClampsToStock(t *testing.T) {
	s := NewStore(newMemKV())

	s.Add(testProduct("p3", "10", 2), 5, "")

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAdd_ZeroStockAddsNothing(t *testing.T) {
	s := NewStore(newMemKV())

	s.Add(testProduct("p1", "10", 0), 1, "")

	assert.Empty(t, s.Items())
}

func TestAdd_NegativeMergeRemovesItem(t *testing.T) {
	s := NewStore(newMemKV())
	p := testProduct("p1", "10", 5)

	s.Add(p, 2, "")
	s.Add(p, -100, "")

	assert.Empty(t, s.Items())
	assert.False(t, s.Contains("p1", ""))
}

func TestAdd_NegativeMergeAboveZeroKeepsRemainder(t *testing.T) {
	s := NewStore(newMemKV())
	p := testProduct("p1", "10", 5)

	s.Add(p, 3, "")
	s.Add(p, -1, "")

	assert.Equal(t, 2, s.Quantity("p1", ""))
}

func TestAdd_PreservesInsertionOrder(t *testing.T) {
	s := NewStore(newMemKV())

	s.Add(testProduct("a", "1", 9), 1, "")
	s.Add(testProduct("b", "1", 9), 1, "")
	s.Add(testProduct("c", "1", 9), 1, "")
	s.Add(testProduct("b", "1", 9), 1, "")

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Product.ID)
	assert.Equal(t, "b", items[1].Product.ID)
	assert.Equal(t, "c", items[2].Product.ID)
}

// --- SetQuantity ---

func TestSetQuantity_SetsAndClamps(t *testing.T) {
	s := NewStore(newMemKV())
	s.Add(testProduct("p1", "10", 5), 1, "")

	s.SetQuantity("p1", "", 3)
	assert.Equal(t, 3, s.Quantity("p1", ""))

	s.SetQuantity("p1", "", 99)
	assert.Equal(t, 5, s.Quantity("p1", ""))
}

func TestSetQuantity_NonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -5} {
		s := NewStore(newMemKV())
		s.Add(testProduct("p1", "10", 5), 2, "M")

		s.SetQuantity("p1", "M", qty)

		assert.False(t, s.Contains("p1", "M"))
		assert.Empty(t, s.Items())
	}
}

func TestSetQuantity_MissingKeyIsNoop(t *testing.T) {
	kv := newMemKV()
	s := NewStore(kv)
	s.Add(testProduct("p1", "10", 5), 2, "")
	persisted := string(kv.values[DefaultStorageKey])

	var published int
	cancel := s.Subscribe(func([]LineItem) { published++ })
	defer cancel()

	s.SetQuantity("ghost", "", 3)

	assert.Equal(t, 1, published, "only the replay, no publish for a no-op")
	assert.Equal(t, persisted, string(kv.values[DefaultStorageKey]))
}

// --- Remove / Clear ---

func TestRemove_DeletesMatchingKeyOnly(t *testing.T) {
	s := NewStore(newMemKV())
	p := testProduct("p1", "10", 5)
	s.Add(p, 1, "M")
	s.Add(p, 1, "L")

	s.Remove("p1", "M")

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "L", items[0].Size)
}

func TestRemove_AbsentKeyIsNoop(t *testing.T) {
	s := NewStore(newMemKV())
	s.Add(testProduct("p1", "10", 5), 1, "")

	s.Remove("nope", "")

	assert.Len(t, s.Items(), 1)
}

func TestClear_EmptiesCartAndPersists(t *testing.T) {
	kv := newMemKV()
	s := NewStore(kv)
	s.Add(testProduct("p1", "10", 5), 2, "")

	s.Clear()

	assert.Empty(t, s.Items())
	assert.Equal(t, "[]", string(kv.values[DefaultStorageKey]))
}

// --- Lookups ---

func TestItemCount_SumsQuantities(t *testing.T) {
	s := NewStore(newMemKV())
	s.Add(testProduct("p1", "10", 9), 2, "")
	s.Add(testProduct("p2", "10", 9), 3, "")

	assert.Equal(t, 5, s.ItemCount())
}

func TestContainsAndQuantity(t *testing.T) {
	s := NewStore(newMemKV())
	s.Add(testProduct("p1", "10", 9), 2, "M")

	assert.True(t, s.Contains("p1", "M"))
	assert.False(t, s.Contains("p1", ""))
	assert.Equal(t, 2, s.Quantity("p1", "M"))
	assert.Equal(t, 0, s.Quantity("p1", "L"))
}

// --- Stock invariant ---

func TestQuantityInvariant_HoldsAcrossOperationSequence(t *testing.T) {
	s := NewStore(newMemKV())
	p1 := testProduct("p1", "10", 3)
	p2 := testProduct("p2", "10", 7)

	check := func() {
		for _, item := range s.Items() {
			assert.GreaterOrEqual(t, item.Quantity, 1)
			assert.LessOrEqual(t, item.Quantity, item.Product.Stock)
		}
	}

	s.Add(p1, 100, "")
	check()
	s.Add(p2, 1, "")
	check()
	s.Add(p1, 1, "")
	check()
	s.SetQuantity("p2", "", 50)
	check()
	s.SetQuantity("p1", "", 2)
	check()
	s.Add(p2, 100, "")
	check()
	s.Add(p1, -1, "")
	check()
	s.Add(p2, -100, "")
	check()
}

// --- Subscription stream ---

func TestSubscribe_ReplaysCurrentSnapshot(t *testing.T) {
	s := NewStore(newMemKV())
	s.Add(testProduct("p1", "10", 5), 2, "")

	var got [][]LineItem
	cancel := s.Subscribe(func(items []LineItem) { got = append(got, items) })
	defer cancel()

	require.Len(t, got, 1, "a late subscriber still sees the current state")
	require.Len(t, got[0], 1)
	assert.Equal(t, 2, got[0][0].Quantity)
}

func TestSubscribe_DeliversMutationsInOrder(t *testing.T) {
	s := NewStore(newMemKV())

	var counts []int
	cancel := s.Subscribe(func(items []LineItem) {
		total := 0
		for _, item := range items {
			total += item.Quantity
		}
		counts = append(counts, total)
	})
	defer cancel()

	p := testProduct("p1", "10", 10)
	s.Add(p, 1, "")
	s.Add(p, 2, "")
	s.SetQuantity("p1", "", 5)
	s.Clear()

	assert.Equal(t, []int{0, 1, 3, 5, 0}, counts)
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	s := NewStore(newMemKV())

	var published int
	cancel := s.Subscribe(func([]LineItem) { published++ })
	cancel()

	s.Add(testProduct("p1", "10", 5), 1, "")

	assert.Equal(t, 1, published)
}

// --- Persistence ---

func TestHydrate_RoundTripsPersistedCart(t *testing.T) {
	kv := newMemKV()

	s1 := NewStore(kv)
	s1.Add(testProduct("p1", "29.99", 5), 2, "M")
	s1.Add(testProduct("p2", "79.99", 3), 1, "")

	// Discard the store and rehydrate from the persisted value.
	s2 := NewStore(kv)

	assert.Equal(t, s1.Items(), s2.Items())
}

func TestHydrate_CorruptDataStartsEmpty(t *testing.T) {
	kv := newMemKV()
	kv.values[DefaultStorageKey] = []byte("{not json")

	s := NewStore(kv)

	assert.Empty(t, s.Items())
}

func TestHydrate_ReadErrorStartsEmpty(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("storage unavailable")

	s := NewStore(kv)

	assert.Empty(t, s.Items())
}

func TestHydrate_ReclampsTamperedQuantities(t *testing.T) {
	kv := newMemKV()
	s1 := NewStore(kv)
	s1.Add(testProduct("p1", "10", 3), 2, "")

	// Simulate an out-of-band edit pushing the quantity above stock.
	tampered := []LineItem{{Product: testProduct("p1", "10", 3), Quantity: 99}}
	require.NoError(t, kv.Set(DefaultStorageKey, encodeItems(tampered)))

	s2 := NewStore(kv)
	items := s2.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestPersistFailure_MemoryStaysAuthoritative(t *testing.T) {
	kv := newMemKV()
	kv.setErr = errors.New("quota exceeded")

	s := NewStore(kv)
	s.Add(testProduct("p1", "10", 5), 2, "")

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

// --- Reconcile ---

func TestReconcile_RefreshesSnapshotsAndReclamps(t *testing.T) {
	s := NewStore(newMemKV())
	s.Add(testProduct("p1", "10.00", 5), 4, "")
	s.Add(testProduct("p2", "20.00", 5), 2, "")

	catalog := &fakeCatalog{byID: map[string]product.Product{
		"p1": testProduct("p1", "12.50", 3), // price up, stock down
		"p2": testProduct("p2", "20.00", 5),
	}}

	require.NoError(t, s.Reconcile(context.Background(), catalog))

	items := s.Items()
	require.Len(t, items, 2)
	assert.True(t, decimal.RequireFromString("12.50").Equal(items[0].Product.Price))
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 2, items[1].Quantity)
}

func TestReconcile_DropsVanishedAndOutOfStock(t *testing.T) {
	s := NewStore(newMemKV())
	s.Add(testProduct("p1", "10", 5), 1, "")
	s.Add(testProduct("p2", "10", 5), 1, "")
	s.Add(testProduct("p3", "10", 5), 1, "")

	catalog := &fakeCatalog{byID: map[string]product.Product{
		"p1": testProduct("p1", "10", 0), // sold out
		"p3": testProduct("p3", "10", 5),
		// p2 vanished from the catalog
	}}

	require.NoError(t, s.Reconcile(context.Background(), catalog))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p3", items[0].Product.ID)
}

func TestReconcile_FetchErrorLeavesCartUntouched(t *testing.T) {
	s := NewStore(newMemKV())
	s.Add(testProduct("p1", "10", 5), 2, "")

	catalog := &fakeCatalog{err: errors.New("backend down")}

	err := s.Reconcile(context.Background(), catalog)
	require.Error(t, err)
	assert.Equal(t, 2, s.Quantity("p1", ""))
}
