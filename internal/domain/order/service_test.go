package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-shop/internal/domain/cart"
	"github.com/xenking/kart-shop/internal/domain/product"
)

// --- Mock implementations ---

// mockRepo stages writes made inside RunInTx and publishes them only when
// the callback succeeds.
type mockRepo struct {
	mu       sync.Mutex
	products map[string]product.Product
	orders   map[string]*Order

	createErr error
	addErr    error
	lookupErr error
	listErr   error

	commits   int
	rollbacks int
}

func newMockRepo(products ...product.Product) *mockRepo {
	m := &mockRepo{
		products: make(map[string]product.Product, len(products)),
		orders:   make(map[string]*Order),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

type mockTx struct {
	repo   *mockRepo
	staged map[string]*Order
}

func (t *mockTx) GetByID(_ context.Context, id string) (*product.Product, error) {
	if t.repo.lookupErr != nil {
		return nil, t.repo.lookupErr
	}
	p, ok := t.repo.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (t *mockTx) CreateOrder(_ context.Context, o *Order) error {
	if t.repo.createErr != nil {
		return t.repo.createErr
	}
	t.staged[o.ID] = &Order{ID: o.ID, CreatedAt: o.CreatedAt}
	return nil
}

func (t *mockTx) AddItem(_ context.Context, orderID string, it Item) error {
	if t.repo.addErr != nil {
		return t.repo.addErr
	}
	o, ok := t.staged[orderID]
	if !ok {
		return errors.New("unknown order")
	}
	o.Items = append(o.Items, it)
	return nil
}

func (m *mockRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &mockTx{repo: m, staged: make(map[string]*Order)}
	if err := fn(ctx, tx); err != nil {
		m.rollbacks++
		return err
	}
	for id, o := range tx.staged {
		m.orders[id] = o
	}
	m.commits++
	return nil
}

func (m *mockRepo) List(_ context.Context) ([]Summary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Summary, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, Summary{ID: o.ID, CreatedAt: o.CreatedAt, Total: o.Total()})
	}
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

// --- Helpers ---

func newTestService(repo *mockRepo) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "order-1" }
	return svc
}

func laptop(price string) product.Product {
	return product.Product{ID: "p1", Name: "Laptop", Price: decimal.RequireFromString(price)}
}

// --- Tests ---

func TestCheckout_EmptyCart(t *testing.T) {
	repo := newMockRepo(laptop("100"))
	svc := newTestService(repo)

	start := cart.State{Items: map[string]int{}, DiscountPercent: 10}
	res, st, err := svc.Checkout(context.Background(), start)

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, res)
	assert.Equal(t, start, st)
	assert.Zero(t, repo.commits+repo.rollbacks, "no transaction must be opened")
}

func TestCheckout_NoCoupon(t *testing.T) {
	repo := newMockRepo(laptop("100"))
	svc := newTestService(repo)

	res, st, err := svc.Checkout(context.Background(), cart.State{Items: map[string]int{"p1": 2}})
	require.NoError(t, err)

	assert.Equal(t, "order-1", res.OrderID)
	assert.Equal(t, "200.00", res.Total.StringFixed(2))
	assert.True(t, st.IsEmpty())

	saved := repo.orders["order-1"]
	require.NotNil(t, saved)
	require.Len(t, saved.Items, 1)
	assert.Equal(t, "p1", saved.Items[0].ProductID)
	assert.Equal(t, 2, saved.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(100).Equal(saved.Items[0].Price))
	assert.Equal(t, 1, repo.commits)
}

func TestCheckout_WithDiscount(t *testing.T) {
	repo := newMockRepo(laptop("100"))
	svc := newTestService(repo)

	res, st, err := svc.Checkout(context.Background(), cart.State{
		Items:           map[string]int{"p1": 2},
		DiscountPercent: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, "180.00", res.Total.StringFixed(2))
	assert.True(t, decimal.NewFromInt(200).Equal(res.Subtotal))
	assert.Equal(t, 10, res.DiscountPercent)
	assert.False(t, st.HasDiscount(), "coupon must be cleared after checkout")
}

func TestCheckout_RoundsTotal(t *testing.T) {
	tests := []struct {
		name     string
		items    map[string]int
		percent  int
		expected string
	}{
		{name: "third off odd price", items: map[string]int{"a": 1}, percent: 33, expected: "6.69"},
		{name: "sum before discount", items: map[string]int{"a": 3, "b": 1}, percent: 15, expected: "27.47"},
		{name: "full discount", items: map[string]int{"a": 1, "b": 2}, percent: 100, expected: "0.00"},
		{name: "half up", items: map[string]int{"c": 1}, percent: 50, expected: "0.03"},
	}

	catalog := []product.Product{
		{ID: "a", Name: "A", Price: decimal.RequireFromString("9.99")},
		{ID: "b", Name: "B", Price: decimal.RequireFromString("2.35")},
		{ID: "c", Name: "C", Price: decimal.RequireFromString("0.05")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMockRepo(catalog...))
			res, _, err := svc.Checkout(context.Background(), cart.State{Items: tt.items, DiscountPercent: tt.percent})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Total.StringFixed(2))
		})
	}
}

func TestCheckout_ProductVanished(t *testing.T) {
	repo := newMockRepo(laptop("100"))
	svc := newTestService(repo)

	start := cart.State{Items: map[string]int{"p1": 1, "p9": 1}, DiscountPercent: 10}
	res, st, err := svc.Checkout(context.Background(), start)

	var vanished *ProductVanishedError
	require.ErrorAs(t, err, &vanished)
	assert.Equal(t, "p9", vanished.ProductID)
	assert.Nil(t, res)
	assert.Equal(t, start, st)
	assert.Equal(t, map[string]int{"p1": 1, "p9": 1}, start.Items)
	assert.Empty(t, repo.orders, "no order must be persisted")
	assert.Equal(t, 1, repo.rollbacks)
}

func TestCheckout_PersistenceFailures(t *testing.T) {
	dbErr := errors.New("connection reset")

	tests := []struct {
		name  string
		setup func(*mockRepo)
	}{
		{name: "create order", setup: func(m *mockRepo) { m.createErr = dbErr }},
		{name: "add item", setup: func(m *mockRepo) { m.addErr = dbErr }},
		{name: "product lookup", setup: func(m *mockRepo) { m.lookupErr = dbErr }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo(laptop("100"))
			tt.setup(repo)
			svc := newTestService(repo)

			start := cart.State{Items: map[string]int{"p1": 2}}
			_, st, err := svc.Checkout(context.Background(), start)

			var perr *PersistenceError
			require.ErrorAs(t, err, &perr)
			assert.ErrorIs(t, err, dbErr)
			assert.Equal(t, start, st)
			assert.Empty(t, repo.orders)
		})
	}
}

func TestCheckout_SnapshotSurvivesPriceChange(t *testing.T) {
	repo := newMockRepo(laptop("100"))
	svc := newTestService(repo)

	res, _, err := svc.Checkout(context.Background(), cart.State{Items: map[string]int{"p1": 2}})
	require.NoError(t, err)

	repo.products["p1"] = laptop("999")

	o, err := svc.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", o.Total().StringFixed(2))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "200.00", list[0].Total.StringFixed(2))
}

func TestCheckout_SubsequentAddStartsFresh(t *testing.T) {
	repo := newMockRepo(laptop("100"))
	svc := newTestService(repo)

	_, st, err := svc.Checkout(context.Background(), cart.State{Items: map[string]int{"p1": 1}, DiscountPercent: 10})
	require.NoError(t, err)

	st.Items["p1"] = 1
	assert.Equal(t, cart.State{Items: map[string]int{"p1": 1}}, st)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(newMockRepo())

	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "get order missing")
}

func TestList_Error(t *testing.T) {
	repo := newMockRepo()
	repo.listErr = errors.New("boom")
	svc := newTestService(repo)

	_, err := svc.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list orders")
}

func TestOrder_Total(t *testing.T) {
	o := &Order{Items: []Item{
		{ProductID: "a", Quantity: 2, Price: decimal.RequireFromString("1.10")},
		{ProductID: "b", Quantity: 3, Price: decimal.RequireFromString("0.30")},
	}}
	assert.Equal(t, "3.10", o.Total().StringFixed(2))
	assert.True(t, (&Order{}).Total().IsZero())
}
