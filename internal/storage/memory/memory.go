// Package memory provides in-process implementations of the domain
// repositories. Orders are committed atomically under a single lock.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-shop/internal/domain/cart"
	"github.com/xenking/kart-shop/internal/domain/coupon"
	"github.com/xenking/kart-shop/internal/domain/order"
	"github.com/xenking/kart-shop/internal/domain/product"
)

var (
	_ product.Repository = (*Catalog)(nil)
	_ coupon.Repository  = (*Coupons)(nil)
	_ order.Repository   = (*Orders)(nil)
	_ cart.Store         = (*CartStore)(nil)
)

// Catalog is an in-memory product catalog with sequential ids.
type Catalog struct {
	mu       sync.RWMutex
	seq      int
	products map[string]product.Product
}

// NewCatalog returns a Catalog holding the given products. Products without
// an id are assigned one.
func NewCatalog(products ...product.Product) *Catalog {
	c := &Catalog{products: make(map[string]product.Product, len(products))}
	for _, p := range products {
		c.put(&p)
	}
	return c
}

func (c *Catalog) put(p *product.Product) {
	if p.ID == "" {
		c.seq++
		p.ID = strconv.Itoa(c.seq)
	}
	c.products[p.ID] = *p
}

// List returns all products in id order.
func (c *Catalog) List(_ context.Context) ([]product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]product.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int {
		return cmp.Or(cmp.Compare(len(a.ID), len(b.ID)), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

// GetByID returns a copy of the product or product.ErrNotFound.
func (c *Catalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// Create validates p, assigns an id and stores it.
func (c *Catalog) Create(_ context.Context, p *product.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p.ID = ""
	c.put(p)
	return nil
}

// Delete removes a product. It reports whether the product existed.
func (c *Catalog) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.products[id]
	delete(c.products, id)
	return ok
}

// SetPrice updates the price of an existing product.
func (c *Catalog) SetPrice(id string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.products[id]; ok {
		cur.Price = price
		c.products[id] = cur
	}
}

// Coupons is an in-memory coupon registry matching codes case-insensitively.
type Coupons struct {
	mu      sync.RWMutex
	percent map[string]int
}

// NewCoupons returns a registry holding the given coupons.
func NewCoupons(coupons ...coupon.Coupon) *Coupons {
	r := &Coupons{percent: make(map[string]int, len(coupons))}
	for _, c := range coupons {
		r.percent[key(c.Code)] = c.Percent
	}
	return r
}

func key(code string) string {
	return strings.ToUpper(coupon.NormalizeCode(code))
}

// Percent returns the discount percent for code or coupon.ErrNotFound.
func (r *Coupons) Percent(_ context.Context, code string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.percent[key(code)]
	if !ok {
		return 0, coupon.ErrNotFound
	}
	return p, nil
}

// Upsert validates all coupons and stores them. Nothing is stored if any
// coupon is invalid.
func (r *Coupons) Upsert(_ context.Context, coupons []coupon.Coupon) error {
	for _, c := range coupons {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range coupons {
		r.percent[key(c.Code)] = c.Percent
	}
	return nil
}

// CartStore keeps carts in a map keyed by session id.
type CartStore struct {
	mu    sync.Mutex
	carts map[string]cart.State
}

// NewCartStore returns an empty CartStore.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]cart.State)}
}

// Load returns a copy of the stored cart or an empty cart.
func (s *CartStore) Load(_ context.Context, sessionID string) (cart.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.carts[sessionID]
	if !ok {
		return cart.New(), nil
	}
	return st.Clone(), nil
}

// Save stores a copy of st for sessionID.
func (s *CartStore) Save(_ context.Context, sessionID string, st cart.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[sessionID] = st.Clone()
	return nil
}
