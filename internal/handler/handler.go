// Package handler binds the cart, checkout and catalog operations to HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/kart-shop/internal/domain/cart"
	"github.com/xenking/kart-shop/internal/domain/order"
	"github.com/xenking/kart-shop/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// CookieName is the name of the cookie carrying the cart session id.
	CookieName string
	// CookieMaxAge bounds the cookie lifetime; zero makes it a session cookie.
	CookieMaxAge time.Duration
	// SecureCookie sets the Secure attribute on the session cookie.
	SecureCookie bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithMeterProvider sets the meter provider used for handler counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(h *Handler) { h.meterProvider = mp }
}

// Handler serves the shop HTTP API.
type Handler struct {
	cfg      Config
	products product.Repository
	carts    cart.Store
	cartSvc  *cart.Service
	orderSvc *order.Service

	meterProvider metric.MeterProvider
	checkouts     metric.Int64Counter
	mutations     metric.Int64Counter
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	carts cart.Store,
	cartSvc *cart.Service,
	orderSvc *order.Service,
	opts ...Option,
) (*Handler, error) {
	if cfg.CookieName == "" {
		cfg.CookieName = "cart_session"
	}
	h := &Handler{
		cfg:           cfg,
		products:      products,
		carts:         carts,
		cartSvc:       cartSvc,
		orderSvc:      orderSvc,
		meterProvider: noop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(h)
	}

	meter := h.meterProvider.Meter("github.com/xenking/kart-shop/internal/handler")
	var err error
	if h.checkouts, err = meter.Int64Counter("shop.checkout.count",
		metric.WithDescription("Checkout attempts by result"),
	); err != nil {
		return nil, errors.Wrap(err, "checkout counter")
	}
	if h.mutations, err = meter.Int64Counter("shop.cart.mutation.count",
		metric.WithDescription("Cart mutations by operation and result"),
	); err != nil {
		return nil, errors.Wrap(err, "mutation counter")
	}
	return h, nil
}

// Register mounts the API routes on r under /api.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Post("/products", h.CreateProduct)
		r.Get("/products/{id}", h.GetProduct)

		r.Get("/cart", h.GetCart)
		r.Post("/cart/add", h.AddToCart)
		r.Patch("/cart/item", h.SetCartItem)
		r.Delete("/cart/item/{product_id}", h.RemoveCartItem)
		r.Post("/cart/apply-coupon", h.ApplyCoupon)

		r.Post("/checkout", h.Checkout)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{id}", h.GetOrder)
	})
}

// session returns the cart session id of the request, issuing a new cookie
// when the request carries none.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(h.cfg.CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()
	c := &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cfg.CookieMaxAge > 0 {
		c.MaxAge = int(h.cfg.CookieMaxAge / time.Second)
	}
	http.SetCookie(w, c)
	return id
}
