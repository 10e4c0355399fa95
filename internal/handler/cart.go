package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/kart-shop/internal/domain/cart"
)

// GetCart returns the caller's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	st, err := h.carts.Load(r.Context(), h.session(w, r))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "load cart"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, st) })
}

// AddToCart adds {"product_id", "qty"} to the cart. qty defaults to 1.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	body, err := decodeItemBody(r)
	if err != nil {
		h.countMutation(r.Context(), "add", err)
		writeError(w, r, err)
		return
	}
	st, ok := h.mutateCart(w, r, "add", func(ctx context.Context, st cart.State) (cart.State, error) {
		return h.cartSvc.Add(ctx, st, cart.AddRequest{ProductID: body.productID, Quantity: body.quantity})
	})
	if ok {
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, st) })
	}
}

// SetCartItem overwrites the quantity of an item already in the cart.
func (h *Handler) SetCartItem(w http.ResponseWriter, r *http.Request) {
	body, err := decodeItemBody(r)
	if err == nil && body.quantity == nil {
		err = cart.ErrInvalidQuantity
	}
	if err != nil {
		h.countMutation(r.Context(), "set_quantity", err)
		writeError(w, r, err)
		return
	}
	st, ok := h.mutateCart(w, r, "set_quantity", func(_ context.Context, st cart.State) (cart.State, error) {
		return h.cartSvc.SetQuantity(st, cart.SetQuantityRequest{ProductID: body.productID, Quantity: *body.quantity})
	})
	if ok {
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, st) })
	}
}

// RemoveCartItem deletes an item from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "product_id")
	st, ok := h.mutateCart(w, r, "remove", func(_ context.Context, st cart.State) (cart.State, error) {
		return h.cartSvc.Remove(st, id)
	})
	if ok {
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, st) })
	}
}

// ApplyCoupon sets the cart discount from {"code"}.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var code string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		var err error
		code, err = decodeID(d, key)
		return err
	})
	if err != nil {
		h.countMutation(r.Context(), "apply_coupon", err)
		writeError(w, r, err)
		return
	}
	st, ok := h.mutateCart(w, r, "apply_coupon", func(ctx context.Context, st cart.State) (cart.State, error) {
		return h.cartSvc.ApplyCoupon(ctx, st, cart.ApplyCouponRequest{Code: code})
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(fmt.Sprintf("Coupon applied: %d%%", st.DiscountPercent)) })
			e.Field("discount_percent", func(e *jx.Encoder) { e.Int(st.DiscountPercent) })
		})
	})
}

// mutateCart loads the session cart, applies fn and saves the result. On
// failure it writes the error response and reports false.
func (h *Handler) mutateCart(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	fn func(ctx context.Context, st cart.State) (cart.State, error),
) (cart.State, bool) {
	ctx := r.Context()
	sid := h.session(w, r)

	st, err := h.carts.Load(ctx, sid)
	if err != nil {
		err = errors.Wrap(err, "load cart")
	} else if st, err = fn(ctx, st); err == nil {
		if saveErr := h.carts.Save(ctx, sid, st); saveErr != nil {
			err = errors.Wrap(saveErr, "save cart")
		}
	}

	h.countMutation(ctx, op, err)
	if err != nil {
		writeError(w, r, err)
		return cart.State{}, false
	}
	return st, true
}

func (h *Handler) countMutation(ctx context.Context, op string, err error) {
	h.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", resultLabel(err)),
	))
}
