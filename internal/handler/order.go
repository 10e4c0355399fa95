package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Checkout converts the session cart into an order and clears the cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := h.session(w, r)

	st, err := h.carts.Load(ctx, sid)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "load cart"))
		return
	}

	res, next, err := h.orderSvc.Checkout(ctx, st)
	h.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", resultLabel(err))))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The order is already committed, so a failed cart reset is only logged.
	if err := h.carts.Save(ctx, sid, next); err != nil {
		zctx.From(ctx).Error("Clear cart after checkout",
			zap.String("order_id", res.OrderID),
			zap.Error(err),
		)
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order_id", func(e *jx.Encoder) { e.Str(res.OrderID) })
			e.Field("total", func(e *jx.Encoder) { encodeMoney(e, res.Total) })
		})
	})
}

// ListOrders returns all orders newest first with their item subtotals.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.orderSvc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, s := range summaries {
				encodeSummary(e, s)
			}
		})
	})
}

// GetOrder returns an order with its items and recomputed total.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrderDetail(e, o) })
}
