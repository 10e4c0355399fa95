package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-shop/internal/domain/cart"
	"github.com/xenking/kart-shop/internal/domain/order"
	"github.com/xenking/kart-shop/internal/domain/product"
)

// errorStatus maps a domain error to an HTTP status and client message.
func errorStatus(err error) (int, string) {
	var (
		bre      *badRequestError
		pnf      *cart.ProductNotFoundError
		vanished *order.ProductVanishedError
	)
	switch {
	case errors.As(err, &bre):
		return http.StatusBadRequest, bre.msg
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrEmptyCode),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, product.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &pnf):
		return http.StatusNotFound, pnf.Error()
	case errors.As(err, &vanished):
		return http.StatusConflict, vanished.Error()
	case errors.Is(err, cart.ErrItemNotInCart),
		errors.Is(err, cart.ErrCouponNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError writes {"code":..,"message":..}. Server errors are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

// resultLabel classifies an outcome for metrics.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	status, _ := errorStatus(err)
	if status >= http.StatusInternalServerError {
		return "error"
	}
	return "rejected"
}
