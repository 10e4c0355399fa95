//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestCart_AddAndView(t *testing.T) {
	c := newSession(t)

	cart := expect[cartResponse](t, do(t, c, http.MethodGet, "/api/cart", nil), http.StatusOK)
	if len(cart.Items) != 0 {
		t.Fatalf("new cart must be empty, got %v", cart.Items)
	}

	expect[cartResponse](t, do(t, c, http.MethodPost, "/api/cart/add",
		map[string]any{"product_id": 1, "qty": 2}), http.StatusOK)
	cart = expect[cartResponse](t, do(t, c, http.MethodPost, "/api/cart/add",
		map[string]any{"productId": "1", "qty": "3"}), http.StatusOK)
	if cart.Items["1"] != 5 {
		t.Fatalf("qty: got %d, want 5", cart.Items["1"])
	}

	cart = expect[cartResponse](t, do(t, c, http.MethodGet, "/api/cart", nil), http.StatusOK)
	if cart.Items["1"] != 5 {
		t.Fatalf("persisted qty: got %d, want 5", cart.Items["1"])
	}

	other := expect[cartResponse](t, doGet(t, "/api/cart"), http.StatusOK)
	if len(other.Items) != 0 {
		t.Fatalf("carts must be isolated per session, got %v", other.Items)
	}
}

func TestCart_AddErrors(t *testing.T) {
	c := newSession(t)

	expect[errorResponse](t, do(t, c, http.MethodPost, "/api/cart/add",
		map[string]any{"product_id": "1", "qty": 0}), http.StatusBadRequest)
	expect[errorResponse](t, do(t, c, http.MethodPost, "/api/cart/add",
		map[string]any{"product_id": "999"}), http.StatusNotFound)
	expect[errorResponse](t, do(t, c, http.MethodPost, "/api/cart/add",
		map[string]any{"qty": 1}), http.StatusBadRequest)
}

func TestCart_SetAndRemove(t *testing.T) {
	c := newSession(t)

	expect[cartResponse](t, do(t, c, http.MethodPost, "/api/cart/add",
		map[string]any{"product_id": "2"}), http.StatusOK)

	cart := expect[cartResponse](t, do(t, c, http.MethodPatch, "/api/cart/item",
		map[string]any{"product_id": "2", "qty": 4}), http.StatusOK)
	if cart.Items["2"] != 4 {
		t.Fatalf("qty: got %d, want 4", cart.Items["2"])
	}

	expect[errorResponse](t, do(t, c, http.MethodPatch, "/api/cart/item",
		map[string]any{"product_id": "3", "qty": 1}), http.StatusNotFound)

	cart = expect[cartResponse](t, do(t, c, http.MethodDelete, "/api/cart/item/2", nil), http.StatusOK)
	if len(cart.Items) != 0 {
		t.Fatalf("cart must be empty after remove, got %v", cart.Items)
	}

	expect[errorResponse](t, do(t, c, http.MethodDelete, "/api/cart/item/2", nil), http.StatusNotFound)
}

func TestCart_ApplyCoupon(t *testing.T) {
	c := newSession(t)

	res := expect[couponResponse](t, do(t, c, http.MethodPost, "/api/cart/apply-coupon",
		map[string]any{"code": "welcome10"}), http.StatusOK)
	if res.DiscountPercent != 10 || res.Message != "Coupon applied: 10%" {
		t.Fatalf("unexpected response: %+v", res)
	}

	expect[errorResponse](t, do(t, c, http.MethodPost, "/api/cart/apply-coupon",
		map[string]any{"code": "NOPE"}), http.StatusNotFound)
	expect[errorResponse](t, do(t, c, http.MethodPost, "/api/cart/apply-coupon",
		map[string]any{"code": " "}), http.StatusBadRequest)

	cart := expect[cartResponse](t, do(t, c, http.MethodGet, "/api/cart", nil), http.StatusOK)
	if cart.DiscountPercent != 10 {
		t.Fatalf("discount: got %d, want 10", cart.DiscountPercent)
	}
}
