//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	products := expect[[]productResponse](t, doGet(t, "/api/products"), http.StatusOK)
	if len(products) < seededProducts {
		t.Fatalf("expected at least %d products, got %d", seededProducts, len(products))
	}

	want := []productResponse{
		{ID: "1", Name: "Laptop", Price: 3500},
		{ID: "2", Name: "Monitor", Price: 700},
		{ID: "3", Name: "Myszka", Price: 80},
	}
	for i, w := range want {
		if products[i] != w {
			t.Errorf("product %d: got %+v, want %+v", i, products[i], w)
		}
	}
}

func TestGetProduct(t *testing.T) {
	p := expect[productResponse](t, doGet(t, "/api/products/2"), http.StatusOK)
	if p.Name != "Monitor" {
		t.Errorf("name: got %q, want %q", p.Name, "Monitor")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	errResp := expect[errorResponse](t, doGet(t, "/api/products/999"), http.StatusNotFound)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

func TestCreateProduct(t *testing.T) {
	c := newSession(t)

	p := expect[productResponse](t, do(t, c, http.MethodPost, "/api/products",
		map[string]any{"name": "Keyboard", "price": "149.99"}), http.StatusCreated)
	if p.ID == "" || p.Name != "Keyboard" || p.Price != 149.99 {
		t.Fatalf("unexpected product: %+v", p)
	}

	got := expect[productResponse](t, doGet(t, "/api/products/"+p.ID), http.StatusOK)
	if got != p {
		t.Errorf("got %+v, want %+v", got, p)
	}
}

func TestCreateProduct_Invalid(t *testing.T) {
	c := newSession(t)

	for _, body := range []map[string]any{
		{"name": "", "price": 10},
		{"name": "Pen", "price": -1},
		{"name": "Pen", "price": "abc"},
	} {
		expect[errorResponse](t, do(t, c, http.MethodPost, "/api/products", body), http.StatusBadRequest)
	}
}
