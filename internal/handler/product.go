package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-shop/internal/domain/product"
)

// ListProducts returns every product in the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				encodeProduct(e, p)
			}
		})
	})
}

// GetProduct returns a single product by id.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, *p) })
}

// CreateProduct adds a product from {"name", "price"}.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var (
		p        product.Product
		hasPrice bool
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			if d.Next() != jx.String {
				if err := d.Skip(); err != nil {
					return err
				}
				return product.ErrInvalid
			}
			name, err := d.Str()
			p.Name = strings.TrimSpace(name)
			return err
		case "price":
			price, err := decodePrice(d)
			p.Price, hasPrice = price, err == nil
			return err
		default:
			return d.Skip()
		}
	})
	if err == nil && !hasPrice {
		err = product.ErrInvalid
	}
	if err == nil {
		err = h.products.Create(r.Context(), &p)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeProduct(e, p) })
}
