package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-shop/internal/domain/cart"
	"github.com/xenking/kart-shop/internal/domain/order"
	"github.com/xenking/kart-shop/internal/domain/product"
)

const maxBodySize = 64 << 10

// badRequestError reports a malformed request body.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// decodeObject reads a JSON object body and calls fn for each field.
// An empty body is treated as an empty object.
func decodeObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return badRequest("read body: %s", err)
	}
	if len(body) > maxBodySize {
		return badRequest("body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := jx.DecodeBytes(body).Obj(fn); err != nil {
		var bre *badRequestError
		switch {
		case errors.As(err, &bre):
			return bre
		case errors.Is(err, cart.ErrInvalidQuantity):
			return cart.ErrInvalidQuantity
		case errors.Is(err, product.ErrInvalid):
			return product.ErrInvalid
		default:
			return badRequest("invalid JSON body")
		}
	}
	return nil
}

// decodeID accepts a JSON string or number as an identifier.
func decodeID(d *jx.Decoder, field string) (string, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		return strings.TrimSpace(s), err
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case jx.Null:
		return "", d.Null()
	default:
		return "", badRequest("%s must be a string or number", field)
	}
}

// decodeQuantity accepts a JSON integer or a numeric string. Null yields nil.
func decodeQuantity(d *jx.Decoder) (*int, error) {
	var raw string
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return nil, err
		}
		raw = strings.TrimSpace(s)
	default:
		return nil, cart.ErrInvalidQuantity
	}
	q, err := strconv.Atoi(raw)
	if err != nil {
		return nil, cart.ErrInvalidQuantity
	}
	return &q, nil
}

// decodePrice accepts a JSON number or a numeric string.
func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = strings.TrimSpace(s)
	default:
		if err := d.Skip(); err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.Decimal{}, product.ErrInvalid
	}
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, product.ErrInvalid
	}
	return p, nil
}

type itemBody struct {
	productID string
	quantity  *int
}

func decodeItemBody(r *http.Request) (itemBody, error) {
	var b itemBody
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id", "productId":
			var id string
			if id, err = decodeID(d, key); err == nil && id != "" {
				b.productID = id
			}
		case "qty", "quantity":
			b.quantity, err = decodeQuantity(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return b, err
	}
	if b.productID == "" {
		return b, badRequest("product_id is required")
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Float64(d.Round(2).InexactFloat64())
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
	})
}

func encodeCart(e *jx.Encoder, st cart.State) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, id := range st.ProductIDs() {
					e.Field(id, func(e *jx.Encoder) { e.Int(st.Items[id]) })
				}
			})
		})
		if st.HasDiscount() {
			e.Field("discount_percent", func(e *jx.Encoder) { e.Int(st.DiscountPercent) })
		}
	})
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeSummary(e *jx.Encoder, s order.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(s.ID) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, s.CreatedAt) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, s.Total) })
	})
}

func encodeOrderDetail(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("order", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
				e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
			})
		})
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product_id", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("qty", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("price", func(e *jx.Encoder) { encodeMoney(e, it.Price) })
					})
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, o.Total()) })
	})
}
