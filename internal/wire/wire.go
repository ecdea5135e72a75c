// Package wire encodes and decodes WebLarek API payloads with jx.
package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/domain/product"
)

// ProductList is the body of GET /product.
type ProductList struct {
	Total int
	Items []product.Product
}

// EncodeProduct writes p as a JSON object. A missing price is written as null.
func EncodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("image")
	e.Str(p.Image)
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("price")
	if p.Price.Valid {
		encodeDecimal(e, p.Price.Decimal)
	} else {
		e.Null()
	}
	e.ObjEnd()
}

// DecodeProduct reads one product object. Unknown keys are skipped.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "title":
			p.Title, err = d.Str()
		case "category":
			var s string
			s, err = d.Str()
			p.Category = product.Category(s)
		case "price":
			p.Price, err = decodeNullDecimal(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return p, err
}

// EncodeProductList writes the catalog listing.
func EncodeProductList(e *jx.Encoder, items []product.Product) {
	e.ObjStart()
	e.FieldStart("total")
	e.Int(len(items))
	e.FieldStart("items")
	e.ArrStart()
	for _, p := range items {
		EncodeProduct(e, p)
	}
	e.ArrEnd()
	e.ObjEnd()
}

// DecodeProductList reads the catalog listing.
func DecodeProductList(d *jx.Decoder) (ProductList, error) {
	var l ProductList
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "total":
			n, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "total")
			}
			l.Total = n
			return nil
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := DecodeProduct(d)
				if err != nil {
					return errors.Wrapf(err, "item %d", len(l.Items))
				}
				l.Items = append(l.Items, p)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return l, err
}

// EncodeOrder writes an order submission.
func EncodeOrder(e *jx.Encoder, o order.Draft) {
	e.ObjStart()
	e.FieldStart("payment")
	e.Str(string(o.Payment))
	e.FieldStart("email")
	e.Str(o.Email)
	e.FieldStart("phone")
	e.Str(o.Phone)
	e.FieldStart("address")
	e.Str(o.Address)
	e.FieldStart("total")
	encodeDecimal(e, o.Total)
	e.FieldStart("items")
	e.ArrStart()
	for _, id := range o.Items {
		e.Str(id)
	}
	e.ArrEnd()
	e.ObjEnd()
}

// DecodeOrder reads an order submission. The payment literal is kept as sent
// so that the receiver can reject unknown methods.
func DecodeOrder(d *jx.Decoder) (order.Draft, error) {
	var o order.Draft
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "payment":
			var s string
			s, err = decodeOptStr(d)
			o.Payment = order.PaymentMethod(s)
		case "email":
			o.Email, err = decodeOptStr(d)
		case "phone":
			o.Phone, err = decodeOptStr(d)
		case "address":
			o.Address, err = decodeOptStr(d)
		case "total":
			var n decimal.NullDecimal
			n, err = decodeNullDecimal(d)
			o.Total = n.Decimal
		case "items":
			o.Items = []string{}
			err = d.Arr(func(d *jx.Decoder) error {
				id, err := d.Str()
				if err != nil {
					return err
				}
				o.Items = append(o.Items, id)
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return o, err
}

// EncodeResult writes an order response: {"id","total"} on success or
// {"error"} on rejection.
func EncodeResult(e *jx.Encoder, r order.Result) {
	if r.Error != "" {
		EncodeError(e, r.Error)
		return
	}
	e.ObjStart()
	e.FieldStart("id")
	e.Str(r.ID)
	e.FieldStart("total")
	encodeDecimal(e, r.Total)
	e.ObjEnd()
}

// DecodeResult reads an order response or an error body.
func DecodeResult(d *jx.Decoder) (order.Result, error) {
	var r order.Result
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			r.ID, err = d.Str()
		case "total":
			var n decimal.NullDecimal
			n, err = decodeNullDecimal(d)
			r.Total = n.Decimal
		case "error":
			r.Error, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return r, err
}

// EncodeError writes {"error": msg}.
func EncodeError(e *jx.Encoder, msg string) {
	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	e.ObjEnd()
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func decodeNullDecimal(d *jx.Decoder) (decimal.NullDecimal, error) {
	if d.Next() == jx.Null {
		return decimal.NullDecimal{}, d.Null()
	}
	n, err := d.Num()
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	raw := n.String()
	if n.Str() {
		raw = raw[1 : len(raw)-1]
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, errors.Wrapf(err, "parse %q", raw)
	}
	return decimal.NewNullDecimal(v), nil
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
