package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/veilmart/storefront/internal/domain/product"
)

// The persisted cart is a JSON array of line items. Prices are encoded as
// strings so the decimal value round-trips exactly.

// encodeItems serializes line items for the persistence bridge.
func encodeItems(items []LineItem) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, item := range items {
		e.ObjStart()

		e.FieldStart("product")
		encodeProduct(&e, item.Product)

		e.FieldStart("quantity")
		e.Int(item.Quantity)

		if item.Size != "" {
			e.FieldStart("size")
			e.Str(item.Size)
		}

		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Str(p.Price.String())
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("image")
	e.ObjStart()
	e.FieldStart("thumbnail")
	e.Str(p.Image.Thumbnail)
	e.FieldStart("mobile")
	e.Str(p.Image.Mobile)
	e.FieldStart("tablet")
	e.Str(p.Image.Tablet)
	e.FieldStart("desktop")
	e.Str(p.Image.Desktop)
	e.ObjEnd()
	e.ObjEnd()
}

// decodeItems parses a previously persisted cart.
func decodeItems(data []byte) ([]LineItem, error) {
	d := jx.DecodeBytes(data)

	var items []LineItem
	if err := d.Arr(func(d *jx.Decoder) error {
		item, err := decodeItem(d)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return items, nil
}

func decodeItem(d *jx.Decoder) (LineItem, error) {
	var item LineItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product":
			p, err := decodeProduct(d)
			if err != nil {
				return err
			}
			item.Product = p
			return nil
		case "quantity":
			qty, err := d.Int()
			if err != nil {
				return err
			}
			item.Quantity = qty
			return nil
		case "size":
			size, err := d.Str()
			if err != nil {
				return err
			}
			item.Size = size
			return nil
		default:
			return d.Skip()
		}
	})
	return item, err
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			p.ID = v
			return err
		case "name":
			v, err := d.Str()
			p.Name = v
			return err
		case "price":
			raw, err := d.Str()
			if err != nil {
				return err
			}
			price, err := decimal.NewFromString(raw)
			if err != nil {
				return errors.Wrap(err, "parse price")
			}
			p.Price = price
			return nil
		case "stock":
			v, err := d.Int()
			p.Stock = v
			return err
		case "category":
			v, err := d.Str()
			p.Category = v
			return err
		case "image":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "thumbnail":
					v, err := d.Str()
					p.Image.Thumbnail = v
					return err
				case "mobile":
					v, err := d.Str()
					p.Image.Mobile = v
					return err
				case "tablet":
					v, err := d.Str()
					p.Image.Tablet = v
					return err
				case "desktop":
					v, err := d.Str()
					p.Image.Desktop = v
					return err
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	})
	return p, err
}
