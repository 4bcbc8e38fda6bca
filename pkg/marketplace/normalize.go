package marketplace

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// The marketplace API has shipped several field spellings over time (English and French
// names, string or array image lists). Every payload goes through the functions below; the
// key lists are in precedence order and the first non-empty value wins.
var (
	productIDKeys    = []string{"id", "_id", "product_id", "produit_id"}
	productNameKeys  = []string{"name", "nom", "title", "titre"}
	productPriceKeys = []string{"price", "prix", "unit_price", "prix_unitaire"}
	productImageKeys = []string{"images", "image", "photos"}
	productShopKeys  = []string{"shop", "boutique", "store", "vendor"}

	shopIDKeys   = []string{"id", "_id"}
	shopNameKeys = []string{"name", "nom"}
	shopLogoKeys = []string{"logo", "logo_url"}

	variantIDKeys    = []string{"id", "_id"}
	variantColorKeys = []string{"color", "couleur"}
	variantSizeKeys  = []string{"size", "taille"}
	variantModelKeys = []string{"model", "modele"}
	variantPriceKeys = []string{"price_adjustment", "prix", "price"}
	variantStockKeys = []string{"stock", "quantite_stock"}

	lineIDKeys        = []string{"id", "_id"}
	lineProductKeys   = []string{"product", "produit"}
	lineProductIDKeys = []string{"product_id", "produit_id"}
	lineQuantityKeys  = []string{"quantity", "quantite"}
	lineVariantIDKeys = []string{"variant_id", "variante_id"}
	lineVariantKeys   = []string{"variant", "variante"}
)

type payload map[string]any

// normalizeProduct maps a raw product object. It fails only when no id can be found.
func normalizeProduct(raw payload) (*Product, error) {
	id := raw.str(productIDKeys...)
	if id == "" {
		return nil, fmt.Errorf("product payload missing id")
	}
	product := &Product{
		ID:        id,
		Name:      raw.str(productNameKeys...),
		UnitPrice: raw.dec(productPriceKeys...),
		Images:    raw.images(productImageKeys...),
	}
	if shop := raw.object(productShopKeys...); shop != nil {
		product.Shop = &Shop{
			ID:   shop.str(shopIDKeys...),
			Name: shop.str(shopNameKeys...),
			Logo: shop.str(shopLogoKeys...),
		}
	}
	return product, nil
}

func normalizeVariant(raw payload) Variant {
	return Variant{
		ID:              raw.str(variantIDKeys...),
		Color:           raw.str(variantColorKeys...),
		Size:            raw.str(variantSizeKeys...),
		Model:           raw.str(variantModelKeys...),
		PriceAdjustment: raw.nullDec(variantPriceKeys...),
		Stock:           raw.integer(variantStockKeys...),
	}
}

func normalizeCartLine(raw payload) CartLine {
	line := CartLine{
		ID:        raw.str(lineIDKeys...),
		Quantity:  raw.integer(lineQuantityKeys...),
		ProductID: raw.str(lineProductIDKeys...),
		VariantID: raw.str(lineVariantIDKeys...),
	}
	if obj := raw.object(lineProductKeys...); obj != nil {
		if product, err := normalizeProduct(obj); err == nil {
			line.Product = product
			if line.ProductID == "" {
				line.ProductID = product.ID
			}
		}
	} else if line.ProductID == "" {
		// some responses inline the bare product id under "product"
		line.ProductID = raw.str(lineProductKeys...)
	}
	if line.VariantID == "" {
		if obj := raw.object(lineVariantKeys...); obj != nil {
			line.VariantID = obj.str(variantIDKeys...)
		} else {
			line.VariantID = raw.str(lineVariantKeys...)
		}
	}
	return line
}

func (p payload) lookup(keys ...string) (any, bool) {
	for _, key := range keys {
		v, ok := p[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func (p payload) str(keys ...string) string {
	v, ok := p.lookup(keys...)
	if !ok {
		return ""
	}
	// nested objects and arrays are not identifiers
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func (p payload) dec(keys ...string) decimal.Decimal {
	return p.nullDec(keys...).Decimal
}

// nullDec is invalid when no key holds a parseable number.
func (p payload) nullDec(keys ...string) decimal.NullDecimal {
	v, ok := p.lookup(keys...)
	if !ok {
		return decimal.NullDecimal{}
	}
	switch typed := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(typed.String()); err == nil {
			return decimal.NewNullDecimal(d)
		}
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(typed))
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(typed)); err == nil {
			return decimal.NewNullDecimal(d)
		}
	}
	return decimal.NullDecimal{}
}

func (p payload) integer(keys ...string) int {
	d := p.dec(keys...)
	return int(d.IntPart())
}

func (p payload) object(keys ...string) payload {
	v, ok := p.lookup(keys...)
	if !ok {
		return nil
	}
	if obj, isObj := v.(map[string]any); isObj {
		return payload(obj)
	}
	return nil
}

// images accepts either an array of strings or a comma-joined string.
func (p payload) images(keys ...string) []string {
	v, ok := p.lookup(keys...)
	if !ok {
		return []string{}
	}
	var parts []string
	switch typed := v.(type) {
	case string:
		parts = strings.Split(typed, ",")
	case []any:
		for _, item := range typed {
			if s, isString := item.(string); isString {
				parts = append(parts, s)
			}
		}
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
