package cart

import (
	"github.com/angelmondragon/packfinderz-storefront/pkg/enums"
	"github.com/angelmondragon/packfinderz-storefront/pkg/marketplace"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps the quantity of a single line.
const MaxLineQuantity = 999

// UnknownShop is backfilled onto products whose shop is missing.
var UnknownShop = ShopRef{ID: "unknown", Name: "Boutique inconnue"}

// ShopRef is the vendor snapshot carried by a product.
type ShopRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// ProductRef is a copy of the product taken when the line was built.
type ProductRef struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Images    []string        `json:"images,omitempty"`
	Shop      *ShopRef        `json:"shop,omitempty"`
}

// VariantRef is the selected variant of a line. A null PriceAdjustment means the variant
// details could not be fetched and the product unit price applies.
type VariantRef struct {
	ID              string              `json:"id"`
	Color           string              `json:"color,omitempty"`
	Size            string              `json:"size,omitempty"`
	Model           string              `json:"model,omitempty"`
	PriceAdjustment decimal.NullDecimal `json:"price_adjustment"`
	Stock           int                 `json:"stock"`
}

// Line is one entry of the cart.
type Line struct {
	ID       string      `json:"id"`
	Product  *ProductRef `json:"product"`
	Quantity int         `json:"quantity"`
	Variant  *VariantRef `json:"variant,omitempty"`
	Color    string      `json:"color,omitempty"`
	Size     string      `json:"size,omitempty"`
	Model    string      `json:"model,omitempty"`
}

// ProductID returns the id of the referenced product, or "" when the reference is missing.
func (l Line) ProductID() string {
	if l.Product == nil {
		return ""
	}
	return l.Product.ID
}

// VariantID returns the selected variant id, or "" for a line without variant.
func (l Line) VariantID() string {
	if l.Variant == nil {
		return ""
	}
	return l.Variant.ID
}

// UnitPrice is the variant price when known, the product unit price otherwise.
func (l Line) UnitPrice() decimal.Decimal {
	if l.Variant != nil && l.Variant.PriceAdjustment.Valid {
		return l.Variant.PriceAdjustment.Decimal
	}
	if l.Product == nil {
		return decimal.Zero
	}
	return l.Product.UnitPrice
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) matches(productID, variantID string) bool {
	return l.ProductID() == productID && l.VariantID() == variantID
}

// State is the published view of the cart.
type State struct {
	Lines     []Line          `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	Loading   bool            `json:"loading"`
	Mode      enums.CartMode  `json:"mode"`
}

// Total sums the line subtotals. The marketplace total is never trusted.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func itemCount(lines []Line) int {
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return count
}

// cloneLines deep-copies lines so callers never share the refs held by a store.
func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	for i, line := range lines {
		out[i] = line.clone()
	}
	return out
}

func (l Line) clone() Line {
	if l.Product != nil {
		product := *l.Product
		product.Images = append([]string(nil), l.Product.Images...)
		if l.Product.Shop != nil {
			shop := *l.Product.Shop
			product.Shop = &shop
		}
		l.Product = &product
	}
	if l.Variant != nil {
		variant := *l.Variant
		l.Variant = &variant
	}
	return l
}

func productRefFrom(product *marketplace.Product) *ProductRef {
	ref := &ProductRef{
		ID:        product.ID,
		Name:      product.Name,
		UnitPrice: product.UnitPrice,
		Images:    append([]string(nil), product.Images...),
	}
	if product.Shop != nil {
		ref.Shop = &ShopRef{ID: product.Shop.ID, Name: product.Shop.Name, Logo: product.Shop.Logo}
	}
	backfillShop(ref)
	return ref
}

func variantRefFrom(variant marketplace.Variant) *VariantRef {
	return &VariantRef{
		ID:              variant.ID,
		Color:           variant.Color,
		Size:            variant.Size,
		Model:           variant.Model,
		PriceAdjustment: variant.PriceAdjustment,
		Stock:           variant.Stock,
	}
}

// withVariant sets the variant and mirrors its attributes onto the line.
func (l *Line) withVariant(variant *VariantRef) {
	l.Variant = variant
	if variant == nil {
		return
	}
	l.Color = variant.Color
	l.Size = variant.Size
	l.Model = variant.Model
}

func backfillShop(product *ProductRef) {
	if product.Shop == nil || (product.Shop.ID == "" && product.Shop.Name == "") {
		shop := UnknownShop
		product.Shop = &shop
	}
}
