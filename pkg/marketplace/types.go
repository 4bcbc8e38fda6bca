package marketplace

import "github.com/shopspring/decimal"

// Shop describes the vendor storefront that owns a product.
type Shop struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// Product is the normalized product payload. Shop is nil when the API omitted it.
type Product struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Images    []string
	Shop      *Shop
}

// Variant is one purchasable option of a product. PriceAdjustment, when valid, is the price
// charged for the variant in place of the product unit price.
type Variant struct {
	ID              string
	Color           string
	Size            string
	Model           string
	PriceAdjustment decimal.NullDecimal
	Stock           int
}

// CartLine is a line of the server-side cart of a customer.
type CartLine struct {
	ID        string
	ProductID string
	Product   *Product
	Quantity  int
	VariantID string
}
