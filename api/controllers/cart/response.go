package cart

import (
	cartsvc "github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

type CartLineResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Images      []string        `json:"images"`
	Shop        cartsvc.ShopRef `json:"shop"`
	VariantID   string          `json:"variant_id,omitempty"`
	Color       string          `json:"color,omitempty"`
	Size        string          `json:"size,omitempty"`
	Model       string          `json:"model,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	Lines     []CartLineResponse `json:"lines"`
	Total     decimal.Decimal    `json:"total"`
	ItemCount int                `json:"item_count"`
	Loading   bool               `json:"loading"`
	Mode      enums.CartMode     `json:"mode"`
}

type ReconcileResponse struct {
	Synced bool `json:"synced"`
}

func newCartResponse(state cartsvc.State) CartResponse {
	lines := make([]CartLineResponse, 0, len(state.Lines))
	for _, line := range state.Lines {
		out := CartLineResponse{
			ID:        line.ID,
			ProductID: line.ProductID(),
			Images:    []string{},
			VariantID: line.VariantID(),
			Color:     line.Color,
			Size:      line.Size,
			Model:     line.Model,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice(),
			Subtotal:  line.Subtotal(),
		}
		if line.Product != nil {
			out.ProductName = line.Product.Name
			if len(line.Product.Images) > 0 {
				out.Images = line.Product.Images
			}
			if line.Product.Shop != nil {
				out.Shop = *line.Product.Shop
			}
		}
		lines = append(lines, out)
	}
	return CartResponse{
		Lines:     lines,
		Total:     state.Total,
		ItemCount: state.ItemCount,
		Loading:   state.Loading,
		Mode:      state.Mode,
	}
}
