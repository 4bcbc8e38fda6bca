package cart

import "github.com/angelmondragon/packfinderz-storefront/api/validators"

const maxIDLength = 64

// AddItemRequest is the body of POST /api/v1/cart/items. Quantity bounds match
// cart.MaxLineQuantity.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
	VariantID string `json:"variant_id,omitempty" validate:"omitempty,max=64"`
}

func (r AddItemRequest) normalized() AddItemRequest {
	r.ProductID = validators.SanitizeString(r.ProductID, maxIDLength)
	r.VariantID = validators.SanitizeString(r.VariantID, maxIDLength)
	return r
}

// UpdateItemRequest is the body of PATCH /api/v1/cart/items/{lineId}. A zero quantity
// removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=999"`
}
