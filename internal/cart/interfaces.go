package cart

import (
	"context"

	"github.com/angelmondragon/packfinderz-storefront/pkg/marketplace"
)

// Catalog resolves products and their variants on the marketplace.
type Catalog interface {
	GetProduct(ctx context.Context, productID string) (*marketplace.Product, error)
	GetProductVariants(ctx context.Context, productID string) ([]marketplace.Variant, error)
}

// RemoteCart is the server-side cart surface of an authenticated customer.
type RemoteCart interface {
	GetCart(ctx context.Context, token string) ([]marketplace.CartLine, error)
	AddToCart(ctx context.Context, token, productID string, quantity int, variantID string) error
	RemoveFromCart(ctx context.Context, token, lineID string) error
	ClearCart(ctx context.Context, token string) error
}

// SnapshotStore holds the serialized line list of one device. Read returns
// snapshot.ErrNotFound when nothing was stored yet.
type SnapshotStore interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, payload string) error
	Delete(ctx context.Context) error
}
