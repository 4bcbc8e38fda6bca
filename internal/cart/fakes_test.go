package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/packfinderz-storefront/pkg/auth"
	"github.com/angelmondragon/packfinderz-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/marketplace"
	"github.com/angelmondragon/packfinderz-storefront/pkg/snapshot"
	"github.com/shopspring/decimal"
)

var errBoom = errors.New("boom")

func customerSession() auth.Session {
	return auth.Session{UserID: "user-1", Role: enums.UserRoleCustomer, Token: "token-1"}
}

func vendorSession() auth.Session {
	return auth.Session{UserID: "user-2", Role: enums.UserRoleVendor, Token: "token-2"}
}

type fakeCatalog struct {
	mu          sync.Mutex
	products    map[string]*marketplace.Product
	variants    map[string][]marketplace.Variant
	productErr  error
	variantErr  error
	productHits int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[string]*marketplace.Product{
			"P1": {ID: "P1", Name: "Robe", UnitPrice: decimal.RequireFromString("10.50"), Shop: &marketplace.Shop{ID: "S1", Name: "Chez Awa"}},
			"P2": {ID: "P2", Name: "Sac", UnitPrice: decimal.RequireFromString("4")},
		},
		variants: map[string][]marketplace.Variant{
			"P1": {
				{ID: "V1", Color: "rouge", Size: "M", PriceAdjustment: decimal.NewNullDecimal(decimal.RequireFromString("12")), Stock: 3},
				{ID: "V2", Color: "bleu", Size: "L"},
			},
		},
	}
}

func (f *fakeCatalog) GetProduct(_ context.Context, productID string) (*marketplace.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productHits++
	if f.productErr != nil {
		return nil, f.productErr
	}
	product, ok := f.products[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	copied := *product
	return &copied, nil
}

func (f *fakeCatalog) GetProductVariants(_ context.Context, productID string) ([]marketplace.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.variantErr != nil {
		return nil, f.variantErr
	}
	return f.variants[productID], nil
}

type remoteCall struct {
	op        string
	token     string
	productID string
	quantity  int
	variantID string
	lineID    string
}

type fakeRemote struct {
	mu      sync.Mutex
	lines   []marketplace.CartLine
	getErr  error
	addErr  error
	failAdd int // 1-based index of the add call that fails; 0 disables
	calls   []remoteCall
	adds    int
	block   chan struct{}
}

func (f *fakeRemote) GetCart(_ context.Context, token string) ([]marketplace.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, remoteCall{op: "get", token: token})
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.lines, nil
}

func (f *fakeRemote) AddToCart(_ context.Context, token, productID string, quantity int, variantID string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds++
	f.calls = append(f.calls, remoteCall{op: "add", token: token, productID: productID, quantity: quantity, variantID: variantID})
	if f.failAdd > 0 && f.adds == f.failAdd {
		return fmt.Errorf("add %d: %w", f.adds, errBoom)
	}
	return f.addErr
}

func (f *fakeRemote) RemoveFromCart(_ context.Context, token, lineID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, remoteCall{op: "remove", token: token, lineID: lineID})
	return nil
}

func (f *fakeRemote) ClearCart(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, remoteCall{op: "clear", token: token})
	return nil
}

func (f *fakeRemote) recorded() []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteCall(nil), f.calls...)
}

func (f *fakeRemote) ops() []string {
	calls := f.recorded()
	out := make([]string, 0, len(calls))
	for _, call := range calls {
		out = append(out, call.op)
	}
	return out
}

// countingSnapshots wraps a scoped memory snapshot and counts deletes.
type countingSnapshots struct {
	*snapshot.Store
	mu      sync.Mutex
	deletes int
}

func (c *countingSnapshots) Delete(ctx context.Context) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.Store.Delete(ctx)
}

type storeFixture struct {
	catalog   *fakeCatalog
	remote    *fakeRemote
	backend   *snapshot.MemoryBackend
	snapshots *countingSnapshots
	store     *Store
}

func newStoreFixture() (*storeFixture, error) {
	fx := &storeFixture{
		catalog: newFakeCatalog(),
		remote:  &fakeRemote{},
		backend: snapshot.NewMemoryBackend(),
	}
	fx.snapshots = &countingSnapshots{Store: snapshot.Scoped(fx.backend, "device-1")}
	store, err := fx.newStore()
	if err != nil {
		return nil, err
	}
	fx.store = store
	return fx, nil
}

// newStore builds a second store sharing the fixture's collaborators and storage.
func (fx *storeFixture) newStore() (*Store, error) {
	return NewStore(StoreParams{
		Catalog:   fx.catalog,
		Remote:    fx.remote,
		Snapshots: fx.snapshots,
	})
}
