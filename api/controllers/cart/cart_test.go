package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packfinderz-storefront/api/middleware"
	cartsvc "github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/pkg/auth"
	"github.com/angelmondragon/packfinderz-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/marketplace"
	"github.com/angelmondragon/packfinderz-storefront/pkg/snapshot"
	"github.com/shopspring/decimal"
)

type stubCatalog struct{}

func (stubCatalog) GetProduct(_ context.Context, productID string) (*marketplace.Product, error) {
	if productID != "P1" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &marketplace.Product{ID: "P1", Name: "Robe wax", UnitPrice: decimal.RequireFromString("15.5")}, nil
}

func (stubCatalog) GetProductVariants(context.Context, string) ([]marketplace.Variant, error) {
	return nil, nil
}

type stubRemote struct {
	mu     sync.Mutex
	addErr error
	ops    []string
}

func (s *stubRemote) record(op string) {
	s.mu.Lock()
	s.ops = append(s.ops, op)
	s.mu.Unlock()
}

func (s *stubRemote) GetCart(context.Context, string) ([]marketplace.CartLine, error) {
	s.record("get")
	return nil, errors.New("remote down")
}

func (s *stubRemote) AddToCart(context.Context, string, string, int, string) error {
	s.record("add")
	return s.addErr
}

func (s *stubRemote) RemoveFromCart(context.Context, string, string) error {
	s.record("remove")
	return nil
}

func (s *stubRemote) ClearCart(context.Context, string) error {
	s.record("clear")
	return nil
}

func newTestRegistry(t *testing.T, remote *stubRemote) *cartsvc.Registry {
	t.Helper()
	reg, err := cartsvc.NewRegistry(cartsvc.RegistryParams{
		Catalog:   stubCatalog{},
		Remote:    remote,
		Snapshots: snapshot.NewMemoryBackend(),
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(reg.Close)
	return reg
}

func newRequest(method, target, body string, sess auth.Session) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithDeviceID(req.Context(), "device-1")
	ctx = middleware.WithSession(ctx, sess)
	return req.WithContext(ctx)
}

func withLineID(req *http.Request, lineID string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("lineId", lineID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func decodeCart(t *testing.T, resp *httptest.ResponseRecorder) CartResponse {
	t.Helper()
	var envelope struct {
		Data CartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func customer() auth.Session {
	return auth.Session{UserID: "u-1", Role: enums.UserRoleCustomer, Token: "tok"}
}

func TestCartAddItemAndFetch(t *testing.T) {
	reg := newTestRegistry(t, &stubRemote{})

	resp := httptest.NewRecorder()
	CartAddItem(reg, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":"P1","quantity":2}`, auth.Anonymous()))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	added := decodeCart(t, resp)
	if len(added.Lines) != 1 || added.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected lines %+v", added.Lines)
	}
	if !added.Total.Equal(decimal.RequireFromString("31")) {
		t.Fatalf("unexpected total %s", added.Total)
	}
	if added.Lines[0].Shop.ID != cartsvc.UnknownShop.ID {
		t.Fatalf("expected placeholder shop, got %+v", added.Lines[0].Shop)
	}

	resp = httptest.NewRecorder()
	CartFetch(reg, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/cart", "", auth.Anonymous()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	fetched := decodeCart(t, resp)
	if fetched.ItemCount != 2 || fetched.Mode != enums.CartModeLocal {
		t.Fatalf("unexpected cart %+v", fetched)
	}
}

func TestCartAddItemValidation(t *testing.T) {
	reg := newTestRegistry(t, &stubRemote{})

	for _, body := range []string{`{"product_id":"P1","quantity":0}`, `{"quantity":1}`, `{"product_id":"P1","quantity":1,"extra":true}`} {
		resp := httptest.NewRecorder()
		CartAddItem(reg, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", body, auth.Anonymous()))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", body, resp.Code)
		}
	}
}

func TestCartAddItemUnknownProduct(t *testing.T) {
	reg := newTestRegistry(t, &stubRemote{})

	resp := httptest.NewRecorder()
	CartAddItem(reg, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":"P404","quantity":1}`, auth.Anonymous()))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartUpdateAndRemoveItem(t *testing.T) {
	reg := newTestRegistry(t, &stubRemote{})

	resp := httptest.NewRecorder()
	CartAddItem(reg, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":"P1","quantity":1}`, auth.Anonymous()))
	lineID := decodeCart(t, resp).Lines[0].ID

	resp = httptest.NewRecorder()
	CartUpdateItem(reg, nil).ServeHTTP(resp, withLineID(newRequest(http.MethodPatch, "/api/v1/cart/items/"+lineID, `{"quantity":4}`, auth.Anonymous()), lineID))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := decodeCart(t, resp); got.Lines[0].Quantity != 4 {
		t.Fatalf("unexpected quantity %d", got.Lines[0].Quantity)
	}

	resp = httptest.NewRecorder()
	CartUpdateItem(reg, nil).ServeHTTP(resp, withLineID(newRequest(http.MethodPatch, "/api/v1/cart/items/"+lineID, `{}`, auth.Anonymous()), lineID))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing quantity got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	CartRemoveItem(reg, nil).ServeHTTP(resp, withLineID(newRequest(http.MethodDelete, "/api/v1/cart/items/"+lineID, "", auth.Anonymous()), lineID))
	if got := decodeCart(t, resp); len(got.Lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", got.Lines)
	}
}

func TestCartClear(t *testing.T) {
	reg := newTestRegistry(t, &stubRemote{})

	CartAddItem(reg, nil).ServeHTTP(httptest.NewRecorder(), newRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":"P1","quantity":3}`, auth.Anonymous()))
	resp := httptest.NewRecorder()
	CartClear(reg, nil).ServeHTTP(resp, newRequest(http.MethodDelete, "/api/v1/cart", "", auth.Anonymous()))
	got := decodeCart(t, resp)
	if len(got.Lines) != 0 || !got.Total.IsZero() {
		t.Fatalf("expected empty cart, got %+v", got)
	}
}

func TestCartReconcile(t *testing.T) {
	remote := &stubRemote{}
	reg := newTestRegistry(t, remote)

	resp := httptest.NewRecorder()
	CartReconcile(reg, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/reconcile", "", auth.Anonymous()))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for anonymous reconcile got %d", resp.Code)
	}

	CartAddItem(reg, nil).ServeHTTP(httptest.NewRecorder(), newRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":"P1","quantity":1}`, auth.Anonymous()))

	resp = httptest.NewRecorder()
	CartReconcile(reg, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/reconcile", "", customer()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data ReconcileResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Synced {
		t.Fatal("expected synced=true")
	}

	remote.mu.Lock()
	remote.addErr = errors.New("remote rejected")
	remote.mu.Unlock()
	resp = httptest.NewRecorder()
	CartReconcile(reg, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/reconcile", "", customer()))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestCartHandlersRequireDevice(t *testing.T) {
	reg := newTestRegistry(t, &stubRemote{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	CartFetch(reg, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
