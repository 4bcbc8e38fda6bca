package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("http://market.test/api/", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestGetProductNormalizesLegacyFields(t *testing.T) {
	var capturedURL string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return jsonResponse(http.StatusOK, `{"data":{"_id":"P1","nom":"Savon noir","prix":"12.50","images":"a.jpg, b.jpg,","boutique":{"_id":"S1","nom":"Atelier"}}}`), nil
	})

	product, err := client.GetProduct(context.Background(), "P1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if capturedURL != "http://market.test/api/products/P1" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if product.ID != "P1" || product.Name != "Savon noir" {
		t.Fatalf("unexpected product %+v", product)
	}
	if product.UnitPrice.String() != "12.5" {
		t.Fatalf("unexpected price %s", product.UnitPrice)
	}
	if len(product.Images) != 2 || product.Images[1] != "b.jpg" {
		t.Fatalf("unexpected images %v", product.Images)
	}
	if product.Shop == nil || product.Shop.ID != "S1" || product.Shop.Name != "Atelier" {
		t.Fatalf("unexpected shop %+v", product.Shop)
	}
}

func TestGetProductNotFound(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"gone"}`), nil
	})

	_, err := client.GetProduct(context.Background(), "missing")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGetProductVariants(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/products/P1/variants" {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `[{"id":"V1","couleur":"rouge","taille":"M","price_adjustment":15,"stock":3},{"id":"V2","color":"blue","prix":"9.99"}]`), nil
	})

	variants, err := client.GetProductVariants(context.Background(), "P1")
	if err != nil {
		t.Fatalf("variants: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("expected 2 variants got %d", len(variants))
	}
	if variants[0].Color != "rouge" || variants[0].Size != "M" || variants[0].Stock != 3 {
		t.Fatalf("unexpected first variant %+v", variants[0])
	}
	if variants[0].PriceAdjustment.Decimal.String() != "15" || variants[1].PriceAdjustment.Decimal.String() != "9.99" {
		t.Fatalf("unexpected prices %v %v", variants[0].PriceAdjustment, variants[1].PriceAdjustment)
	}
	if !variants[0].PriceAdjustment.Valid {
		t.Fatalf("expected price adjustment to be set")
	}
}

func TestGetCartForwardsTokenAndParsesLines(t *testing.T) {
	var auth string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		auth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{"data":{"items":[{"id":"L1","produit":{"id":"P1","name":"Tee","price":20},"quantite":2,"variante":{"id":"V1"}},{"_id":"L2","product_id":"P2","quantity":1}]}}`), nil
	})

	lines, err := client.GetCart(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if auth != "Bearer tok-1" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines got %d", len(lines))
	}
	if lines[0].ID != "L1" || lines[0].ProductID != "P1" || lines[0].Quantity != 2 || lines[0].VariantID != "V1" {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[0].Product == nil || lines[0].Product.UnitPrice.String() != "20" {
		t.Fatalf("expected embedded product on first line")
	}
	if lines[1].ID != "L2" || lines[1].ProductID != "P2" || lines[1].Product != nil {
		t.Fatalf("unexpected second line %+v", lines[1])
	}
}

func TestGetCartRejectsUnreadablePayload(t *testing.T) {
	for _, body := range []string{``, `null`, `{"message":"maintenance"}`, `"ok"`} {
		client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, body), nil
		})
		lines, err := client.GetCart(context.Background(), "tok-1")
		if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
			t.Fatalf("body %q: expected dependency error, got lines=%v err=%v", body, lines, err)
		}
	}
}

func TestGetCartAcceptsExplicitEmptyList(t *testing.T) {
	for _, body := range []string{`[]`, `{"items":[]}`, `{"data":{"lignes":[]}}`} {
		client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, body), nil
		})
		lines, err := client.GetCart(context.Background(), "tok-1")
		if err != nil {
			t.Fatalf("body %q: get cart: %v", body, err)
		}
		if len(lines) != 0 {
			t.Fatalf("body %q: expected empty cart got %d lines", body, len(lines))
		}
	}
}

func TestCartCallsRequireToken(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected without a token")
		return nil, nil
	})
	if _, err := client.GetCart(context.Background(), ""); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := client.ClearCart(context.Background(), ""); err == nil {
		t.Fatal("expected clear without token to fail")
	}
}

func TestAddToCartSendsPayload(t *testing.T) {
	var payload map[string]any
	var method string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		method = req.Method
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(http.StatusCreated, ``), nil
	})

	if err := client.AddToCart(context.Background(), "tok", "P1", 3, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if method != http.MethodPost {
		t.Fatalf("unexpected method %s", method)
	}
	if payload["product_id"] != "P1" || payload["quantity"] != float64(3) {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["variant_id"]; ok {
		t.Fatalf("variant_id should be omitted when empty")
	}
}

func TestRemoveAndClearUseDelete(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodDelete {
			t.Fatalf("unexpected method %s", req.Method)
		}
		paths = append(paths, req.URL.Path)
		return jsonResponse(http.StatusNoContent, ``), nil
	})

	if err := client.RemoveFromCart(context.Background(), "tok", "L1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := client.ClearCart(context.Background(), "tok"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/api/cart/items/L1" || paths[1] != "/api/cart" {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestServerErrorMapsToDependency(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `upstream`), nil
	})
	err := client.AddToCart(context.Background(), "tok", "P1", 1, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
