package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packfinderz-storefront/api/middleware"
	"github.com/angelmondragon/packfinderz-storefront/api/responses"
	"github.com/angelmondragon/packfinderz-storefront/api/validators"
	cartsvc "github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

// StoreRegistry hands out the cart store of a device.
type StoreRegistry interface {
	Get(deviceID string) (*cartsvc.Store, error)
}

// CartFetch returns the device cart, reloading it when the caller identity changed or
// when ?refresh=true is passed.
func CartFetch(registry StoreRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, sess, err := resolveStore(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var state cartsvc.State
		if strings.EqualFold(r.URL.Query().Get("refresh"), "true") {
			state = store.Load(r.Context(), sess)
		} else {
			state = store.SyncAuth(r.Context(), sess)
		}
		responses.WriteSuccess(w, newCartResponse(state))
	}
}

// CartAddItem adds a product (optionally a variant) to the device cart.
func CartAddItem(registry StoreRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, sess, err := resolveStore(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload = payload.normalized()

		store.SyncAuth(r.Context(), sess)
		state, err := store.Add(r.Context(), sess, payload.ProductID, payload.Quantity, payload.VariantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(state))
	}
}

// CartUpdateItem sets the quantity of a line; zero removes it.
func CartUpdateItem(registry StoreRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, sess, err := resolveStore(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := lineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.SyncAuth(r.Context(), sess)
		state := store.SetQuantity(r.Context(), sess, lineID, *payload.Quantity)
		responses.WriteSuccess(w, newCartResponse(state))
	}
}

// CartRemoveItem drops a line from the device cart.
func CartRemoveItem(registry StoreRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, sess, err := resolveStore(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := lineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.SyncAuth(r.Context(), sess)
		state := store.Remove(r.Context(), sess, lineID)
		responses.WriteSuccess(w, newCartResponse(state))
	}
}

// CartClear empties the device cart.
func CartClear(registry StoreRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, sess, err := resolveStore(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.SyncAuth(r.Context(), sess)
		state := store.Clear(r.Context(), sess)
		responses.WriteSuccess(w, newCartResponse(state))
	}
}

// CartReconcile pushes the local cart to the marketplace cart of the customer.
func CartReconcile(registry StoreRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, sess, err := resolveStore(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !sess.IsCustomer() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "customer session required"))
			return
		}

		if !store.ReconcileToRemote(r.Context(), sess) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "cart could not be synced").
				WithDetails(ReconcileResponse{Synced: false}))
			return
		}
		responses.WriteSuccess(w, ReconcileResponse{Synced: true})
	}
}

func resolveStore(r *http.Request, registry StoreRegistry) (*cartsvc.Store, auth.Session, error) {
	if registry == nil {
		return nil, auth.Session{}, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable")
	}
	deviceID := middleware.DeviceIDFromContext(r.Context())
	if deviceID == "" {
		return nil, auth.Session{}, pkgerrors.New(pkgerrors.CodeValidation, "missing device id")
	}
	store, err := registry.Get(deviceID)
	if err != nil {
		return nil, auth.Session{}, err
	}
	return store, middleware.SessionFromContext(r.Context()), nil
}

func lineIDParam(r *http.Request) (string, error) {
	lineID := strings.TrimSpace(chi.URLParam(r, "lineId"))
	if lineID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
	}
	return lineID, nil
}
