package controllers

import (
	"net/http"

	"github.com/angelmondragon/packfinderz-storefront/api/middleware"
	"github.com/angelmondragon/packfinderz-storefront/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// SessionPing echoes how the caller was resolved: device scope and cart mode.
func SessionPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		payload := map[string]string{
			"scope":     "session",
			"status":    "ok",
			"cart_mode": string(sess.CartMode()),
		}
		if device := middleware.DeviceIDFromContext(r.Context()); device != "" {
			payload["device_id"] = device
		}
		if sess.IsAuthenticated() {
			payload["role"] = string(sess.Role)
		}
		responses.WriteSuccess(w, payload)
	}
}
