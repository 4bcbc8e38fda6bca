package auth

import (
	"github.com/angelmondragon/packfinderz-storefront/pkg/enums"
)

// Session is the caller identity resolved once per request and handed to every cart
// operation. The zero value is an anonymous visitor.
type Session struct {
	UserID string
	Role   enums.UserRole
	// Token is the raw bearer token forwarded to the marketplace cart API.
	Token string
}

// Anonymous returns the unauthenticated session.
func Anonymous() Session {
	return Session{}
}

// FromClaims builds a session out of verified token claims.
func FromClaims(claims *AccessTokenClaims, token string) Session {
	if claims == nil {
		return Anonymous()
	}
	return Session{
		UserID: claims.UserID.String(),
		Role:   claims.Role,
		Token:  token,
	}
}

func (s Session) IsAuthenticated() bool {
	return s.UserID != "" && s.Token != ""
}

// IsCustomer reports whether the marketplace cart API may be used for this session.
func (s Session) IsCustomer() bool {
	return s.IsAuthenticated() && s.Role == enums.UserRoleCustomer
}

// CartMode maps the session onto the cart macro-state it implies.
func (s Session) CartMode() enums.CartMode {
	if s.IsCustomer() {
		return enums.CartModeRemote
	}
	return enums.CartModeLocal
}

// Identity distinguishes sessions for auth-transition detection.
func (s Session) Identity() string {
	if !s.IsAuthenticated() {
		return "anonymous"
	}
	return string(s.Role) + ":" + s.UserID
}
