package model

// CartMode tells which of the two cart collections is live for a visitor.
type CartMode int

const (
	// ModeGuest means no valid auth token is held; the cart lives in
	// durable local storage keyed by the guest cookie.
	ModeGuest CartMode = iota

	// ModeAuthenticated means a bearer token is held; the server-side
	// cart is the store of record.
	ModeAuthenticated
)

// String returns a human-readable mode name for logs.
func (m CartMode) String() string {
	if m == ModeAuthenticated {
		return "authenticated"
	}
	return "guest"
}

// Session identifies the visitor for the duration of one request.
// GuestKey is always present (issued via cookie); Token only when the
// browser holds a bearer token from the external auth endpoints.
type Session struct {
	GuestKey string
	Token    string
}

// Mode derives the cart mode. It is never stored.
func (s Session) Mode() CartMode {
	if s.Token != "" {
		return ModeAuthenticated
	}
	return ModeGuest
}
