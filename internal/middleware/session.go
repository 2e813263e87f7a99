package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"linguini-ordering-web/internal/model"
	"linguini-ordering-web/pkg/uid"
)

// GuestCookie is the cookie that identifies a visitor's guest cart
// across visits. It survives login/logout so the guest cart is preserved
// across session transitions.
const GuestCookie = "linguini_guest"

// GuestCookieMaxAge matches how long abandoned guest carts are retained.
const GuestCookieMaxAge = 30 * 24 * time.Hour

// SessionKey is the context key for the visitor session.
const SessionKey contextKey = "session"

// Session derives the visitor session for each request: it issues the
// guest cookie when absent and reads the bearer token that the browser
// obtained from the external auth endpoints. The token's validity is
// never checked here; the Linguini API is the authority and a 401 from
// it drives the Authenticated -> Guest transition.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		guestKey := ""
		if c, err := r.Cookie(GuestCookie); err == nil && c.Value != "" {
			guestKey = c.Value
		}
		if guestKey == "" {
			guestKey = uid.New()
			http.SetCookie(w, &http.Cookie{
				Name:     GuestCookie,
				Value:    guestKey,
				Path:     "/",
				MaxAge:   int(GuestCookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		token := ""
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}

		sess := model.Session{
			GuestKey: guestKey,
			Token:    token,
		}

		ctx := context.WithValue(r.Context(), SessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession retrieves the visitor session from context.
func GetSession(ctx context.Context) model.Session {
	if sess, ok := ctx.Value(SessionKey).(model.Session); ok {
		return sess
	}
	return model.Session{}
}
