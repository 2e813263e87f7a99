package handler

import (
	"net/http"

	"linguini-ordering-web/internal/middleware"
	"linguini-ordering-web/internal/service"
	"linguini-ordering-web/pkg/response"
)

// CheckoutHandler initiates checkout. Payment-session creation happens
// against the external payment processor; this handler only guards and
// summarizes.
type CheckoutHandler struct {
	carts *service.CartService
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(carts *service.CartService) *CheckoutHandler {
	return &CheckoutHandler{carts: carts}
}

// Begin handles POST /api/v1/checkout. An empty cart is a guard
// condition: the response carries a redirect back to the menu, not an
// error page.
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	cart, err := h.carts.BeginCheckout(r.Context(), sess)
	if err != nil {
		response.Error(w, cartError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"mode":     sess.Mode().String(),
		"items":    cart.Items,
		"count":    cart.Count,
		"subtotal": cart.Subtotal.StringFixed(2),
	})
}
