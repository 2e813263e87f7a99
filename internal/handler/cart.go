package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"linguini-ordering-web/internal/middleware"
	"linguini-ordering-web/internal/model"
	"linguini-ordering-web/internal/service"
	"linguini-ordering-web/pkg/apierror"
	"linguini-ordering-web/pkg/response"

	"github.com/go-chi/chi/v5"
)

// CartHandler serves the cart-aware views: the navbar badge, the cart
// page operations, and logout.
type CartHandler struct {
	carts *service.CartService
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// cartError translates service sentinels into API errors. Session expiry
// and the empty-cart guard carry redirect hints for the browser app.
func cartError(err error) *apierror.Error {
	switch {
	case errors.Is(err, service.ErrSessionExpired):
		return apierror.Unauthorized("Your session has expired").WithRedirect("/login")
	case errors.Is(err, service.ErrLineNotFound):
		return apierror.NotFound("That item is not in your cart")
	case errors.Is(err, service.ErrCartUpdate):
		return apierror.UpstreamError("Could not update your cart")
	case errors.Is(err, service.ErrEmptyCart):
		return apierror.Conflict("Your cart is empty").WithRedirect("/menu")
	default:
		return apierror.UpstreamError("Could not load your cart")
	}
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	cart, err := h.carts.GetCart(r.Context(), sess)
	if err != nil {
		response.Error(w, cartError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"mode":     sess.Mode().String(),
		"items":    cart.Items,
		"count":    cart.Count,
		"subtotal": cart.Subtotal,
	})
}

// GetCount handles GET /api/v1/cart/count - the navbar badge polls this.
func (h *CartHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	count, err := h.carts.Count(r.Context(), sess)
	if err != nil {
		response.Error(w, cartError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"mode":  sess.Mode().String(),
		"count": count,
	})
}

// addItemRequest is the body of POST /cart/items/{productID}. The
// product snapshot fields matter only in guest mode; authenticated adds
// send just the quantity, the server owns the snapshot.
type addItemRequest struct {
	Name      string          `json:"name"`
	UnitPrice json.RawMessage `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// AddItem handles POST /api/v1/cart/items/{productID}
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid product id"))
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.Quantity < 0 {
		response.Error(w, apierror.ValidationError("invalid payload",
			apierror.FieldError{Field: "quantity", Message: "must not be negative"}))
		return
	}

	payload := model.AddItemPayload{
		ProductID: productID,
		Name:      req.Name,
		Quantity:  req.Quantity,
	}
	if len(req.UnitPrice) > 0 {
		if err := payload.UnitPrice.UnmarshalJSON(req.UnitPrice); err != nil {
			response.Error(w, apierror.ValidationError("invalid payload",
				apierror.FieldError{Field: "unit_price", Message: "must be a decimal number"}))
			return
		}
	}

	if err := h.carts.AddProduct(r.Context(), sess, payload); err != nil {
		response.Error(w, cartError(err))
		return
	}

	count, err := h.carts.Count(r.Context(), sess)
	if err != nil {
		response.Error(w, cartError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"status": "added",
		"count":  count,
	})
}

// updateItemRequest is the body of PATCH /cart/items/{id}.
type updateItemRequest struct {
	Delta int `json:"delta"`
}

// UpdateItem handles PATCH /api/v1/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	lineID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid cart line id"))
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.Delta == 0 {
		response.Error(w, apierror.ValidationError("invalid payload",
			apierror.FieldError{Field: "delta", Message: "must not be zero"}))
		return
	}

	if err := h.carts.ChangeQuantity(r.Context(), sess, lineID, req.Delta); err != nil {
		response.Error(w, cartError(err))
		return
	}

	count, err := h.carts.Count(r.Context(), sess)
	if err != nil {
		response.Error(w, cartError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"status": "updated",
		"count":  count,
	})
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	lineID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid cart line id"))
		return
	}

	if err := h.carts.RemoveItem(r.Context(), sess, lineID); err != nil {
		response.Error(w, cartError(err))
		return
	}

	response.NoContent(w)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	h.carts.ClearCart(r.Context(), sess)
	response.NoContent(w)
}

// Logout handles POST /api/v1/session/logout - the Authenticated ->
// Guest transition. The browser drops the token; this resets the
// authenticated cart state and leaves the guest cart untouched.
func (h *CartHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	h.carts.Logout(r.Context(), sess)
	response.OK(w, map[string]interface{}{
		"status": "logged_out",
	})
}
