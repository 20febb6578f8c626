package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_travel/internal/cache"
	"github.com/fjod/go_travel/internal/cart"
	"github.com/fjod/go_travel/internal/domain"
	"github.com/fjod/go_travel/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// bookingDateLayout is the wire format of the draft booking date.
const bookingDateLayout = "2006-01-02"

type CartHandler struct {
	remote     RemoteFactory
	drafts     DraftStore
	aggregator *cart.Aggregator
	timeout    time.Duration
	log        *logger.Logger
}

func NewCartHandler(remote RemoteFactory, drafts DraftStore, aggregator *cart.Aggregator, timeout time.Duration, log *logger.Logger) *CartHandler {
	return &CartHandler{
		remote:     remote,
		drafts:     drafts,
		aggregator: aggregator,
		timeout:    timeout,
		log:        log,
	}
}

type CartResponseDTO struct {
	Items   []domain.CartItem `json:"items"`
	Summary cart.Summary      `json:"summary"`
}

type AddItemRequestDTO struct {
	ActivityID string `json:"activityId"`
}

type UpdateItemRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequestDTO struct {
	CartIDs     []string `json:"cartIds"`
	PromoCode   string   `json:"promoCode"`
	BookingDate string   `json:"bookingDate"`
}

// GET /api/v1/cart?promo_code=
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.respondCart(ctx, w, r, http.StatusOK, r.URL.Query().Get("promo_code"))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ActivityID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_activity_id", "activityId is required")
		return
	}

	if err := h.client(r).AddCart(ctx, req.ActivityID); err != nil {
		handleRemoteError(w, err)
		return
	}

	h.respondCart(ctx, w, r, http.StatusCreated, "")
}

// PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "id")
	if cartID == "" {
		respondError(w, http.StatusBadRequest, "missing_id", "id is required")
		return
	}

	var req UpdateItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := domain.ValidateQuantity(req.Quantity); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
		return
	}

	if err := h.client(r).UpdateCart(ctx, cartID, req.Quantity); err != nil {
		handleRemoteError(w, err)
		return
	}

	h.respondCart(ctx, w, r, http.StatusOK, "")
}

// DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "id")
	if cartID == "" {
		respondError(w, http.StatusBadRequest, "missing_id", "id is required")
		return
	}

	if err := h.client(r).DeleteCart(ctx, cartID); err != nil {
		handleRemoteError(w, err)
		return
	}

	h.respondCart(ctx, w, r, http.StatusOK, "")
}

// POST /api/v1/cart/checkout builds the transaction draft from the selected
// lines and parks it until the checkout starts.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var bookingDate time.Time
	if req.BookingDate != "" {
		d, err := time.Parse(bookingDateLayout, req.BookingDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_booking_date", "bookingDate must be YYYY-MM-DD")
			return
		}
		bookingDate = d
	}

	items, err := h.client(r).Carts(ctx)
	if err != nil {
		handleRemoteError(w, err)
		return
	}

	draft, err := h.aggregator.BuildDraft(ctx, items, req.CartIDs, req.PromoCode, bookingDate)
	if err != nil {
		handleCartError(w, err)
		return
	}

	sess := getSession(r.Context())
	if err := h.drafts.Save(ctx, sess.ID, draft); err != nil {
		requestLog(ctx, h.log).WithError(err).Error("save draft")
		respondError(w, http.StatusInternalServerError, "internal_error", "could not store draft")
		return
	}

	respondJSON(w, http.StatusCreated, draft)
}

// GET /api/v1/cart/checkout returns the draft parked by Checkout without
// consuming it.
func (h *CartHandler) Draft(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	draft, err := h.drafts.Peek(ctx, getSession(r.Context()).ID)
	if err != nil {
		if errors.Is(err, cache.ErrDraftMissing) {
			respondDraftMissing(w, "no booking is waiting for checkout")
			return
		}
		requestLog(ctx, h.log).WithError(err).Error("peek draft")
		respondError(w, http.StatusInternalServerError, "internal_error", "could not load draft")
		return
	}

	respondJSON(w, http.StatusOK, draft)
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, promoCode string) {
	items, err := h.client(r).Carts(ctx)
	if err != nil {
		handleRemoteError(w, err)
		return
	}
	if items == nil {
		items = []domain.CartItem{}
	}

	summary, err := h.aggregator.Summarize(ctx, items, promoCode)
	if err != nil {
		handleCartError(w, err)
		return
	}

	respondJSON(w, status, CartResponseDTO{Items: items, Summary: summary})
}

func (h *CartHandler) client(r *http.Request) Remote {
	return h.remote(getSession(r.Context()).Token)
}

func handleCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrEmptySelection),
		errors.Is(err, cart.ErrUnknownCartItem),
		errors.Is(err, domain.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_selection", err.Error())
	case errors.Is(err, cart.ErrUnknownPromo),
		errors.Is(err, cart.ErrPromoMinimum):
		respondError(w, http.StatusBadRequest, "invalid_promo", err.Error())
	default:
		handleRemoteError(w, err)
	}
}
