package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_travel/internal/cache"
	"github.com/fjod/go_travel/internal/checkout"
	"github.com/fjod/go_travel/internal/domain"
	"github.com/fjod/go_travel/pkg/logger"
)

const (
	maxProofSize   = 10 << 20 // 10MB
	proofFormField = "image"
	ordersPath     = "/api/v1/transactions"
)

type CheckoutHandler struct {
	remote    RemoteFactory
	drafts    DraftStore
	catalog   Catalog
	checkouts *checkout.Registry
	observer  checkout.Observer
	policy    checkout.BackPolicy
	timeout   time.Duration
	log       *logger.Logger
}

type CheckoutHandlerConfig struct {
	Remote     RemoteFactory
	Drafts     DraftStore
	Catalog    Catalog
	Checkouts  *checkout.Registry
	Observer   checkout.Observer
	BackPolicy checkout.BackPolicy
	Timeout    time.Duration
	Log        *logger.Logger
}

func NewCheckoutHandler(cfg CheckoutHandlerConfig) *CheckoutHandler {
	return &CheckoutHandler{
		remote:    cfg.Remote,
		drafts:    cfg.Drafts,
		catalog:   cfg.Catalog,
		checkouts: cfg.Checkouts,
		observer:  cfg.Observer,
		policy:    cfg.BackPolicy,
		timeout:   cfg.Timeout,
		log:       cfg.Log,
	}
}

type SelectPaymentMethodRequestDTO struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

type FinishResponseDTO struct {
	TransactionID string    `json:"transactionId"`
	ConfirmedAt   time.Time `json:"confirmedAt"`
	Redirect      string    `json:"redirect"`
}

// POST /api/v1/checkout moves the parked draft into a new sequencer. A
// checkout already running for the session is returned as is when there is
// no new draft.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getSession(r.Context())
	draft, err := h.drafts.Take(ctx, sess.ID)
	if err != nil {
		if !errors.Is(err, cache.ErrDraftMissing) {
			requestLog(ctx, h.log).WithError(err).Error("take draft")
			respondError(w, http.StatusInternalServerError, "internal_error", "could not load draft")
			return
		}
		if s, ok := h.checkouts.Get(sess.ID); ok && !s.Finished() {
			respondJSON(w, http.StatusOK, s.View())
			return
		}
	}

	s, err := checkout.New(ctx, draft, h.remote(sess.Token),
		checkout.WithBackPolicy(h.policy),
		checkout.WithObserver(h.observer),
		checkout.WithUser(sess.User.ID),
	)
	if err != nil {
		handleCheckoutError(w, err)
		return
	}
	h.checkouts.Put(ctx, sess.ID, s)

	respondJSON(w, http.StatusCreated, s.View())
}

// GET /api/v1/checkout
func (h *CheckoutHandler) View(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sequencer(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.View())
}

// GET /api/v1/checkout/payment-methods
func (h *CheckoutHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	methods, err := h.catalog.PaymentMethods(ctx)
	if err != nil {
		handleRemoteError(w, err)
		return
	}
	if methods == nil {
		methods = []domain.PaymentMethod{}
	}
	respondJSON(w, http.StatusOK, methods)
}

// PUT /api/v1/checkout/payment-method
func (h *CheckoutHandler) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.sequencer(w, r)
	if !ok {
		return
	}

	var req SelectPaymentMethodRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	id := strings.TrimSpace(req.PaymentMethodID)
	if id != "" {
		_, found, err := h.catalog.PaymentMethod(ctx, id)
		if err != nil {
			handleRemoteError(w, err)
			return
		}
		if !found {
			respondError(w, http.StatusBadRequest, "invalid_payment_method", "unknown payment method")
			return
		}
	}

	if err := s.SelectPaymentMethod(id); err != nil {
		handleCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.View())
}

// POST /api/v1/checkout/next
func (h *CheckoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sequencer(w, r)
	if !ok {
		return
	}
	h.advance(w, r, s)
}

// POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sequencer(w, r)
	if !ok {
		return
	}
	if err := s.Back(r.Context()); err != nil {
		handleCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.View())
}

// POST /api/v1/checkout/proof selects the uploaded image and submits it.
func (h *CheckoutHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sequencer(w, r)
	if !ok {
		return
	}

	img, err := readProofImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_image", err.Error())
		return
	}

	if err := s.SelectImage(img); err != nil {
		handleCheckoutError(w, err)
		return
	}
	h.advance(w, r, s)
}

// POST /api/v1/checkout/finish
func (h *CheckoutHandler) Finish(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sequencer(w, r)
	if !ok {
		return
	}

	st, err := s.Finish(r.Context())
	if err != nil {
		handleCheckoutError(w, err)
		return
	}
	if err := h.checkouts.Remove(r.Context(), getSession(r.Context()).ID); err != nil {
		requestLog(r.Context(), h.log).WithError(err).Warn("remove finished checkout")
	}

	respondJSON(w, http.StatusOK, FinishResponseDTO{
		TransactionID: st.Transaction.ID,
		ConfirmedAt:   st.ConfirmedAt,
		Redirect:      ordersPath,
	})
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.checkouts.Remove(r.Context(), getSession(r.Context()).ID); err != nil {
		handleCheckoutError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// advance runs the current step. The step is not tied to the request: a
// client that goes away does not cancel a remote call half way.
func (h *CheckoutHandler) advance(w http.ResponseWriter, r *http.Request, s *checkout.Sequencer) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	if err := s.Next(ctx); err != nil {
		handleCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.View())
}

func (h *CheckoutHandler) sequencer(w http.ResponseWriter, r *http.Request) (*checkout.Sequencer, bool) {
	s, ok := h.checkouts.Get(getSession(r.Context()).ID)
	if !ok {
		respondJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "no checkout in progress",
			Code:    "checkout_not_found",
			Details: cartPath,
		})
		return nil, false
	}
	return s, true
}

func readProofImage(w http.ResponseWriter, r *http.Request) (*domain.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProofSize)
	if err := r.ParseMultipartForm(maxProofSize); err != nil {
		return nil, errors.New("expected multipart form with an image up to 10MB")
	}

	file, header, err := r.FormFile(proofFormField)
	if err != nil {
		return nil, errors.New("image field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("could not read image")
	}

	img := &domain.Image{
		Filename:    header.Filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return nil, errors.New("file is not an image")
	}
	return img, nil
}
