package http

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/fjod/go_travel/internal/domain"
	"github.com/fjod/go_travel/internal/listing"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	remote  RemoteFactory
	timeout time.Duration
}

func NewOrdersHandler(remote RemoteFactory, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		remote:  remote,
		timeout: timeout,
	}
}

// GET /api/v1/transactions?status=&q=&page=
func (h *OrdersHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	txs, err := h.client(r).MyTransactions(ctx)
	if err != nil {
		handleRemoteError(w, err)
		return
	}

	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		want := domain.ParseTransactionStatus(status)
		txs = listing.Filter(txs, func(tx domain.Transaction) bool {
			return tx.Status == want
		})
	}

	params := listing.ParseParams(r.URL.Query())
	txs = listing.Search(txs, params.Query, func(tx domain.Transaction) []string {
		fields := []string{tx.InvoiceID}
		for _, item := range tx.Items {
			fields = append(fields, item.Title)
		}
		return fields
	})

	// Newest first.
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].OrderDate.After(txs[j].OrderDate)
	})

	respondJSON(w, http.StatusOK, listing.Paginate(txs, params.Page, params.PerPage))
}

// GET /api/v1/transactions/{id}
func (h *OrdersHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing_id", "id is required")
		return
	}

	tx, err := h.client(r).Transaction(ctx, id)
	if err != nil {
		handleRemoteError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tx)
}

// POST /api/v1/transactions/{id}/cancel
func (h *OrdersHandler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing_id", "id is required")
		return
	}

	client := h.client(r)
	tx, err := client.Transaction(ctx, id)
	if err != nil {
		handleRemoteError(w, err)
		return
	}
	if !domain.CanTransitionTo(tx.Status, domain.TransactionCancelled) {
		msg := "only pending transactions can be cancelled"
		if tx.Status.IsTerminal() {
			msg = "transaction is already " + tx.Status.String()
		}
		respondError(w, http.StatusConflict, "illegal_transition", msg)
		return
	}

	if err := client.CancelTransaction(ctx, id); err != nil {
		handleRemoteError(w, err)
		return
	}

	tx, err = client.Transaction(ctx, id)
	if err != nil {
		handleRemoteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (h *OrdersHandler) client(r *http.Request) Remote {
	return h.remote(getSession(r.Context()).Token)
}
