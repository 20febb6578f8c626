package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_travel/internal/domain"
	"github.com/fjod/go_travel/internal/listing"
	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewCatalogHandler(catalog Catalog, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

// GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		handleRemoteError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, categories)
}

// GET /api/v1/activities?q=&city=&category=&page=&per_page=
func (h *CatalogHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	activities, err := h.catalog.Activities(ctx)
	if err != nil {
		handleRemoteError(w, err)
		return
	}

	params := listing.ParseParams(r.URL.Query())
	if city := strings.TrimSpace(r.URL.Query().Get("city")); city != "" {
		activities = listing.Filter(activities, func(a domain.Activity) bool {
			return strings.EqualFold(a.City, city)
		})
	}
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		activities = listing.Filter(activities, func(a domain.Activity) bool {
			return a.CategoryID == category
		})
	}
	activities = listing.Search(activities, params.Query, func(a domain.Activity) []string {
		return []string{a.Title, a.City, a.Province}
	})

	respondJSON(w, http.StatusOK, listing.Paginate(activities, params.Page, params.PerPage))
}

// GET /api/v1/activities/{id}
func (h *CatalogHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing_id", "id is required")
		return
	}

	activity, err := h.catalog.Activity(ctx, id)
	if err != nil {
		handleRemoteError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, activity)
}

// GET /api/v1/promos?q=&page=
func (h *CatalogHandler) ListPromos(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	promos, err := h.catalog.Promos(ctx)
	if err != nil {
		handleRemoteError(w, err)
		return
	}

	params := listing.ParseParams(r.URL.Query())
	promos = listing.Search(promos, params.Query, func(p domain.Promo) []string {
		return []string{p.Title, p.PromoCode}
	})

	respondJSON(w, http.StatusOK, listing.Paginate(promos, params.Page, params.PerPage))
}
