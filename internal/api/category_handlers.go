package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/ec-cart/internal/command"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/go-chi/chi/v5"
)

// Category Handlers

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queryHandler.ListCategories(r.Context())
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	view, err := h.queryHandler.GetCategory(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// CreateCategory creates a new category (admin only)
func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateCategory
	if err := decodeJSON(r, &cmd); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	view, err := h.cmdHandler.CreateCategory(r.Context(), cmd)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// DeleteCategory deletes an empty category (admin only)
func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteCategory{CategoryID: chi.URLParam(r, "categoryID")}
	if err := h.cmdHandler.DeleteCategory(r.Context(), cmd); err != nil {
		respondError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProductsByCategory pages through one category with the same
// parameters as ListProducts.
func (h *Handlers) GetProductsByCategory(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	q.CategoryID = chi.URLParam(r, "categoryID")
	h.listProducts(w, r, q)
}

func parseListQuery(r *http.Request) (product.ListQuery, error) {
	query := r.URL.Query()
	q := product.ListQuery{
		Keyword:    query.Get("keyword"),
		CategoryID: query.Get("category"),
		SortBy:     query.Get("sort"),
		SortOrder:  query.Get("order"),
	}

	var err error
	if q.Page, err = intParam(query.Get("page")); err != nil {
		return q, fmt.Errorf("page: %w", err)
	}
	if q.Size, err = intParam(query.Get("size")); err != nil {
		return q, fmt.Errorf("size: %w", err)
	}
	return q, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
