package api

import (
	"net/http"

	"github.com/example/ec-cart/internal/api/middleware"
	"github.com/example/ec-cart/internal/command"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/logger"
	"github.com/example/ec-cart/internal/query"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	log          *logger.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		log:          log.Component("API"),
	}
}

// Product Handlers

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if err := decodeJSON(r, &cmd); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	view, err := h.cmdHandler.CreateProduct(r.Context(), cmd)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateProduct
	if err := decodeJSON(r, &cmd); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	cmd.ProductID = chi.URLParam(r, "productID")

	view, err := h.cmdHandler.UpdateProduct(r.Context(), cmd)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteProduct{ProductID: chi.URLParam(r, "productID")}
	if err := h.cmdHandler.DeleteProduct(r.Context(), cmd); err != nil {
		respondError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	view, err := h.queryHandler.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// ListProducts serves the catalog browse: ?keyword=&category=&page=&size=&sort=&order=
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	h.listProducts(w, r, q)
}

func (h *Handlers) listProducts(w http.ResponseWriter, r *http.Request, q product.ListQuery) {
	page, err := h.queryHandler.ListProducts(r.Context(), q)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Cart Handlers. The owner always comes from the access token.

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.queryHandler.GetCart(r.Context(), middleware.GetOwnerID(r.Context()))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if err := decodeJSON(r, &cmd); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	cmd.OwnerID = middleware.GetOwnerID(r.Context())

	cart, err := h.cmdHandler.AddToCart(r.Context(), cmd)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateQuantity
	if err := decodeJSON(r, &cmd); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	cmd.OwnerID = middleware.GetOwnerID(r.Context())
	cmd.ProductID = chi.URLParam(r, "productID")

	cart, err := h.cmdHandler.UpdateQuantity(r.Context(), cmd)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cmd := command.RemoveFromCart{
		OwnerID:   middleware.GetOwnerID(r.Context()),
		ProductID: chi.URLParam(r, "productID"),
	}

	cart, err := h.cmdHandler.RemoveFromCart(r.Context(), cmd)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.ReplaceCart
	if err := decodeJSON(r, &cmd); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	cmd.OwnerID = middleware.GetOwnerID(r.Context())

	cart, err := h.cmdHandler.ReplaceCart(r.Context(), cmd)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cmdHandler.ClearCart(r.Context(), command.ClearCart{OwnerID: middleware.GetOwnerID(r.Context())})
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// Admin cart handlers

func (h *Handlers) ListCarts(w http.ResponseWriter, r *http.Request) {
	carts, err := h.queryHandler.ListCarts(r.Context())
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, carts)
}

func (h *Handlers) GetCartByID(w http.ResponseWriter, r *http.Request) {
	cart, err := h.queryHandler.GetCartByID(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cmd := command.RemoveCartItem{
		CartID:    chi.URLParam(r, "cartID"),
		ProductID: chi.URLParam(r, "productID"),
	}

	msg, err := h.cmdHandler.RemoveCartItem(r.Context(), cmd)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": msg})
}
