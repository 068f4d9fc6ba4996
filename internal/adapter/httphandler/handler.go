// Package httphandler exposes the terminal engine to the browser
// frontend over a small JSON API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/niksmo/pos-terminal/internal/adapter/view"
	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
)

// GET v1/products?q=query&category=name (200 OK)
// POST v1/products/reload (202 Accepted, 503 Service unavailable)

type CatalogHandler struct {
	reader   port.CatalogReader
	reloader port.CatalogReloader
}

func RegisterCatalog(
	mux *http.ServeMux,
	reader port.CatalogReader,
	reloader port.CatalogReloader,
) {
	h := CatalogHandler{reader, reloader}
	mux.HandleFunc("GET /v1/products", h.GetProducts)
	mux.HandleFunc("POST /v1/products/reload", h.PostReload)
}

func (h CatalogHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	var ps []domain.Product
	switch {
	case r.URL.Query().Has("q"):
		ps = h.reader.Search(r.URL.Query().Get("q"))
	case r.URL.Query().Has("category"):
		ps = h.reader.ByCategory(r.URL.Query().Get("category"))
	default:
		ps = h.reader.Products()
	}
	writeJSON(w, http.StatusOK, toProducts(ps))
}

func (h CatalogHandler) PostReload(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.PostReload"
	log := slog.With("op", op)

	if err := h.reloader.Load(r.Context()); err != nil {
		http.Error(
			w, "failed to reload catalog", http.StatusServiceUnavailable,
		)
		log.Error("failed to reload catalog", "err", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GET v1/cart (200 OK)
// POST v1/cart/items JSON {"product_id" string} (200 OK, 400, 404, 409)
// PATCH v1/cart/items/{index} JSON {"quantity" int} (200 OK, 400, 404, 409)
// DELETE v1/cart/items/{index} (200 OK, 404)
// DELETE v1/cart (200 OK)

type CartHandler struct {
	cart    port.CartOperator
	catalog port.CatalogReader
}

func RegisterCart(
	mux *http.ServeMux,
	cart port.CartOperator,
	catalog port.CatalogReader,
) {
	h := CartHandler{cart, catalog}
	mux.HandleFunc("GET /v1/cart", h.GetCart)
	mux.HandleFunc("POST /v1/cart/items", h.PostItem)
	mux.HandleFunc("PATCH /v1/cart/items/{index}", h.PatchItem)
	mux.HandleFunc("DELETE /v1/cart/items/{index}", h.DeleteItem)
	mux.HandleFunc("DELETE /v1/cart", h.DeleteCart)
}

func (h CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w)
}

func (h CartHandler) PostItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostItem"
	log := slog.With("op", op)

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	if err := h.cart.AddItem(r.Context(), req.ProductID); err != nil {
		writeDomainErr(w, err)
		log.Warn("failed to add item", "err", err)
		return
	}
	h.writeCart(w)
}

func (h CartHandler) PatchItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PatchItem"
	log := slog.With("op", op)

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid item index", http.StatusBadRequest)
		return
	}

	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	if err := h.cart.SetQuantity(r.Context(), index, req.Quantity); err != nil {
		writeDomainErr(w, err)
		log.Warn("failed to set quantity", "err", err)
		return
	}
	h.writeCart(w)
}

func (h CartHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.DeleteItem"
	log := slog.With("op", op)

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid item index", http.StatusBadRequest)
		return
	}

	if err := h.cart.RemoveItem(r.Context(), index); err != nil {
		writeDomainErr(w, err)
		log.Warn("failed to remove item", "err", err)
		return
	}
	h.writeCart(w)
}

func (h CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.DeleteCart"
	log := slog.With("op", op)

	if err := h.cart.Clear(r.Context()); err != nil {
		writeDomainErr(w, err)
		log.Warn("failed to clear cart", "err", err)
		return
	}
	h.writeCart(w)
}

func (h CartHandler) writeCart(w http.ResponseWriter) {
	v := toCartView(h.cart.Entries(), h.cart.Totals(), h.catalog.Find)
	writeJSON(w, http.StatusOK, v)
}

// POST v1/checkout JSON {"payment_method" string}
// (201 Created, 400, 409, 502, 504)

type CheckoutHandler struct {
	committer port.SaleCommitter
}

func RegisterCheckout(mux *http.ServeMux, committer port.SaleCommitter) {
	h := CheckoutHandler{committer}
	mux.HandleFunc("POST /v1/checkout", h.PostCheckout)
}

func (h CheckoutHandler) PostCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.PostCheckout"
	log := slog.With("op", op)

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	s, err := h.committer.Commit(r.Context(), req.PaymentMethod)
	if err != nil {
		writeDomainErr(w, err)
		log.Error("failed to commit sale", "err", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSale(s))
	log.Info("sale committed", "invoice", s.InvoiceNumber)
}

// GET v1/notifications (200 OK)

type NotificationLister interface {
	Notifications() []view.Notification
}

type NotificationsHandler struct {
	lister NotificationLister
}

func RegisterNotifications(mux *http.ServeMux, lister NotificationLister) {
	h := NotificationsHandler{lister}
	mux.HandleFunc("GET /v1/notifications", h.GetNotifications)
}

func (h NotificationsHandler) GetNotifications(
	w http.ResponseWriter, r *http.Request,
) {
	ns := h.lister.Notifications()
	if ns == nil {
		ns = []view.Notification{}
	}
	writeJSON(w, http.StatusOK, ns)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	const op = "writeJSON"

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.With("op", op).Error("failed to write response body", "err", err)
	}
}

func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInsufficientStock):
		http.Error(w, "insufficient stock", http.StatusConflict)
	case errors.Is(err, domain.ErrEmptyCart):
		http.Error(w, "cart is empty", http.StatusBadRequest)
	case errors.Is(err, domain.ErrDrainTimeout):
		http.Error(w, "stock sync timed out", http.StatusGatewayTimeout)
	case errors.Is(err, domain.ErrRemoteWrite):
		http.Error(w, "remote store unavailable", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
