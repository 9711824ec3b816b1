// Package devserver implements the storefront gateway contract in memory,
// for local runs and tests. The real deployment fronts separate user,
// product and order services; the contract is identical.
package devserver

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Pranav418/micro-merch/internal/domain"
)

type handler struct {
	store *Store
}

type createOrderRequestDTO struct {
	UserID int64              `json:"user_id"`
	Items  []domain.OrderLine `json:"items"`
}

type errorResponseDTO struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// New builds the HTTP handler serving the gateway contract on top of the
// given store.
func New(store *Store) http.Handler {
	h := &handler{store: store}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/products", h.listProducts)
	r.Post("/products/init", h.seedProducts)
	r.Get("/users", h.listUsers)
	r.Post("/users/init", h.seedUsers)
	r.Get("/users/{user_id}/orders", h.listOrders)
	r.Post("/orders", h.createOrder)

	return otelhttp.NewHandler(r, "devserver")
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.ListProducts())
}

func (h *handler) seedProducts(w http.ResponseWriter, r *http.Request) {
	h.store.SeedProducts()
	respondJSON(w, http.StatusCreated, map[string]string{"message": "Database initialized with more products"})
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.ListUsers())
}

func (h *handler) seedUsers(w http.ResponseWriter, r *http.Request) {
	h.store.SeedUsers()
	respondJSON(w, http.StatusCreated, map[string]string{"message": "Database initialized with users"})
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, "user_id must be a positive integer", nil)
		return
	}
	respondJSON(w, http.StatusOK, h.store.OrdersFor(userID))
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if req.UserID == 0 || len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "User ID and a list of items are required", nil)
		return
	}

	orderID, details := h.store.PlaceOrder(req.UserID, req.Items)
	if details != nil {
		respondError(w, http.StatusBadRequest, "Inventory check failed", details)
		return
	}
	respondJSON(w, http.StatusCreated, domain.OrderConfirmation{OrderID: orderID})
}

// requestIDMiddleware tags every request, honoring a caller-provided id.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, details map[string]string) {
	respondJSON(w, status, errorResponseDTO{Error: message, Details: details})
}
