package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/edulibros/backoffice/internal/orders"
	"github.com/edulibros/backoffice/internal/payments"
	"github.com/edulibros/backoffice/internal/redisx"
	"github.com/go-chi/chi/v5"
)

// OrderRepository dipuaskan *orders.Repo; interface-nya di sini supaya handler
// bisa dites dengan fake tanpa Postgres betulan (pola sama dengan Reconciler).
type OrderRepository interface {
	CreateCheckoutTx(ctx context.Context, externalID, buyerID, provider, currency string, items []orders.CheckoutItem) (string, int, bool, error)
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	FulfillmentHistory(ctx context.Context, orderID string) ([]orders.FulfillmentEvent, error)
	AdvanceFulfillment(ctx context.Context, orderID, actor string, to orders.Status) error
}

type OrdersHandler struct {
	Repo          OrderRepository
	Provider      payments.Client
	Redis         Cache
	SessionSecret string
	ProviderName  string
	PublicBaseURL string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/history", h.history)
	r.Post("/admin/orders/{id}/fulfillment", h.fulfillment)
}

type checkoutReq struct {
	ExternalID string                `json:"external_id"`
	Currency   string                `json:"currency"`
	Items      []orders.CheckoutItem `json:"items"`
}

type checkoutResp struct {
	OrderID     string `json:"order_id"`
	TotalCents  int    `json:"total_cents"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	Idempotent  bool   `json:"idempotent"`
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	sess, err := parseSession(r, h.SessionSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, codeAuthRequired, "session required")
		return
	}

	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid json")
		return
	}
	if req.ExternalID == "" || len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing fields")
		return
	}
	if req.Currency == "" {
		req.Currency = "ARS"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orderID, total, existed, err := h.Repo.CreateCheckoutTx(ctx, req.ExternalID, sess.UserID, h.ProviderName, req.Currency, req.Items)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	// shortcut idempotency + cache status (DB tetap kebenaran)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyIdemCheckout, req.ExternalID), orderID, redisx.TTLIdempotency).Err()
		_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID), `{"status":"PAYMENT_PENDING"}`, redisx.TTLStatusCache).Err()
	}

	resp := checkoutResp{OrderID: orderID, TotalCents: total, Idempotent: existed}

	// preference hosted checkout; kalau provider lagi down, order tetap dibuat
	// dan client ulang POST checkout yang sama (idempotent) untuk dapat URL
	pref, err := h.Provider.CreatePreference(ctx, payments.PreferenceRequest{
		ExternalReference: orderID,
		Title:             fmt.Sprintf("Pedido %s", orderID[:8]),
		AmountCents:       total,
		Currency:          req.Currency,
		SuccessURL:        h.PublicBaseURL + "/checkout/success",
		FailureURL:        h.PublicBaseURL + "/checkout/failure",
	})
	if err == nil {
		resp.CheckoutURL = pref.InitPoint
	}

	writeJSON(w, http.StatusAccepted, resp)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	// 2) fallback DB
	o, err := h.Repo.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, codeOrderNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "lookup failed")
		return
	}
	body := map[string]any{"status": o.Status, "fulfillment": o.Fulfillment, "total_cents": o.TotalCents}
	b, _ := json.Marshal(body)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) history(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	evs, err := h.Repo.FulfillmentHistory(ctx, orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "history failed")
		return
	}
	out := make([]map[string]any, 0, len(evs))
	for _, ev := range evs {
		out = append(out, map[string]any{
			"from": ev.From, "to": ev.To, "actor": ev.Actor, "at": ev.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "events": out})
}

type fulfillmentReq struct {
	Status string `json:"status"` // PREPARING | SHIPPED | DELIVERED
}

// fulfillment: aksi operator, maju sesuai state machine; payment events tidak
// pernah lewat sini.
func (h *OrdersHandler) fulfillment(w http.ResponseWriter, r *http.Request) {
	sess, err := parseSession(r, h.SessionSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, codeAuthRequired, "session required")
		return
	}
	if sess.Role != "staff" {
		writeError(w, http.StatusForbidden, codeForbidden, "staff only")
		return
	}

	orderID := chi.URLParam(r, "id")
	var req fulfillmentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing status")
		return
	}
	to := orders.Status(req.Status)
	switch to {
	case orders.StatusPreparing, orders.StatusShipped, orders.StatusDelivered:
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid fulfillment status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.AdvanceFulfillment(ctx, orderID, sess.UserID, to); err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, codeOrderNotFound, "not found")
			return
		}
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
		return
	}
	// invalidate cache status
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": to})
}
