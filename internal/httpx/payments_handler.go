package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/edulibros/backoffice/internal/orders"
	"github.com/edulibros/backoffice/internal/recon"
	"github.com/edulibros/backoffice/internal/redisx"
	"github.com/go-chi/chi/v5"
)

// Reconciler dipuaskan *recon.Engine; interface-nya di sini supaya handler
// bisa dites dengan fake tanpa store betulan.
type Reconciler interface {
	Reconcile(ctx context.Context, providerPaymentID string) (recon.Result, error)
	Release(ctx context.Context, orderID, buyerID, reason string) (recon.ReleaseResult, error)
}

type PaymentsHandler struct {
	Engine        Reconciler
	Redis         Cache
	WebhookSecret string
	SessionSecret string
}

// Rekonsiliasi bisa mengubah status order; cache lookup harus ikut gugur
// supaya GET /orders/{id} tidak menyajikan status lama sepanjang TTL.
func (h *PaymentsHandler) invalidateStatus(ctx context.Context, orderID string) {
	if h.Redis == nil || orderID == "" {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Post("/payments/webhook", h.webhook)
	r.Get("/payments/sync", h.sync)
	r.Post("/orders/release", h.release)
}

// Body push provider: {"data":{"id":...}} (notifikasi baru) atau {"id":...}
// (format lama). Status yang ikut di body TIDAK dipakai; engine selalu fetch
// ulang snapshot otoritatif.
type webhookBody struct {
	ID   json.Number `json:"id"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

func (h *PaymentsHandler) webhook(w http.ResponseWriter, r *http.Request) {
	if h.WebhookSecret != "" && r.URL.Query().Get("secret") != h.WebhookSecret {
		writeError(w, http.StatusUnauthorized, codeAuthRequired, "bad webhook secret")
		return
	}

	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid json")
		return
	}
	paymentID := body.Data.ID.String()
	if paymentID == "" {
		paymentID = body.ID.String()
	}
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing payment id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// jejak delivery duplikat, observability saja (guard ada di transaksi)
	if h.Redis != nil {
		_ = h.Redis.Incr(ctx, fmt.Sprintf(redisx.KeyWebhookSeen, paymentID)).Err()
		_ = h.Redis.Expire(ctx, fmt.Sprintf(redisx.KeyWebhookSeen, paymentID), redisx.TTLWebhookSeen).Err()
	}

	res, err := h.Engine.Reconcile(ctx, paymentID)
	switch {
	case err == nil:
		h.invalidateStatus(ctx, res.OrderID)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "order_id": res.OrderID, "stock_applied": res.StockApplied})
	case errors.Is(err, recon.ErrNoOrderReference),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrPaymentNotFound):
		// bukan pembayaran kita; 200 supaya provider berhenti retry
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ignored": true})
	default:
		// 5xx -> provider retry sesuai policy dia; tidak ada retry internal
		writeError(w, http.StatusInternalServerError, codeInternal, "reconciliation failed")
	}
}

// sync: jalur pull, dipanggil client pembeli sehabis balik dari halaman
// pembayaran provider.
func (h *PaymentsHandler) sync(w http.ResponseWriter, r *http.Request) {
	if h.WebhookSecret != "" && r.URL.Query().Get("secret") != h.WebhookSecret {
		writeError(w, http.StatusUnauthorized, codeAuthRequired, "bad secret")
		return
	}
	paymentID := r.URL.Query().Get("payment_id")
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing payment_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Engine.Reconcile(ctx, paymentID)
	switch {
	case err == nil:
		h.invalidateStatus(ctx, res.OrderID)
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":             true,
			"order_id":       res.OrderID,
			"payment_status": res.PaymentStatus,
			"order_status":   res.OrderStatus,
			"stock_applied":  res.StockApplied,
		})
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, "order not found")
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, "reconciliation failed")
	}
}

type releaseReq struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

func (h *PaymentsHandler) release(w http.ResponseWriter, r *http.Request) {
	sess, err := parseSession(r, h.SessionSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, codeAuthRequired, "session required")
		return
	}

	var req releaseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing orderId")
		return
	}
	if req.Reason == "" {
		req.Reason = "BUYER_RELEASE"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// staf boleh release order siapa pun; pembeli hanya miliknya sendiri
	buyerID := sess.UserID
	if sess.Role == "staff" {
		buyerID = ""
	}

	res, err := h.Engine.Release(ctx, req.OrderID, buyerID, req.Reason)
	switch {
	case err == nil && res.Skipped:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "skipped": true, "reason": res.SkipReason})
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case errors.Is(err, orders.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, "order not found")
	case errors.Is(err, recon.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, "not your order")
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, "release failed")
	}
}
