package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edulibros/backoffice/internal/orders"
	"github.com/edulibros/backoffice/internal/payments"
)

// fakeOrderRepo meniru idempotency checkout by external_id: external id yang
// sama selalu mengembalikan order yang sama dengan existed=true.
type fakeOrderRepo struct {
	byExternal map[string]string // external_id -> order_id
	ordersByID map[string]orders.Order
	events     map[string][]orders.FulfillmentEvent
	created    int
	advanceErr error
	lastActor  string
	lastTo     orders.Status
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		byExternal: map[string]string{},
		ordersByID: map[string]orders.Order{},
		events:     map[string][]orders.FulfillmentEvent{},
	}
}

func (f *fakeOrderRepo) CreateCheckoutTx(_ context.Context, externalID, buyerID, provider, currency string, items []orders.CheckoutItem) (string, int, bool, error) {
	if id, ok := f.byExternal[externalID]; ok {
		return id, f.ordersByID[id].TotalCents, true, nil
	}
	f.created++
	id := "order-" + externalID
	total := 0
	for _, it := range items {
		total += it.Qty * 1000
	}
	f.byExternal[externalID] = id
	f.ordersByID[id] = orders.Order{ID: id, ExternalID: externalID, BuyerID: buyerID, Status: orders.StatusPaymentPending, TotalCents: total, Currency: currency}
	return id, total, false, nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, orderID string) (orders.Order, error) {
	o, ok := f.ordersByID[orderID]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) FulfillmentHistory(_ context.Context, orderID string) ([]orders.FulfillmentEvent, error) {
	return f.events[orderID], nil
}

func (f *fakeOrderRepo) AdvanceFulfillment(_ context.Context, orderID, actor string, to orders.Status) error {
	if _, ok := f.ordersByID[orderID]; !ok {
		return orders.ErrOrderNotFound
	}
	if f.advanceErr != nil {
		return f.advanceErr
	}
	f.lastActor = actor
	f.lastTo = to
	return nil
}

type fakePreferenceClient struct {
	pref payments.Preference
	err  error
}

func (f *fakePreferenceClient) GetPayment(_ context.Context, _ string) (payments.Snapshot, error) {
	return payments.Snapshot{}, errors.New("not used")
}

func (f *fakePreferenceClient) CreatePreference(_ context.Context, _ payments.PreferenceRequest) (payments.Preference, error) {
	return f.pref, f.err
}

func serveOrders(repo OrderRepository, prov payments.Client, cache Cache) http.Handler {
	h := &OrdersHandler{
		Repo: repo, Provider: prov, Redis: cache,
		SessionSecret: testSecret, ProviderName: "mercadopago", PublicBaseURL: "https://shop.test",
	}
	r := NewRouter()
	h.Register(r)
	return r
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	body := `{"external_id":"cart-9","items":[{"sku":"BOOK-1","qty":2}]}`
	post := func(srv http.Handler, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	t.Run("no session", func(t *testing.T) {
		rec := post(serveOrders(newFakeOrderRepo(), &fakePreferenceClient{}, nil), "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d, want 401", rec.Code)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := post(serveOrders(newFakeOrderRepo(), &fakePreferenceClient{}, nil), sessionToken(t, "buyer-1", "buyer"), `{"external_id":""}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %d, want 400", rec.Code)
		}
	})

	t.Run("creates order with checkout url", func(t *testing.T) {
		repo := newFakeOrderRepo()
		prov := &fakePreferenceClient{pref: payments.Preference{ID: "pref-1", InitPoint: "https://mp.test/init/pref-1"}}
		rec := post(serveOrders(repo, prov, newFakeCache()), sessionToken(t, "buyer-1", "buyer"), body)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("code = %d (%s)", rec.Code, rec.Body)
		}
		var resp checkoutResp
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.OrderID == "" || resp.TotalCents != 2000 || resp.Idempotent {
			t.Fatalf("resp = %+v", resp)
		}
		if resp.CheckoutURL != "https://mp.test/init/pref-1" {
			t.Fatalf("checkout url = %q", resp.CheckoutURL)
		}
	})

	t.Run("same external id is idempotent", func(t *testing.T) {
		repo := newFakeOrderRepo()
		prov := &fakePreferenceClient{pref: payments.Preference{InitPoint: "https://mp.test/init/pref-1"}}
		srv := serveOrders(repo, prov, newFakeCache())
		tok := sessionToken(t, "buyer-1", "buyer")

		first := post(srv, tok, body)
		second := post(srv, tok, body)
		if second.Code != http.StatusAccepted {
			t.Fatalf("retry code = %d (%s)", second.Code, second.Body)
		}

		var a, b checkoutResp
		_ = json.Unmarshal(first.Body.Bytes(), &a)
		_ = json.Unmarshal(second.Body.Bytes(), &b)
		if b.OrderID != a.OrderID {
			t.Fatalf("retry created another order: %q vs %q", a.OrderID, b.OrderID)
		}
		if !b.Idempotent {
			t.Fatal("retry must report idempotent=true")
		}
		if repo.created != 1 {
			t.Fatalf("orders created = %d, want 1", repo.created)
		}
		// retry juga jalur untuk minta ulang checkout URL
		if b.CheckoutURL == "" {
			t.Fatal("retry must still return checkout url")
		}
	})

	t.Run("provider down still creates order", func(t *testing.T) {
		repo := newFakeOrderRepo()
		prov := &fakePreferenceClient{err: errors.New("mp down")}
		rec := post(serveOrders(repo, prov, newFakeCache()), sessionToken(t, "buyer-1", "buyer"), body)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("code = %d", rec.Code)
		}
		var resp checkoutResp
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.OrderID == "" || resp.CheckoutURL != "" {
			t.Fatalf("resp = %+v", resp)
		}
	})
}

func TestGetOrder(t *testing.T) {
	t.Parallel()

	t.Run("unknown order", func(t *testing.T) {
		srv := serveOrders(newFakeOrderRepo(), &fakePreferenceClient{}, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/ghost", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("code = %d, want 404", rec.Code)
		}
	})

	t.Run("reads from db and fills cache", func(t *testing.T) {
		repo := newFakeOrderRepo()
		repo.ordersByID["order-1"] = orders.Order{ID: "order-1", Status: orders.StatusPaid, TotalCents: 2000}
		cache := newFakeCache()
		srv := serveOrders(repo, &fakePreferenceClient{}, cache)

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/order-1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d (%s)", rec.Code, rec.Body)
		}
		var bodyOut map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &bodyOut)
		if bodyOut["status"] != "PAID" || bodyOut["total_cents"] != float64(2000) {
			t.Fatalf("body = %v", bodyOut)
		}
		if len(cache.store) == 0 {
			t.Fatal("lookup must populate status cache")
		}
	})
}

func TestFulfillment(t *testing.T) {
	t.Parallel()

	post := func(srv http.Handler, token, orderID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/orders/"+orderID+"/fulfillment", strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	seed := func() *fakeOrderRepo {
		repo := newFakeOrderRepo()
		repo.ordersByID["order-1"] = orders.Order{ID: "order-1", Status: orders.StatusPaid}
		return repo
	}

	t.Run("buyer forbidden", func(t *testing.T) {
		rec := post(serveOrders(seed(), &fakePreferenceClient{}, nil), sessionToken(t, "buyer-1", "buyer"), "order-1", `{"status":"PREPARING"}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %d, want 403", rec.Code)
		}
	})

	t.Run("invalid target status", func(t *testing.T) {
		rec := post(serveOrders(seed(), &fakePreferenceClient{}, nil), sessionToken(t, "ops-1", "staff"), "order-1", `{"status":"PAID"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid transition conflicts", func(t *testing.T) {
		repo := seed()
		repo.advanceErr = errors.New("invalid transition PAID -> DELIVERED")
		rec := post(serveOrders(repo, &fakePreferenceClient{}, nil), sessionToken(t, "ops-1", "staff"), "order-1", `{"status":"DELIVERED"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("code = %d, want 409", rec.Code)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		rec := post(serveOrders(newFakeOrderRepo(), &fakePreferenceClient{}, nil), sessionToken(t, "ops-1", "staff"), "ghost", `{"status":"PREPARING"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("code = %d, want 404", rec.Code)
		}
	})

	t.Run("staff advances and drops cache", func(t *testing.T) {
		repo := seed()
		cache := newFakeCache()
		cache.store["order_status:order-1"] = `{"status":"PAID"}`
		rec := post(serveOrders(repo, &fakePreferenceClient{}, cache), sessionToken(t, "ops-1", "staff"), "order-1", `{"status":"PREPARING"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d (%s)", rec.Code, rec.Body)
		}
		if repo.lastActor != "ops-1" || repo.lastTo != orders.StatusPreparing {
			t.Fatalf("advance call: actor=%q to=%q", repo.lastActor, repo.lastTo)
		}
		if len(cache.deleted) == 0 {
			t.Fatal("fulfillment must invalidate status cache")
		}
	})
}

func TestHistory(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	repo.events = map[string][]orders.FulfillmentEvent{
		"order-1": {
			{OrderID: "order-1", From: "PAID", To: "PREPARING", Actor: "ops-1", CreatedAt: time.Now()},
			{OrderID: "order-1", From: "PREPARING", To: "SHIPPED", Actor: "ops-1", CreatedAt: time.Now()},
		},
	}
	srv := serveOrders(repo, &fakePreferenceClient{}, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/order-1/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var bodyOut struct {
		OrderID string           `json:"order_id"`
		Events  []map[string]any `json:"events"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &bodyOut)
	if bodyOut.OrderID != "order-1" || len(bodyOut.Events) != 2 {
		t.Fatalf("body = %+v", bodyOut)
	}
	if bodyOut.Events[1]["to"] != "SHIPPED" {
		t.Fatalf("events = %v", bodyOut.Events)
	}
}
