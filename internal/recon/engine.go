package recon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	kafkax "github.com/edulibros/backoffice/internal/kafka"
	"github.com/edulibros/backoffice/internal/orders"
	"github.com/edulibros/backoffice/internal/payments"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

var (
	ErrMissingPaymentID = errors.New("missing payment id")
	ErrNoOrderReference = errors.New("payment has no order reference")
	ErrForbidden        = errors.New("order belongs to another buyer")
)

const (
	SkipNotPending      = "NOT_PENDING"
	SkipAlreadyReleased = "ALREADY_RELEASED"
)

type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	ApplyStatus(ctx context.Context, orderID string, next orders.Status) (bool, error)
}

type PaymentStore interface {
	LockForOrder(ctx context.Context, orderID, provider string) (orders.Payment, error)
	SaveSnapshot(ctx context.Context, orderID, provider, providerPaymentID, rawStatus, status string) error
}

type StockStore interface {
	Commit(ctx context.Context, orderID string) error
	Release(ctx context.Context, orderID, reason string) (bool, error)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Engine menyatukan dua entry point (webhook push, sync pull) ke satu rutinitas
// rekonsiliasi. Semua dependency di-inject supaya instance paralel tidak share
// state implisit dan test bisa pakai fake.
type Engine struct {
	Provider payments.Client
	Orders   OrderStore
	Payments PaymentStore
	Stock    StockStore
	Tx       TxRunner
	Producer Publisher // boleh nil (mis. di test); publish jadi no-op
	Status   Publisher // topic order.status.changed; boleh nil
	Name     string    // nama provider di baris payments, e.g. "mercadopago"
	Service  string
}

type Result struct {
	OrderID       string
	PaymentStatus payments.Status
	OrderStatus   orders.Status
	StockApplied  bool
}

// Reconcile: fetch snapshot otoritatif -> normalisasi status -> update ledger
// order + payment -> efek stok, semua mutasi dalam SATU transaksi dengan baris
// payment ter-lock. Efek stok dipicu TRANSISI (baru jadi APPROVED), bukan
// status, jadi delivery duplikat/paralel menghasilkan commit stok tepat sekali.
func (e *Engine) Reconcile(ctx context.Context, providerPaymentID string) (Result, error) {
	if providerPaymentID == "" {
		return Result{}, ErrMissingPaymentID
	}

	snap, err := e.Provider.GetPayment(ctx, providerPaymentID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch payment %s: %w", providerPaymentID, err)
	}
	if snap.ExternalReference == "" {
		return Result{}, ErrNoOrderReference
	}
	orderID := snap.ExternalReference

	var res Result
	var becamePaid bool
	var statusFrom, statusTo orders.Status
	err = e.Tx.WithTx(ctx, func(tc context.Context) error {
		pay, err := e.Payments.LockForOrder(tc, orderID, e.Name)
		if err != nil {
			return err
		}
		o, err := e.Orders.GetOrder(tc, orderID)
		if err != nil {
			return err
		}
		prev := payments.Status(pay.Status)
		next := payments.FromProviderCode(snap.Status)

		res = Result{OrderID: orderID, PaymentStatus: next, OrderStatus: next.OrderStatus()}

		if next == prev {
			// delivery duplikat: refresh snapshot mentah saja. Status order
			// TIDAK disentuh; bisa saja operator sudah lanjut ke fulfillment.
			res.OrderStatus = o.Status
			return e.Payments.SaveSnapshot(tc, orderID, e.Name, snap.ID, snap.Status, string(next))
		}
		if !payments.CanAdvance(prev, next) {
			// delivery basi / out-of-order; state tersimpan yang menang
			log.Printf("recon: skip stale transition %s -> %s (order=%s payment=%s)", prev, next, orderID, snap.ID)
			res.PaymentStatus = prev
			res.OrderStatus = o.Status
			return nil
		}

		if err := e.Payments.SaveSnapshot(tc, orderID, e.Name, snap.ID, snap.Status, string(next)); err != nil {
			return err
		}
		changed, err := e.Orders.ApplyStatus(tc, orderID, next.OrderStatus())
		if err != nil {
			return err
		}
		if changed {
			statusFrom, statusTo = o.Status, next.OrderStatus()
		}

		if next == payments.StatusApproved && prev != payments.StatusApproved {
			if err := e.Stock.Commit(tc, orderID); err != nil {
				return err
			}
			res.StockApplied = true
			becamePaid = true
		}
		if releasesStock(next) && pendingLike(prev) {
			if _, err := e.Stock.Release(tc, orderID, "PAYMENT_"+string(next)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	// Notifikasi dijadwalkan SETELAH transaksi ledger commit; gagal publish
	// tidak pernah menggagalkan rekonsiliasi.
	if statusTo != "" {
		e.publishStatusChanged(orderID, statusFrom, statusTo)
	}
	if becamePaid {
		e.publishReceipt(ctx, orderID, snap)
	}
	return res, nil
}

func releasesStock(s payments.Status) bool {
	return s == payments.StatusRejected || s == payments.StatusCancelled || s == payments.StatusRefunded
}

// pendingLike: order masih memegang reservasi yang boleh dikembalikan.
// Setelah APPROVED stok sudah ter-commit; setelah REJECTED dkk sudah dilepas.
func pendingLike(s payments.Status) bool {
	return s == payments.StatusCreated || s == payments.StatusPending
}

type ReleaseResult struct {
	Released   bool
	Skipped    bool
	SkipReason string
}

// Release: pembeli membatalkan sebelum bayar. Hanya efektif selagi order masih
// pending-like; kalau sudah lewat (mis. PAID) jadi no-op dengan skip reason,
// bukan error. Procedure release sendiri idempotent, jadi klik dobel / retry
// tidak pernah mengembalikan reservasi dua kali.
func (e *Engine) Release(ctx context.Context, orderID, buyerID, reason string) (ReleaseResult, error) {
	var res ReleaseResult
	err := e.Tx.WithTx(ctx, func(tc context.Context) error {
		o, err := e.Orders.GetOrder(tc, orderID)
		if err != nil {
			return err
		}
		if buyerID != "" && o.BuyerID != buyerID {
			return ErrForbidden
		}
		if !o.Status.PendingLike() {
			res = ReleaseResult{Skipped: true, SkipReason: SkipNotPending}
			return nil
		}
		applied, err := e.Stock.Release(tc, orderID, reason)
		if err != nil {
			return err
		}
		if !applied {
			res = ReleaseResult{Skipped: true, SkipReason: SkipAlreadyReleased}
			return nil
		}
		res = ReleaseResult{Released: true}
		return nil
	})
	if err != nil {
		return ReleaseResult{}, err
	}
	return res, nil
}

func (e *Engine) publishReceipt(ctx context.Context, orderID string, snap payments.Snapshot) {
	if e.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventReceiptRequested,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.ReceiptRequestedPayload{
			OrderID:     orderID,
			PaymentRef:  snap.ID,
			AmountCents: snap.AmountCents,
			Currency:    snap.Currency,
		}),
	}
	e.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventReceiptRequested)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (e *Engine) publishStatusChanged(orderID string, from, to orders.Status) {
	if e.Status == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.StatusChangedPayload{
			OrderID:    orderID,
			FromStatus: string(from),
			ToStatus:   string(to),
		}),
	}
	e.Status.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
