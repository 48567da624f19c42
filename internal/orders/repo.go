package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

type CheckoutItem struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type Repo struct {
	DB    *pgxpool.Pool
	Vocab Vocab
}

func (r *Repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, r.DB, fn)
}

// CreateCheckoutTx: idempotent via external_id.
//   - jika external_id sudah ada -> return existing order (existed=true), tanpa
//     reservasi ulang.
//   - harga & snapshot nama/kode diambil dari table products saat ini (hindari
//     trust dari client); setelah tertulis, snapshot tidak disentuh lagi.
//   - satu baris payment per (order, provider), plus reservasi stok provisional
//     lewat procedure inventory.
func (r *Repo) CreateCheckoutTx(ctx context.Context, externalID, buyerID, provider, currency string, items []CheckoutItem) (orderID string, total int, existed bool, err error) {
	row := r.DB.QueryRow(ctx, `SELECT id, total_cents FROM orders WHERE external_id=$1`, externalID)
	if err = row.Scan(&orderID, &total); err == nil {
		return orderID, total, true, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", 0, false, err
	}

	err = WithTx(ctx, r.DB, func(tc context.Context) error {
		q := conn(tc, r.DB)

		// ambil id, harga, nama per sku
		skus := make([]any, 0, len(items))
		params := ""
		for i, it := range items {
			if i > 0 {
				params += ","
			}
			params += fmt.Sprintf("$%d", i+1)
			skus = append(skus, it.SKU)
		}
		rows, err := q.Query(tc, `SELECT id, sku, name, price_cents FROM products WHERE sku IN (`+params+`)`, skus...)
		if err != nil {
			return err
		}
		type pp struct {
			id, sku, name string
			price         int
		}
		bySKU := map[string]pp{}
		for rows.Next() {
			var p pp
			if err := rows.Scan(&p.id, &p.sku, &p.name, &p.price); err != nil {
				rows.Close()
				return err
			}
			bySKU[p.sku] = p
		}
		if err := rows.Err(); err != nil {
			return err
		}

		total = 0
		for _, it := range items {
			p, ok := bySKU[it.SKU]
			if !ok {
				return fmt.Errorf("product not found: sku=%s", it.SKU)
			}
			if it.Qty <= 0 {
				return fmt.Errorf("invalid qty for sku=%s", it.SKU)
			}
			total += p.price * it.Qty
		}

		orderID = uuid.NewString()
		if _, err = q.Exec(tc, `INSERT INTO orders(id, external_id, buyer_id, status, total_cents, currency)
		                        VALUES ($1,$2,$3,$4,$5,$6)`,
			orderID, externalID, buyerID, r.Vocab.Encode(StatusPaymentPending), total, currency); err != nil {
			return err
		}
		for _, it := range items {
			p := bySKU[it.SKU]
			if _, err = q.Exec(tc, `INSERT INTO order_items(id, order_id, product_id, qty, price_cents, total_cents, name_snap, code_snap)
			                        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				uuid.NewString(), orderID, p.id, it.Qty, p.price, p.price*it.Qty, p.name, p.sku); err != nil {
				return err
			}
		}
		if _, err = q.Exec(tc, `INSERT INTO payments(order_id, provider, status, raw_status)
		                        VALUES ($1,$2,'CREATED','')
		                        ON CONFLICT (order_id, provider) DO NOTHING`, orderID, provider); err != nil {
			return err
		}
		// reservasi provisional; procedure inventory yang atomik
		if _, err = q.Exec(tc, `SELECT reserve_stock_for_order($1)`, orderID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			// race antar checkout ganda; pemenang yang menulis barisnya
			if err := r.DB.QueryRow(ctx, `SELECT id, total_cents FROM orders WHERE external_id=$1`, externalID).Scan(&orderID, &total); err == nil {
				return orderID, total, true, nil
			}
		}
		return "", 0, false, err
	}
	return orderID, total, false, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	var raw string
	err := conn(ctx, r.DB).QueryRow(ctx, `
		SELECT id, external_id, buyer_id, status, COALESCE(fulfillment,''), total_cents, currency, created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.ExternalID, &o.BuyerID, &raw, &o.Fulfillment, &o.TotalCents, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = r.Vocab.Decode(raw)
	return o, nil
}

// ApplyStatus menulis status baru hanya kalau beda dari yang tersimpan.
// Encoding dialeknya deterministik lewat tabel translasi; gagal tulis fatal.
func (r *Repo) ApplyStatus(ctx context.Context, orderID string, next Status) (changed bool, err error) {
	enc := r.Vocab.Encode(next)
	ct, err := conn(ctx, r.DB).Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1 AND status <> $2`, orderID, enc)
	if err != nil {
		return false, fmt.Errorf("apply order status %s: %w", next, err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) ItemsForOrder(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := conn(ctx, r.DB).Query(ctx, `
		SELECT id, order_id, product_id, qty, price_cents, total_cents, name_snap, code_snap
		FROM order_items WHERE order_id=$1 ORDER BY code_snap`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.PriceCents, &it.TotalCents, &it.NameSnap, &it.CodeSnap); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// AdvanceFulfillment: progresi operator PAID->PREPARING->SHIPPED->DELIVERED,
// dicek lewat state machine lalu dicatat ke audit trail.
func (r *Repo) AdvanceFulfillment(ctx context.Context, orderID, actor string, to Status) error {
	return WithTx(ctx, r.DB, func(tc context.Context) error {
		o, err := r.GetOrder(tc, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, to) {
			return fmt.Errorf("fulfillment %s -> %s not allowed", o.Status, to)
		}
		q := conn(tc, r.DB)
		if _, err := q.Exec(tc, `UPDATE orders SET status=$2, fulfillment=$3, updated_at=now() WHERE id=$1`,
			orderID, r.Vocab.Encode(to), string(to)); err != nil {
			return err
		}
		_, err = q.Exec(tc, `INSERT INTO fulfillment_events(id, order_id, from_status, to_status, actor)
		                     VALUES ($1,$2,$3,$4,$5)`,
			uuid.NewString(), orderID, o.Fulfillment, string(to), actor)
		return err
	})
}

func (r *Repo) FulfillmentHistory(ctx context.Context, orderID string) ([]FulfillmentEvent, error) {
	rows, err := conn(ctx, r.DB).Query(ctx, `
		SELECT id, order_id, from_status, to_status, actor, created_at
		FROM fulfillment_events WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FulfillmentEvent
	for rows.Next() {
		var ev FulfillmentEvent
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.From, &ev.To, &ev.Actor, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
