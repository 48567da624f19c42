package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StockRepo membungkus procedure inventory yang atomik. Keputusan KAPAN
// commit/release terjadi (guard idempotency, cek status) ada di engine
// rekonsiliasi; di sini cuma eksekusinya.
type StockRepo struct{ DB *pgxpool.Pool }

// Commit mengkonsumsi reservasi order: on_hand turun per qty item
// (floor-clamp di 0) + baris movement ber-tag order id. Atomik di procedure.
func (r *StockRepo) Commit(ctx context.Context, orderID string) error {
	if _, err := conn(ctx, r.DB).Exec(ctx, `SELECT commit_stock_for_order($1)`, orderID); err != nil {
		return fmt.Errorf("commit stock for order %s: %w", orderID, err)
	}
	return nil
}

// Release mengembalikan qty yang direservasi order. Guard idempotency ada
// di procedure: panggilan kedua (atau setelah commit) tidak memutasi apa-apa
// dan applied=false.
func (r *StockRepo) Release(ctx context.Context, orderID, reason string) (bool, error) {
	var applied bool
	err := conn(ctx, r.DB).QueryRow(ctx, `SELECT release_stock_for_order($1,$2)`, orderID, reason).Scan(&applied)
	if err != nil {
		return false, fmt.Errorf("release stock for order %s: %w", orderID, err)
	}
	return applied, nil
}

func (r *StockRepo) Entry(ctx context.Context, productID string) (StockEntry, error) {
	var e StockEntry
	err := conn(ctx, r.DB).QueryRow(ctx, `
		SELECT product_id, on_hand, reserved, COALESCE(updated_by,''), updated_at
		FROM stock_entries WHERE product_id=$1`, productID).
		Scan(&e.ProductID, &e.OnHand, &e.Reserved, &e.UpdatedBy, &e.UpdatedAt)
	if err != nil {
		return StockEntry{}, err
	}
	return e, nil
}

func (r *StockRepo) MovementsForOrder(ctx context.Context, orderID string) ([]StockMovement, error) {
	rows, err := conn(ctx, r.DB).Query(ctx, `
		SELECT id, product_id, order_id, delta, kind, COALESCE(reason,''), created_at
		FROM stock_movements WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.OrderID, &m.Delta, &m.Kind, &m.Reason, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
