package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepo struct{ DB *pgxpool.Pool }

// LockForOrder mengambil baris payment (order, provider) dengan FOR UPDATE.
// Dipanggil dari dalam transaksi rekonsiliasi: row lock inilah yang menutup
// race window antara baca status lama dan tulis status baru saat webhook
// duplikat diproses paralel.
func (r *PaymentRepo) LockForOrder(ctx context.Context, orderID, provider string) (Payment, error) {
	var p Payment
	err := conn(ctx, r.DB).QueryRow(ctx, `
		SELECT order_id, provider, COALESCE(provider_payment_id,''), raw_status, status, created_at, updated_at
		FROM payments WHERE order_id=$1 AND provider=$2
		FOR UPDATE`, orderID, provider).
		Scan(&p.OrderID, &p.Provider, &p.ProviderPaymentID, &p.RawStatus, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

// SaveSnapshot menyimpan snapshot terakhir dari provider + status canonical.
func (r *PaymentRepo) SaveSnapshot(ctx context.Context, orderID, provider, providerPaymentID, rawStatus, status string) error {
	ct, err := conn(ctx, r.DB).Exec(ctx, `
		UPDATE payments
		SET provider_payment_id=$3, raw_status=$4, status=$5, updated_at=now()
		WHERE order_id=$1 AND provider=$2`,
		orderID, provider, providerPaymentID, rawStatus, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
