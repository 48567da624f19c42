package orders

import "time"

type Product struct {
	ID         string
	SKU        string
	Name       string
	PriceCents int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Order struct {
	ID          string
	ExternalID  string
	BuyerID     string
	Status      Status // lihat status.go
	Fulfillment string // sub-status fulfillment, kosong sebelum PAID
	TotalCents  int
	Currency    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem menyimpan snapshot nama/kode saat checkout; snapshot tidak pernah
// di-derive ulang dari katalog setelah ditulis.
type OrderItem struct {
	ID         string
	OrderID    string
	ProductID  *string // nil untuk baris header bundle
	Qty        int
	PriceCents int
	TotalCents int
	NameSnap   string
	CodeSnap   string
}

// Payment: satu baris per (order, provider).
type Payment struct {
	OrderID           string
	Provider          string
	ProviderPaymentID string
	RawStatus         string // snapshot kode terakhir dari provider, apa adanya
	Status            string // canonical, lihat payments.Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type StockEntry struct {
	ProductID string
	OnHand    int
	Reserved  int
	UpdatedBy string
	UpdatedAt time.Time
}

type StockMovement struct {
	ID        string
	ProductID string
	OrderID   string
	Delta     int
	Kind      string // RESERVE | COMMIT | RELEASE
	Reason    string
	CreatedAt time.Time
}

// FulfillmentEvent: audit trail append-only perubahan sub-status fulfillment.
type FulfillmentEvent struct {
	ID        string
	OrderID   string
	From      string
	To        string
	Actor     string
	CreatedAt time.Time
}
