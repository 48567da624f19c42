package orders

import (
	"encoding/json"
	"time"
)

const (
	EventReceiptRequested = "ReceiptRequested"
	EventStatusChanged    = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "backoffice-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`                  // payload spesifik
}

// ---- Payload tipe per event ----

// ReceiptRequestedPayload di-enqueue setelah transaksi ledger commit; worker
// notifier yang bikin struk + kirim email. Duplicate delivery aman (dedup di
// sisi consumer, dan kirim struk dobel memang ditoleransi).
type ReceiptRequestedPayload struct {
	OrderID     string `json:"order_id"`
	PaymentRef  string `json:"payment_ref"`
	AmountCents int    `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type StatusChangedPayload struct {
	OrderID    string `json:"order_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}
