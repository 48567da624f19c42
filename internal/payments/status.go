package payments

import (
	"strings"

	"github.com/edulibros/backoffice/internal/orders"
)

// Status adalah state pembayaran canonical, hasil normalisasi kode provider.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

// FromProviderCode total: kode apapun menghasilkan tepat satu Status.
// Kode yang tidak dikenal jatuh ke PENDING, jangan pernah ke APPROVED.
func FromProviderCode(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved":
		return StatusApproved
	case "rejected":
		return StatusRejected
	case "cancelled", "canceled":
		return StatusCancelled
	case "refunded", "charged_back":
		return StatusRefunded
	case "pending", "in_process":
		return StatusPending
	default:
		return StatusPending
	}
}

// OrderStatus memetakan status pembayaran ke status order canonical.
func (s Status) OrderStatus() orders.Status {
	switch s {
	case StatusApproved:
		return orders.StatusPaid
	case StatusRefunded:
		return orders.StatusRefund
	case StatusRejected:
		return orders.StatusFailed
	case StatusCancelled:
		return orders.StatusCancelled
	default:
		return orders.StatusPaymentPending
	}
}

var validNext = map[Status]map[Status]bool{
	StatusCreated:   {StatusPending: true, StatusApproved: true, StatusRejected: true, StatusCancelled: true, StatusRefunded: true},
	StatusPending:   {StatusApproved: true, StatusRejected: true, StatusCancelled: true, StatusRefunded: true},
	StatusApproved:  {StatusRefunded: true},
	StatusRejected:  {StatusPending: true, StatusApproved: true},
	StatusCancelled: {},
	StatusRefunded:  {},
}

// CanAdvance: delivery provider bisa out-of-order; transisi yang tidak ada di
// graph dianggap stale dan di-skip, bukan error.
func CanAdvance(from, to Status) bool {
	return validNext[from][to]
}

// Final: tidak ada transisi keluar lagi.
func (s Status) Final() bool {
	return len(validNext[s]) == 0
}
