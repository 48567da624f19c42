package orders

type Status string

const (
	StatusPaymentPending Status = "PAYMENT_PENDING"
	StatusPaid           Status = "PAID"
	StatusPreparing      Status = "PREPARING"
	StatusShipped        Status = "SHIPPED"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
	StatusFailed         Status = "FAILED"
	StatusRefund         Status = "REFUND"
)

var validNext = map[Status]map[Status]bool{
	StatusPaymentPending: {StatusPaid: true, StatusCancelled: true, StatusFailed: true, StatusRefund: true},
	StatusPaid:           {StatusPreparing: true, StatusRefund: true},
	StatusPreparing:      {StatusShipped: true, StatusRefund: true},
	StatusShipped:        {StatusDelivered: true},
	StatusDelivered:      {},
	StatusCancelled:      {},
	StatusFailed:         {},
	StatusRefund:         {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// PendingLike: order masih boleh di-release stoknya.
// CREATED/PENDING adalah nilai pra-normalisasi yang masih ada di data lama.
func (s Status) PendingLike() bool {
	return s == StatusPaymentPending || s == "CREATED" || s == "PENDING"
}

// Fulfillment sub-status, dicatat di audit trail fulfillment_events.
const (
	FulfillPreparing = "PREPARING"
	FulfillShipped   = "SHIPPED"
	FulfillDelivered = "DELIVERED"
)
