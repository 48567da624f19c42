package redisx

import "time"

const (
	// Idempotency checkout: idem:checkout:{external_id} -> order_id
	KeyIdemCheckout = "idem:checkout:%s"

	// Cache status order: order_status:{order_id} -> {"status":"...","fulfillment":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"

	// Jejak webhook yang sudah dilihat (observability, bukan guard):
	// webhook_seen:{payment_id} -> counter delivery
	KeyWebhookSeen = "webhook_seen:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLWebhookSeen = 48 * time.Hour
)
