package payments

import "context"

// Snapshot adalah state pembayaran otoritatif hasil fetch ke API provider.
// Body webhook tidak pernah dipercaya; field status di push payload diabaikan
// dan selalu di-fetch ulang lewat sini.
type Snapshot struct {
	ID                string
	Status            string // kode mentah provider, dinormalisasi via FromProviderCode
	ExternalReference string // korelasi balik ke order id kita
	MerchantOrderID   string
	AmountCents       int
	Currency          string
}

type PreferenceRequest struct {
	ExternalReference string
	Title             string
	AmountCents       int
	Currency          string
	SuccessURL        string
	FailureURL        string
}

// Preference adalah sesi hosted-checkout; pembeli di-redirect ke InitPoint.
type Preference struct {
	ID        string
	InitPoint string
}

type Client interface {
	GetPayment(ctx context.Context, paymentID string) (Snapshot, error)
	CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error)
}
