package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type ReceiptLine struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
	TotalCents int    `json:"total_cents"`
}

type Receipt struct {
	OrderID    string        `json:"order_id"`
	BuyerID    string        `json:"buyer_id"`
	PaymentRef string        `json:"payment_ref"`
	Lines      []ReceiptLine `json:"lines"`
	TotalCents int           `json:"total_cents"`
	Currency   string        `json:"currency"`
}

// Sender adalah collaborator struk/email; implementasi aslinya service
// eksternal yang render PDF + kirim email.
type Sender interface {
	Send(ctx context.Context, r Receipt) error
}

// HTTPSender mem-POST receipt ke service eksternal.
type HTTPSender struct {
	URL  string
	HTTP *http.Client
}

func NewHTTPSender(url string) *HTTPSender {
	return &HTTPSender{URL: url, HTTP: &http.Client{Timeout: 15 * time.Second}}
}

func (s *HTTPSender) Send(ctx context.Context, r Receipt) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("receipt service: http %d: %s", resp.StatusCode, body)
	}
	return nil
}

// LogSender dipakai saat RECEIPT_URL kosong (dev/local).
type LogSender struct{}

func (LogSender) Send(_ context.Context, r Receipt) error {
	log.Printf("receipt (no RECEIPT_URL): order=%s total=%d %s lines=%d", r.OrderID, r.TotalCents, r.Currency, len(r.Lines))
	return nil
}
