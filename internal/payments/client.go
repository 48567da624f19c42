package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// APIError: provider menjawab tapi bukan 2xx. Caller memetakan ini ke 5xx
// supaya provider melakukan retry delivery.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider %s: http %d: %s", e.Op, e.StatusCode, e.Body)
}

// HTTPClient bicara ke REST API provider dengan bearer token.
type HTTPClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type paymentJSON struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	Order             struct {
		ID json.Number `json:"id"`
	} `json:"order"`
}

func (c *HTTPClient) GetPayment(ctx context.Context, paymentID string) (Snapshot, error) {
	var out paymentJSON
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &out, "get payment"); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ID:                out.ID.String(),
		Status:            out.Status,
		ExternalReference: out.ExternalReference,
		MerchantOrderID:   out.Order.ID.String(),
		AmountCents:       int(math.Round(out.TransactionAmount * 100)),
		Currency:          out.CurrencyID,
	}, nil
}

type preferenceJSON struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

func (c *HTTPClient) CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error) {
	body := map[string]any{
		"external_reference": req.ExternalReference,
		"items": []map[string]any{{
			"title":      req.Title,
			"quantity":   1,
			"unit_price": float64(req.AmountCents) / 100,
		}},
		"back_urls": map[string]string{
			"success": req.SuccessURL,
			"failure": req.FailureURL,
		},
	}
	var out preferenceJSON
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &out, "create preference"); err != nil {
		return Preference{}, err
	}
	return Preference{ID: out.ID, InitPoint: out.InitPoint}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any, op string) error {
	var rdr io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("provider %s: encode: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("provider %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("provider %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("provider %s: decode: %w", op, err)
	}
	return nil
}
