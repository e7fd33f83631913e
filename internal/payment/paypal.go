// Package payment implements the PayPal Orders v2 client used by the
// reservation workflow: create an order before redirecting the guest, then
// capture it on confirmation.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"stayd/internal/config"
	"stayd/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"
)

const CaptureStatusCompleted = "COMPLETED"

type PayPalClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zerolog.Logger
}

// NewPayPalClient builds a client whose transport refreshes the OAuth2
// client-credentials token automatically.
func NewPayPalClient(cfg config.PaymentConfig, logger *zerolog.Logger) *PayPalClient {
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.BaseURL + "/v1/oauth2/token",
	}

	httpClient := creds.Client(context.Background())
	httpClient.Timeout = 30 * time.Second

	return &PayPalClient{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type orderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type purchaseUnit struct {
	Amount      unitAmount `json:"amount"`
	Description string     `json:"description,omitempty"`
}

type unitAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateOrder registers a CAPTURE-intent order and returns the provider
// order id.
func (c *PayPalClient) CreateOrder(ctx context.Context, amount float64, currency, description string) (string, error) {
	body := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: unitAmount{
				CurrencyCode: currency,
				Value:        strconv.FormatFloat(amount, 'f', 2, 64),
			},
			Description: description,
		}},
	}

	var resp orderResponse
	if err := c.post(ctx, "/v2/checkout/orders", body, &resp); err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("order response has no id")
	}

	c.logger.Info().Str("order_id", resp.ID).Str("status", resp.Status).Msg("Payment order created")
	return resp.ID, nil
}

// CaptureOrder settles an approved order. A capture result with status other
// than COMPLETED is not an error at this layer; the workflow decides.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*models.CaptureResult, error) {
	var resp orderResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID)
	if err := c.post(ctx, path, struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("failed to capture order %s: %w", orderID, err)
	}

	result := &models.CaptureResult{Status: resp.Status}
	for _, unit := range resp.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			result.TransactionID = capture.ID
			if capture.Status != "" {
				result.Status = capture.Status
			}
		}
	}

	c.logger.Info().
		Str("order_id", orderID).
		Str("status", result.Status).
		Str("transaction_id", result.TransactionID).
		Msg("Payment capture attempted")
	return result, nil
}

func (c *PayPalClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
