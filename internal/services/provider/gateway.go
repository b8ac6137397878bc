package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type GatewayConfig struct {
	BaseURL string
	APIKey  string
	HMACKey string
	Timeout time.Duration
}

// Gateway talks to an external acquirer over HTTP. Requests are signed
// with an HMAC-SHA256 of the body. A transport error or timeout is a
// failed attempt, never an assumed success.
type Gateway struct {
	baseURL string
	apiKey  string
	hmacKey string
	hc      *http.Client
}

func NewGateway(cfg GatewayConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		hmacKey: cfg.HMACKey,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *Gateway) Name() string { return "gateway" }

func (g *Gateway) AttemptPayment(ctx context.Context, req *PaymentRequest) error {
	return g.post(ctx, "/v1/charges", req)
}

func (g *Gateway) AttemptRefund(ctx context.Context, req *RefundRequest) error {
	return g.post(ctx, "/v1/refunds", req)
}

type gatewayResponse struct {
	Status string `json:"status"` // approved, declined
	Reason string `json:"reason,omitempty"`
}

func (g *Gateway) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", g.apiKey)
	httpReq.Header.Set("X-Signature", hmac256(body, []byte(g.hmacKey)))

	resp, err := g.hc.Do(httpReq)
	if err != nil {
		// Includes client timeout and context deadline. Fail closed.
		return fmt.Errorf("gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var gr gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	if gr.Status != "approved" {
		if gr.Reason != "" {
			return fmt.Errorf("gateway declined: %s", gr.Reason)
		}
		return fmt.Errorf("gateway declined")
	}
	return nil
}

// hmac256 generates the HMAC-SHA256 signature for a request body.
func hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}
