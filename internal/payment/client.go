// Package payment talks to the external payment gateway.  Only the
// refund surface is needed here: deposits are captured by the booking
// front-end through the gateway's own checkout, and this service sees
// just the resulting payment reference.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	circuit "github.com/rubyist/circuitbreaker"
	"go.uber.org/zap"

	"github.com/brlvenue/table-reservation/internal/booking"
)

// gatewayTripThreshold is the consecutive-failure count after which
// the circuit opens and refund calls fail fast until the gateway
// recovers.
const gatewayTripThreshold = 5

// Client is a circuit-broken HTTP client for the payment gateway.
// Refunds are best-effort by contract: callers treat any error as
// "retry out-of-band", never as a reason to undo a cancellation.
type Client struct {
	baseURL string
	http    *circuit.HTTPClient
	log     *zap.Logger
}

// NewClient builds a gateway client.  An empty baseURL disables the
// client (NewClient returns nil) so local environments can run
// without the gateway.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    circuit.NewHTTPClient(timeout, gatewayTripThreshold, nil),
		log:     log,
	}
}

type refundRequest struct {
	PaymentReference string `json:"payment_reference"`
	AmountPence      int    `json:"amount_pence"`
	IdempotencyKey   string `json:"idempotency_key"`
}

type refundResponse struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id"`
}

// Refund asks the gateway to return amountPence against the original
// payment.  Each call carries a fresh idempotency key so gateway-side
// retries cannot double-refund.
func (c *Client) Refund(ctx context.Context, paymentRef string, amountPence int) (booking.RefundResult, error) {
	body, err := json.Marshal(refundRequest{
		PaymentReference: paymentRef,
		AmountPence:      amountPence,
		IdempotencyKey:   uuid.NewString(),
	})
	if err != nil {
		return booking.RefundResult{}, err
	}
	resp, err := c.http.Post(c.baseURL+"/v1/refunds", "application/json", bytes.NewReader(body))
	if err != nil {
		c.log.Warn("payment gateway unreachable", zap.Error(err))
		return booking.RefundResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.log.Warn("payment gateway rejected refund",
			zap.Int("status", resp.StatusCode),
			zap.Int("amount_pence", amountPence),
		)
		return booking.RefundResult{}, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	var out refundResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return booking.RefundResult{}, err
	}
	return booking.RefundResult{Success: out.Success, RefundID: out.RefundID}, nil
}
