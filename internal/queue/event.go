// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking passes admission
// control and its reference is minted.  The reference and check-in
// code travel as opaque strings for downstream QR/email consumers;
// this service never renders or transmits them itself.
type BookingConfirmedEvent struct {
	EventID      string   `json:"event_id"`
	Reference    string   `json:"reference"`
	CheckInCode  string   `json:"check_in_code"`
	CustomerName string   `json:"customer_name"`
	Email        string   `json:"email"`
	Day          string   `json:"day"`
	ArrivalAt    string   `json:"arrival_at"`
	PartySize    int      `json:"party_size"`
	TableIDs     []uint64 `json:"tables"`
	DepositPence int      `json:"deposit_pence"`
	ConfirmedAt  string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published after a cancellation commits.
// RefundPence reflects the policy decision at cancellation time;
// RefundProcessed is false when the money movement was deferred to
// reconciliation.
type BookingCancelledEvent struct {
	EventID         string `json:"event_id"`
	Reference       string `json:"reference"`
	CustomerName    string `json:"customer_name"`
	Email           string `json:"email"`
	RefundEligible  bool   `json:"refund_eligible"`
	RefundPence     int    `json:"refund_pence"`
	RefundProcessed bool   `json:"refund_processed"`
	CancelledAt     string `json:"cancelled_at"`
}
