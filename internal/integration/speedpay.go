package integration

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/sysutil"
)

// PayRequest is a single disbursement order.
type PayRequest struct {
	Reference string // unique per Payment row; doubles as the idempotency key
	ClaimNo   string
	Amount    decimal.Decimal
	Currency  string
	Method    domain.PaymentMethod
}

// PayReceipt is SpeedPay's confirmation of a settled disbursement.
type PayReceipt struct {
	TransactionID string
	Status        string
}

// SpeedPay disburses claim payments.
type SpeedPay struct {
	caller *Caller
}

// NewSpeedPay wraps a configured Caller.
func NewSpeedPay(c *Caller) *SpeedPay { return &SpeedPay{caller: c} }

// Pay submits a disbursement. Retries reuse the same Idempotency-Key so a
// retried request can never pay twice. A DECLINED reply is a rejection.
func (s *SpeedPay) Pay(ctx context.Context, req PayRequest) (PayReceipt, error) {
	if req.Currency == "" {
		req.Currency = "USD"
	}
	hdr := http.Header{}
	hdr.Set("Idempotency-Key", req.Reference)

	res, err := s.caller.Do(ctx, Request{
		Op:     "pay",
		Method: http.MethodPost,
		Path:   "/v1/disbursements",
		Body: map[string]any{
			"reference":    req.Reference,
			"claim_number": req.ClaimNo,
			"amount":       req.Amount.StringFixed(2),
			"currency":     req.Currency,
			"method":       req.Method,
		},
		Header: hdr,
	})
	if err != nil {
		return PayReceipt{}, err
	}

	status := strings.ToUpper(res.Get("status").String())
	switch status {
	case "APPROVED", "SETTLED", "COMPLETED":
	case "DECLINED", "REJECTED", "FAILED":
		return PayReceipt{}, &Error{Integration: s.caller.Name(), Op: "pay", Kind: KindRejected,
			Message: sysutil.FirstNonEmpty(res.Get("reason").String(), "payment declined")}
	default:
		return PayReceipt{}, &Error{Integration: s.caller.Name(), Op: "pay", Kind: KindUnavailable,
			Message: "unexpected disbursement status " + status}
	}
	txn := res.Get("transaction_id").String()
	if txn == "" {
		return PayReceipt{}, &Error{Integration: s.caller.Name(), Op: "pay", Kind: KindUnavailable,
			Message: "reply carried no transaction id"}
	}
	return PayReceipt{TransactionID: txn, Status: status}, nil
}

// Ping checks SpeedPay reachability.
func (s *SpeedPay) Ping(ctx context.Context) error { return s.caller.Ping(ctx, "/health") }
