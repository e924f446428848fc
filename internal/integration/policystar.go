package integration

import (
	"context"
	"net/http"
	"time"

	"github.com/tbourn/go-policy-admin/internal/domain"
)

// ExportReceipt is PolicySTAR's acknowledgement of an exported policy.
type ExportReceipt struct {
	Reference  string
	AcceptedAt time.Time
}

type exportCoverage struct {
	Type       string `json:"type"`
	Limit      string `json:"limit"`
	Deductible string `json:"deductible"`
}

type exportPayload struct {
	PolicyNumber  string           `json:"policy_number"`
	Status        string           `json:"status"`
	EffectiveDate string           `json:"effective_date"`
	ExpiryDate    string           `json:"expiry_date"`
	TotalPremium  string           `json:"total_premium"`
	Coverages     []exportCoverage `json:"coverages"`
}

// PolicyStar exports policies to the carrier's policy administration system.
type PolicyStar struct {
	caller *Caller
}

// NewPolicyStar wraps a configured Caller.
func NewPolicyStar(c *Caller) *PolicyStar { return &PolicyStar{caller: c} }

// Export pushes p to PolicySTAR. The request is keyed by policy number and
// version so PolicySTAR can deduplicate retried submissions.
func (ps *PolicyStar) Export(ctx context.Context, p *domain.Policy) (ExportReceipt, error) {
	body := exportPayload{
		PolicyNumber:  p.PolicyNumber,
		Status:        string(p.Status),
		EffectiveDate: p.EffectiveDate.Format(domain.DateLayout),
		ExpiryDate:    p.ExpiryDate.Format(domain.DateLayout),
		TotalPremium:  p.TotalPremium.StringFixed(2),
		Coverages:     make([]exportCoverage, 0, len(p.Coverages)),
	}
	for _, c := range p.Coverages {
		body.Coverages = append(body.Coverages, exportCoverage{
			Type:       c.Type,
			Limit:      c.Limit.StringFixed(2),
			Deductible: c.Deductible.StringFixed(2),
		})
	}
	hdr := http.Header{}
	hdr.Set("Idempotency-Key", p.PolicyNumber+"@"+itoa(p.Version))

	res, err := ps.caller.Do(ctx, Request{
		Op:     "export",
		Method: http.MethodPost,
		Path:   "/v1/policies",
		Body:   body,
		Header: hdr,
	})
	if err != nil {
		return ExportReceipt{}, err
	}
	ref := res.Get("reference").String()
	if ref == "" {
		return ExportReceipt{}, &Error{Integration: ps.caller.Name(), Op: "export", Kind: KindUnavailable,
			Message: "reply carried no reference"}
	}
	accepted := res.Get("accepted_at").Time()
	if accepted.IsZero() {
		accepted = time.Now().UTC()
	}
	return ExportReceipt{Reference: ref, AcceptedAt: accepted}, nil
}

// Ping checks PolicySTAR reachability.
func (ps *PolicyStar) Ping(ctx context.Context) error { return ps.caller.Ping(ctx, "/health") }
