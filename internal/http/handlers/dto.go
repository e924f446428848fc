package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/services"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

// Money travels as a decimal string ("1200.00"); numbers are accepted on
// input too. Dates are YYYY-MM-DD.

//
// Requests
//

// CoverageRequest is one coverage line of a policy payload.
type CoverageRequest struct {
	Type       string          `json:"type" example:"COLLISION"`
	Limit      decimal.Decimal `json:"limit" swaggertype:"string" example:"50000.00"`
	Deductible decimal.Decimal `json:"deductible" swaggertype:"string" example:"500.00"`
}

// PolicyRequest is the JSON payload for creating or replacing a policy.
type PolicyRequest struct {
	PolicyNumber  string            `json:"policy_number" example:"POL-2024-000001"`
	TotalPremium  decimal.Decimal   `json:"total_premium" swaggertype:"string" example:"1200.00"`
	EffectiveDate string            `json:"effective_date" example:"2024-01-01"`
	ExpiryDate    string            `json:"expiry_date" example:"2024-12-31"`
	OwnerID       *uint64           `json:"owner_id,omitempty" example:"1"`
	Coverages     []CoverageRequest `json:"coverages"`
	// Version is required on update and ignored on create.
	Version int64 `json:"version,omitempty" example:"1"`
}

func (r PolicyRequest) input() (services.PolicyInput, error) {
	ve := &validation.Error{}
	in := services.PolicyInput{
		PolicyNumber:  r.PolicyNumber,
		TotalPremium:  r.TotalPremium,
		EffectiveDate: parseDate(ve, "effective_date", r.EffectiveDate),
		ExpiryDate:    parseDate(ve, "expiry_date", r.ExpiryDate),
		OwnerID:       r.OwnerID,
	}
	for _, c := range r.Coverages {
		in.Coverages = append(in.Coverages, services.CoverageInput{Type: c.Type, Limit: c.Limit, Deductible: c.Deductible})
	}
	return in, ve.OrNil()
}

// VersionRequest carries the optimistic-lock version for state changes;
// omitting it skips the precondition.
type VersionRequest struct {
	Version int64 `json:"version,omitempty" binding:"min=0" example:"1"`
}

// TerminateRequest is the JSON payload for terminating a policy.
type TerminateRequest struct {
	TerminationDate string `json:"termination_date" example:"2024-06-15"`
}

// ClaimRequest is the JSON payload for filing a claim. ClaimNumber is
// generated when empty.
type ClaimRequest struct {
	ClaimNumber  string          `json:"claim_number,omitempty" example:"CLM-20240302-0001"`
	PolicyID     uint64          `json:"policy_id" example:"1"`
	ClaimAmount  decimal.Decimal `json:"claim_amount" swaggertype:"string" example:"5000.00"`
	IncidentDate string          `json:"incident_date" example:"2024-03-01"`
	Description  string          `json:"description,omitempty" example:"Rear-ended at a stop light"`
}

func (r ClaimRequest) input() (services.ClaimInput, error) {
	ve := &validation.Error{}
	in := services.ClaimInput{
		ClaimNumber:  r.ClaimNumber,
		PolicyID:     r.PolicyID,
		ClaimAmount:  r.ClaimAmount,
		IncidentDate: parseDate(ve, "incident_date", r.IncidentDate),
		Description:  r.Description,
	}
	return in, ve.OrNil()
}

// ClaimStatusRequest is the JSON payload for a claim status change.
type ClaimStatusRequest struct {
	Status  string `json:"status" binding:"required" example:"IN_REVIEW"`
	Version int64  `json:"version,omitempty" binding:"min=0" example:"1"`
}

// PaymentRequest is the JSON payload for a claim disbursement.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"1250.50"`
	Method string          `json:"method" example:"ACH"`
}

// UserRequest is the JSON payload for creating or replacing a user.
// Enabled defaults to true.
type UserRequest struct {
	Username string   `json:"username" example:"jdoe"`
	Enabled  *bool    `json:"enabled,omitempty" example:"true"`
	Locked   bool     `json:"locked" example:"false"`
	Expired  bool     `json:"expired" example:"false"`
	Roles    []string `json:"roles" example:"MANAGER"`
}

func (r UserRequest) input() services.UserInput {
	in := services.UserInput{Username: r.Username, Enabled: true, Locked: r.Locked, Expired: r.Expired}
	if r.Enabled != nil {
		in.Enabled = *r.Enabled
	}
	for _, n := range r.Roles {
		in.Roles = append(in.Roles, domain.RoleName(validation.NormalizeCode(n)))
	}
	return in
}

// parseDate records a violation for malformed input; empty input yields
// the zero time and is left to the validator.
func parseDate(ve *validation.Error, field, s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		ve.Add(field, "must be a date formatted YYYY-MM-DD")
	}
	return t
}

//
// Responses
//

// CoverageResponse is one coverage line.
type CoverageResponse struct {
	Type       string `json:"type" example:"COLLISION"`
	Limit      string `json:"limit" example:"50000.00"`
	Deductible string `json:"deductible" example:"500.00"`
}

// PolicyResponse is the policy representation.
type PolicyResponse struct {
	ID            uint64             `json:"id" example:"1"`
	PolicyNumber  string             `json:"policy_number" example:"POL-2024-000001"`
	Status        string             `json:"status" example:"DRAFT"`
	TotalPremium  string             `json:"total_premium" example:"1200.00"`
	EffectiveDate string             `json:"effective_date" example:"2024-01-01"`
	ExpiryDate    string             `json:"expiry_date" example:"2024-12-31"`
	OwnerID       *uint64            `json:"owner_id,omitempty"`
	Coverages     []CoverageResponse `json:"coverages"`
	Version       int64              `json:"version" example:"1"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func policyResponse(p *domain.Policy) PolicyResponse {
	out := PolicyResponse{
		ID:            p.ID,
		PolicyNumber:  p.PolicyNumber,
		Status:        string(p.Status),
		TotalPremium:  p.TotalPremium.StringFixed(2),
		EffectiveDate: p.EffectiveDate.Format(domain.DateLayout),
		ExpiryDate:    p.ExpiryDate.Format(domain.DateLayout),
		OwnerID:       p.OwnerID,
		Coverages:     make([]CoverageResponse, 0, len(p.Coverages)),
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	for _, c := range p.Coverages {
		out.Coverages = append(out.Coverages, CoverageResponse{
			Type: c.Type, Limit: c.Limit.StringFixed(2), Deductible: c.Deductible.StringFixed(2),
		})
	}
	return out
}

// ListPoliciesResponse wraps a page of policies and pagination information.
type ListPoliciesResponse struct {
	Policies   []PolicyResponse `json:"policies"`
	Pagination Pagination       `json:"pagination"`
}

// ExportResponse is one PolicySTAR export attempt.
type ExportResponse struct {
	ID                uint64     `json:"id" example:"3"`
	PolicyID          uint64     `json:"policy_id" example:"1"`
	Status            string     `json:"status" example:"SUCCEEDED"`
	ExternalReference string     `json:"external_reference,omitempty" example:"PS-778812"`
	Error             string     `json:"error,omitempty"`
	RequestedBy       string     `json:"requested_by" example:"jdoe"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

func exportResponse(e *domain.PolicyExport) ExportResponse {
	return ExportResponse{
		ID:                e.ID,
		PolicyID:          e.PolicyID,
		Status:            string(e.Status),
		ExternalReference: e.ExternalReference,
		Error:             e.Error,
		RequestedBy:       e.RequestedBy,
		CreatedAt:         e.CreatedAt,
		CompletedAt:       e.CompletedAt,
	}
}

// ClaimResponse is the claim representation.
type ClaimResponse struct {
	ID           uint64    `json:"id" example:"1"`
	ClaimNumber  string    `json:"claim_number" example:"CLM-20240302-0001"`
	Status       string    `json:"status" example:"PENDING"`
	ClaimAmount  string    `json:"claim_amount" example:"5000.00"`
	PaidAmount   string    `json:"paid_amount" example:"0.00"`
	IncidentDate string    `json:"incident_date" example:"2024-03-01"`
	ReportedDate string    `json:"reported_date" example:"2024-03-02"`
	Description  string    `json:"description,omitempty"`
	PolicyID     uint64    `json:"policy_id" example:"1"`
	Version      int64     `json:"version" example:"1"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func claimResponse(c *domain.Claim) ClaimResponse {
	return ClaimResponse{
		ID:           c.ID,
		ClaimNumber:  c.ClaimNumber,
		Status:       string(c.Status),
		ClaimAmount:  c.ClaimAmount.StringFixed(2),
		PaidAmount:   c.PaidAmount.StringFixed(2),
		IncidentDate: c.IncidentDate.Format(domain.DateLayout),
		ReportedDate: c.ReportedDate.Format(domain.DateLayout),
		Description:  c.Description,
		PolicyID:     c.PolicyID,
		Version:      c.Version,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// ListClaimsResponse wraps a page of claims and pagination information.
type ListClaimsResponse struct {
	Claims     []ClaimResponse `json:"claims"`
	Pagination Pagination      `json:"pagination"`
}

// PaymentResponse is one disbursement.
type PaymentResponse struct {
	ID                    uint64     `json:"id" example:"1"`
	ClaimID               uint64     `json:"claim_id" example:"1"`
	Amount                string     `json:"amount" example:"1250.50"`
	Method                string     `json:"method" example:"ACH"`
	Status                string     `json:"status" example:"COMPLETED"`
	ExternalTransactionID string     `json:"external_transaction_id,omitempty" example:"SP-00012"`
	FailureReason         string     `json:"failure_reason,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	ProcessedAt           *time.Time `json:"processed_at,omitempty"`
}

func paymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                    p.ID,
		ClaimID:               p.ClaimID,
		Amount:                p.Amount.StringFixed(2),
		Method:                string(p.Method),
		Status:                string(p.Status),
		ExternalTransactionID: p.ExternalTransactionID,
		FailureReason:         p.FailureReason,
		CreatedAt:             p.CreatedAt,
		ProcessedAt:           p.ProcessedAt,
	}
}

// UserResponse is the user representation.
type UserResponse struct {
	ID        uint64    `json:"id" example:"1"`
	Username  string    `json:"username" example:"jdoe"`
	Enabled   bool      `json:"enabled" example:"true"`
	Locked    bool      `json:"locked" example:"false"`
	Expired   bool      `json:"expired" example:"false"`
	Roles     []string  `json:"roles" example:"MANAGER"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func userResponse(u *domain.User) UserResponse {
	out := UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Enabled:   u.Enabled,
		Locked:    u.Locked,
		Expired:   u.Expired,
		Roles:     make([]string, 0, len(u.Roles)),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	for _, r := range u.Roles {
		out.Roles = append(out.Roles, string(r.Name))
	}
	return out
}

// ListUsersResponse wraps a page of users and pagination information.
type ListUsersResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination Pagination     `json:"pagination"`
}

func mapSlice[T, R any](in []T, f func(*T) R) []R {
	out := make([]R, 0, len(in))
	for i := range in {
		out = append(out, f(&in[i]))
	}
	return out
}
