package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus is the lifecycle state of a Claim.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "PENDING"
	ClaimInReview ClaimStatus = "IN_REVIEW"
	ClaimApproved ClaimStatus = "APPROVED"
	ClaimRejected ClaimStatus = "REJECTED"
	ClaimClosed   ClaimStatus = "CLOSED"
)

var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimPending:  {ClaimInReview},
	ClaimInReview: {ClaimApproved, ClaimRejected},
	ClaimApproved: {ClaimClosed},
	ClaimRejected: {ClaimClosed},
}

// Valid reports whether s is a recognized claim status.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimPending, ClaimInReview, ClaimApproved, ClaimRejected, ClaimClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> to is a legal claim transition.
func (s ClaimStatus) CanTransitionTo(to ClaimStatus) bool {
	return slices.Contains(claimTransitions[s], to)
}

// AcceptsPayments reports whether payments may still be issued against s.
func (s ClaimStatus) AcceptsPayments() bool {
	return s != ClaimRejected && s != ClaimClosed
}

// Claim is a loss reported against a policy.
//
// PaidAmount mirrors the sum of COMPLETED payments and never exceeds
// ClaimAmount. Version guards concurrent status changes and payment issuance.
type Claim struct {
	ID           uint64          `json:"id"            gorm:"primaryKey;autoIncrement"`
	ClaimNumber  string          `json:"claim_number"  gorm:"type:varchar(32);not null;uniqueIndex:ux_claim_number"`
	Status       ClaimStatus     `json:"status"        gorm:"type:varchar(16);not null;index"`
	ClaimAmount  decimal.Decimal `json:"claim_amount"  gorm:"type:decimal(14,2);not null"`
	PaidAmount   decimal.Decimal `json:"paid_amount"   gorm:"type:decimal(14,2);not null"`
	IncidentDate time.Time       `json:"incident_date" gorm:"not null"`
	ReportedDate time.Time       `json:"reported_date" gorm:"not null"`
	Description  string          `json:"description,omitempty" gorm:"type:text"`
	PolicyID     uint64          `json:"policy_id"     gorm:"not null;index:idx_claim_policy"`
	Version      int64           `json:"version"       gorm:"not null"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Policy    Policy          `json:"-" gorm:"foreignKey:PolicyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Documents []ClaimDocument `json:"-" gorm:"foreignKey:ClaimID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Payments  []Payment       `json:"-" gorm:"foreignKey:ClaimID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Claim.
func (Claim) TableName() string { return "claims" }

// ClaimDocument is immutable metadata of a file attached to a claim. The
// bytes live in the document store under StorageLocation.
type ClaimDocument struct {
	ID              uint64    `json:"id"               gorm:"primaryKey;autoIncrement"`
	ClaimID         uint64    `json:"claim_id"         gorm:"not null;index:idx_document_claim"`
	FileName        string    `json:"file_name"        gorm:"type:varchar(255);not null"`
	ContentType     string    `json:"content_type"     gorm:"type:varchar(64);not null"`
	SizeBytes       int64     `json:"size_bytes"       gorm:"not null"`
	StorageLocation string    `json:"storage_location" gorm:"type:varchar(512);not null"`
	UploadedBy      string    `json:"uploaded_by"      gorm:"type:varchar(64);not null"`
	UploadedAt      time.Time `json:"uploaded_at"      gorm:"not null"`
}

// TableName returns the database table name for ClaimDocument.
func (ClaimDocument) TableName() string { return "claim_documents" }

// PaymentStatus is the lifecycle state of a Payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
)

// Committed reports whether the payment counts against the claim amount.
func (s PaymentStatus) Committed() bool {
	return s == PaymentPending || s == PaymentProcessing || s == PaymentCompleted
}

// PaymentMethod is how SpeedPay disburses funds.
type PaymentMethod string

const (
	MethodACH   PaymentMethod = "ACH"
	MethodCheck PaymentMethod = "CHECK"
	MethodCard  PaymentMethod = "CARD"
	MethodWire  PaymentMethod = "WIRE"
)

// Valid reports whether m is a supported disbursement method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodACH, MethodCheck, MethodCard, MethodWire:
		return true
	}
	return false
}

// Payment is a single disbursement on a claim. FAILED payments are final;
// a retry creates a new row so the audit trail is preserved.
type Payment struct {
	ID                    uint64          `json:"id"                                gorm:"primaryKey;autoIncrement"`
	ClaimID               uint64          `json:"claim_id"                          gorm:"not null;index:idx_payment_claim"`
	ExternalTransactionID string          `json:"external_transaction_id,omitempty" gorm:"type:varchar(128)"`
	Amount                decimal.Decimal `json:"amount"                            gorm:"type:decimal(14,2);not null"`
	Status                PaymentStatus   `json:"status"                            gorm:"type:varchar(16);not null"`
	Method                PaymentMethod   `json:"method"                            gorm:"type:varchar(8);not null"`
	FailureReason         string          `json:"failure_reason,omitempty"          gorm:"type:text"`
	CreatedAt             time.Time       `json:"created_at"`
	ProcessedAt           *time.Time      `json:"processed_at,omitempty"`
}

// TableName returns the database table name for Payment.
func (Payment) TableName() string { return "payments" }
