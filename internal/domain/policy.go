// Package domain defines the persistence models for policies, claims,
// payments, documents and users. These types are mapped with GORM and form
// the core data layer of the policy administration service, together with
// the status tables that govern their lifecycles.
package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// PolicyStatus is the lifecycle state of a Policy.
type PolicyStatus string

const (
	PolicyDraft      PolicyStatus = "DRAFT"
	PolicyPending    PolicyStatus = "PENDING"
	PolicyActive     PolicyStatus = "ACTIVE"
	PolicyTerminated PolicyStatus = "TERMINATED"
	PolicyExpired    PolicyStatus = "EXPIRED"
	PolicyCancelled  PolicyStatus = "CANCELLED"
)

// policyTransitions lists the legal targets for each non-terminal state.
// PENDING -> DRAFT is the underwriting "return for correction" path.
var policyTransitions = map[PolicyStatus][]PolicyStatus{
	PolicyDraft:   {PolicyPending, PolicyActive, PolicyCancelled},
	PolicyPending: {PolicyActive, PolicyDraft, PolicyCancelled},
	PolicyActive:  {PolicyTerminated, PolicyExpired},
}

// Valid reports whether s is a recognized policy status.
func (s PolicyStatus) Valid() bool {
	switch s {
	case PolicyDraft, PolicyPending, PolicyActive, PolicyTerminated, PolicyExpired, PolicyCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further mutation is permitted in s.
func (s PolicyStatus) Terminal() bool {
	return s == PolicyTerminated || s == PolicyExpired || s == PolicyCancelled
}

// CanTransitionTo reports whether s -> to is a legal policy transition.
func (s PolicyStatus) CanTransitionTo(to PolicyStatus) bool {
	return slices.Contains(policyTransitions[s], to)
}

// Policy is an insurance contract between the carrier and its owner.
//
// Fields:
//   - PolicyNumber: business key, unique, formatted POL-YYYY-NNNNNN.
//   - EffectiveDate / ExpiryDate: calendar dates (UTC midnight); effective < expiry.
//   - OwnerID: optional owning user.
//   - Version: optimistic lock counter, starts at 1 and increments on every write.
//   - Coverages: owned sub-objects, replaced wholesale on update.
type Policy struct {
	ID            uint64          `json:"id"             gorm:"primaryKey;autoIncrement"`
	PolicyNumber  string          `json:"policy_number"  gorm:"type:varchar(32);not null;uniqueIndex:ux_policy_number"`
	Status        PolicyStatus    `json:"status"         gorm:"type:varchar(16);not null;index:idx_policy_status_expiry,priority:1"`
	TotalPremium  decimal.Decimal `json:"total_premium"  gorm:"type:decimal(14,2);not null"`
	EffectiveDate time.Time       `json:"effective_date" gorm:"not null"`
	ExpiryDate    time.Time       `json:"expiry_date"    gorm:"not null;index:idx_policy_status_expiry,priority:2"`
	OwnerID       *uint64         `json:"owner_id,omitempty" gorm:"index"`
	Version       int64           `json:"version"        gorm:"not null"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Coverages []Coverage `json:"coverages" gorm:"foreignKey:PolicyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Owner     *User      `json:"-"         gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for Policy.
func (Policy) TableName() string { return "policies" }

// InForceOn reports whether day falls inside [EffectiveDate, ExpiryDate].
func (p Policy) InForceOn(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(p.EffectiveDate)) && !d.After(Day(p.ExpiryDate))
}

// Coverage is one insured peril on a policy.
type Coverage struct {
	ID         uint64          `json:"id"         gorm:"primaryKey;autoIncrement"`
	PolicyID   uint64          `json:"-"          gorm:"not null;index"`
	Type       string          `json:"type"       gorm:"type:varchar(64);not null"`
	Limit      decimal.Decimal `json:"limit"      gorm:"column:limit_amount;type:decimal(14,2);not null"`
	Deductible decimal.Decimal `json:"deductible" gorm:"type:decimal(14,2);not null"`
}

// TableName returns the database table name for Coverage.
func (Coverage) TableName() string { return "policy_coverages" }

// ExportStatus tracks one PolicySTAR export attempt.
type ExportStatus string

const (
	ExportSubmitted ExportStatus = "SUBMITTED"
	ExportSucceeded ExportStatus = "SUCCEEDED"
	ExportFailed    ExportStatus = "FAILED"
)

// PolicyExport records the outcome of exporting a policy to PolicySTAR.
// Exports never change the policy status; a failed export is resubmitted
// by creating a new row.
type PolicyExport struct {
	ID                uint64       `json:"id"                           gorm:"primaryKey;autoIncrement"`
	PolicyID          uint64       `json:"policy_id"                    gorm:"not null;index:idx_export_policy"`
	Status            ExportStatus `json:"status"                       gorm:"type:varchar(16);not null"`
	ExternalReference string       `json:"external_reference,omitempty" gorm:"type:varchar(128)"`
	Error             string       `json:"error,omitempty"              gorm:"type:text"`
	RequestedBy       string       `json:"requested_by"                 gorm:"type:varchar(64);not null"`
	CreatedAt         time.Time    `json:"created_at"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`

	Policy Policy `json:"-" gorm:"foreignKey:PolicyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PolicyExport.
func (PolicyExport) TableName() string { return "policy_exports" }
