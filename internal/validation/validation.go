// Package validation enforces field-level and cross-field business rules on
// policies, claims, documents, payments and users before any persistence or
// state transition happens. Every rule runs; the violations are aggregated
// into a single *Error so a caller can fix all of them in one round trip.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-policy-admin/internal/domain"
)

// MaxDocumentSize is the largest accepted claim document (10 MiB).
const MaxDocumentSize int64 = 10 << 20

// AllowedContentTypes is the upload whitelist.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

var (
	policyNumberRe = regexp.MustCompile(`^POL-\d{4}-\d{6}$`)
	usernameRe     = regexp.MustCompile(`^[a-z0-9._-]{3,64}$`)
)

// Violation is a single failed rule.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error aggregates all violations found on one input.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a violation.
func (e *Error) Add(field, reason string) {
	e.Violations = append(e.Violations, Violation{Field: field, Reason: reason})
}

// OrNil returns e as an error only when it carries violations.
func (e *Error) OrNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

// Fail builds a single-violation error.
func Fail(field, reason string) *Error {
	return &Error{Violations: []Violation{{Field: field, Reason: reason}}}
}

// Rule checks one field of T and returns a reason when it fails, "" otherwise.
type Rule[T any] struct {
	Field string
	Check func(T) string
}

func apply[T any](e *Error, v T, rules []Rule[T]) {
	for _, r := range rules {
		if reason := r.Check(v); reason != "" {
			e.Add(r.Field, reason)
		}
	}
}

// Clock supplies "now" for date rules.
type Clock func() time.Time

// Validator holds the rule tables. It is stateless apart from its clock and
// is safe for concurrent use.
type Validator struct {
	now         Clock
	policyRules []Rule[*domain.Policy]
	claimRules  []Rule[*domain.Claim]
	docRules    []Rule[Document]
	userRules   []Rule[*domain.User]
}

// New builds a Validator; a nil clock means time.Now.
func New(now Clock) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{now: now}
	v.policyRules = []Rule[*domain.Policy]{
		{"policy_number", func(p *domain.Policy) string {
			switch {
			case strings.TrimSpace(p.PolicyNumber) == "":
				return "must not be empty"
			case !policyNumberRe.MatchString(p.PolicyNumber):
				return "must match POL-YYYY-NNNNNN"
			}
			return ""
		}},
		{"effective_date", func(p *domain.Policy) string {
			if p.EffectiveDate.IsZero() {
				return "is required"
			}
			return ""
		}},
		{"expiry_date", func(p *domain.Policy) string {
			switch {
			case p.ExpiryDate.IsZero():
				return "is required"
			case p.EffectiveDate.IsZero():
				return ""
			case !p.EffectiveDate.Before(p.ExpiryDate):
				return "must be after effective_date"
			case p.ExpiryDate.After(p.EffectiveDate.AddDate(1, 0, 0)):
				return "policy term must not exceed one year"
			}
			return ""
		}},
		{"total_premium", func(p *domain.Policy) string {
			switch {
			case !p.TotalPremium.IsPositive():
				return "must be greater than zero"
			case !wholeCents(p.TotalPremium):
				return "must have at most two decimal places"
			}
			return ""
		}},
	}
	v.claimRules = []Rule[*domain.Claim]{
		{"incident_date", func(c *domain.Claim) string {
			switch {
			case c.IncidentDate.IsZero():
				return "is required"
			case domain.Day(c.IncidentDate).After(domain.Day(v.now())):
				return "must not be in the future"
			}
			return ""
		}},
		{"claim_amount", func(c *domain.Claim) string {
			switch {
			case !c.ClaimAmount.IsPositive():
				return "must be greater than zero"
			case !wholeCents(c.ClaimAmount):
				return "must have at most two decimal places"
			}
			return ""
		}},
		{"status", func(c *domain.Claim) string {
			if !c.Status.Valid() {
				return fmt.Sprintf("unrecognized status %q", c.Status)
			}
			return ""
		}},
		{"policy_id", func(c *domain.Claim) string {
			if c.PolicyID == 0 {
				return "is required"
			}
			return ""
		}},
	}
	v.docRules = []Rule[Document]{
		{"file_name", func(d Document) string {
			if strings.TrimSpace(d.FileName) == "" {
				return "must not be empty"
			}
			return ""
		}},
		{"size_bytes", func(d Document) string {
			switch {
			case d.Size <= 0:
				return "file is empty"
			case d.Size > MaxDocumentSize:
				return fmt.Sprintf("must not exceed %d bytes", MaxDocumentSize)
			}
			return ""
		}},
		{"content_type", func(d Document) string {
			if !AllowedContentTypes[d.ContentType] {
				return fmt.Sprintf("%q is not allowed; use PDF, JPEG or PNG", d.ContentType)
			}
			return ""
		}},
	}
	v.userRules = []Rule[*domain.User]{
		{"username", func(u *domain.User) string {
			if !usernameRe.MatchString(u.Username) {
				return "must be 3-64 characters of a-z, 0-9, '.', '_' or '-'"
			}
			return ""
		}},
		{"roles", func(u *domain.User) string {
			for _, r := range u.Roles {
				if !r.Name.Valid() {
					return fmt.Sprintf("unknown role %q", r.Name)
				}
			}
			return ""
		}},
	}
	return v
}

// Now returns the validator's notion of the current time.
func (v *Validator) Now() time.Time { return v.now() }

// Policy validates a policy and its coverages.
func (v *Validator) Policy(p *domain.Policy) error {
	e := &Error{}
	apply(e, p, v.policyRules)
	for i, c := range p.Coverages {
		field := fmt.Sprintf("coverages[%d]", i)
		if strings.TrimSpace(c.Type) == "" {
			e.Add(field+".type", "must not be empty")
		}
		if !c.Limit.IsPositive() {
			e.Add(field+".limit", "must be greater than zero")
		} else if !wholeCents(c.Limit) {
			e.Add(field+".limit", "must have at most two decimal places")
		}
		switch {
		case c.Deductible.IsNegative():
			e.Add(field+".deductible", "must not be negative")
		case !wholeCents(c.Deductible):
			e.Add(field+".deductible", "must have at most two decimal places")
		case c.Limit.IsPositive() && c.Deductible.GreaterThan(c.Limit):
			e.Add(field+".deductible", "must not exceed limit")
		}
	}
	return e.OrNil()
}

// Claim validates a claim independent of its policy.
func (v *Validator) Claim(c *domain.Claim) error {
	e := &Error{}
	apply(e, c, v.claimRules)
	return e.OrNil()
}

// Document describes an upload before its bytes are stored.
type Document struct {
	FileName    string
	ContentType string
	Size        int64
}

// Document validates upload metadata.
func (v *Validator) Document(d Document) error {
	e := &Error{}
	apply(e, d, v.docRules)
	return e.OrNil()
}

// Payment validates a disbursement request.
func (v *Validator) Payment(amount decimal.Decimal, method domain.PaymentMethod) error {
	e := &Error{}
	if !amount.IsPositive() {
		e.Add("amount", "must be greater than zero")
	} else if !wholeCents(amount) {
		e.Add("amount", "must have at most two decimal places")
	}
	if !method.Valid() {
		e.Add("method", fmt.Sprintf("unsupported method %q", method))
	}
	return e.OrNil()
}

func wholeCents(d decimal.Decimal) bool { return d.Equal(d.Truncate(2)) }

// User validates a user account.
func (v *Validator) User(u *domain.User) error {
	e := &Error{}
	apply(e, u, v.userRules)
	return e.OrNil()
}

// NormalizeUsername case-folds and trims a username. Casers are stateful, so
// each call builds its own.
func NormalizeUsername(s string) string { return cases.Fold().String(strings.TrimSpace(s)) }

// NormalizeCode upper-cases enum-like input such as coverage types.
func NormalizeCode(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}
