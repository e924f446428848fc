// Package services – LookupService
//
// LookupService fronts the read-only underwriting lookups: driver license
// verification at the RMV and loss history from CLUE. Both calls run on the
// integration executor; the request waits for the outcome within its own
// deadline while the call itself keeps its per-attempt timeouts.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/integration"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

// LicenseVerifier checks driver licenses.
type LicenseVerifier interface {
	Verify(ctx context.Context, req integration.VerificationRequest) (integration.Verification, error)
}

// LossHistorian retrieves prior-loss reports.
type LossHistorian interface {
	History(ctx context.Context, req integration.HistoryRequest) (integration.Report, error)
}

// LookupService implements the RMV and CLUE lookups.
type LookupService struct {
	RMV      LicenseVerifier
	CLUE     LossHistorian
	Executor *integration.Executor
}

// VerifyLicense validates req and asks the RMV about the license.
func (s *LookupService) VerifyLicense(ctx context.Context, req integration.VerificationRequest) (out integration.Verification, err error) {
	ctx, span := startSpan(ctx, "LookupService", "VerifyLicense",
		trace.WithAttributes(attribute.String("license.state", req.State)))
	defer func() { finishSpan(span, err) }()

	ve := &validation.Error{}
	if strings.TrimSpace(req.LicenseNumber) == "" {
		ve.Add("license_number", "must not be empty")
	}
	if len(strings.TrimSpace(req.State)) != 2 {
		ve.Add("state", "must be a two-letter state code")
	}
	if err := ve.OrNil(); err != nil {
		return out, err
	}
	return integration.Call(s.Executor, ctx, func(ctx context.Context) (integration.Verification, error) {
		return s.RMV.Verify(ctx, req)
	})
}

// LossHistory validates req and fetches the CLUE report.
func (s *LookupService) LossHistory(ctx context.Context, req integration.HistoryRequest) (out integration.Report, err error) {
	ctx, span := startSpan(ctx, "LookupService", "LossHistory")
	defer func() { finishSpan(span, err) }()

	ve := &validation.Error{}
	if strings.TrimSpace(req.FirstName) == "" {
		ve.Add("first_name", "must not be empty")
	}
	if strings.TrimSpace(req.LastName) == "" {
		ve.Add("last_name", "must not be empty")
	}
	if req.DateOfBirth == "" {
		ve.Add("date_of_birth", "is required")
	} else if _, err := domain.ParseDate(req.DateOfBirth); err != nil {
		ve.Add("date_of_birth", "must be YYYY-MM-DD")
	}
	switch validation.NormalizeCode(req.Line) {
	case "", "AUTO", "PROPERTY":
	default:
		ve.Add("line", "must be AUTO or PROPERTY")
	}
	if err := ve.OrNil(); err != nil {
		return out, err
	}
	return integration.Call(s.Executor, ctx, func(ctx context.Context) (integration.Report, error) {
		return s.CLUE.History(ctx, req)
	})
}
