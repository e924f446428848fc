// Package services – PolicyService
//
// This file implements PolicyService, which owns the policy lifecycle:
// DRAFT -> (PENDING) -> ACTIVE -> {TERMINATED, EXPIRED}, plus cancellation of
// policies that never went live. Every write runs under an optimistic version
// check so concurrent editors cannot overwrite each other silently.
//
// Export to PolicySTAR is observational: it is submitted on the integration
// executor, its outcome is recorded as a PolicyExport row, and the policy
// status never changes because of it.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/events"
	"github.com/tbourn/go-policy-admin/internal/integration"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

const expiryBatch = 100

// Exporter pushes a policy to the external policy administration system.
type Exporter interface {
	Export(ctx context.Context, p *domain.Policy) (integration.ExportReceipt, error)
}

// PolicyService implements the policy use-cases.
type PolicyService struct {
	DB        *gorm.DB
	Validator *validation.Validator
	Exporter  Exporter
	Executor  *integration.Executor
	Events    events.Publisher

	// UnderwritingRequired forbids DRAFT -> ACTIVE; policies must pass
	// through PENDING.
	UnderwritingRequired bool
	// ExportDisabled turns ExportToExternalSystem off.
	ExportDisabled bool
}

// CoverageInput is one requested coverage line.
type CoverageInput struct {
	Type       string
	Limit      decimal.Decimal
	Deductible decimal.Decimal
}

// PolicyInput carries the client-editable fields of a policy.
type PolicyInput struct {
	PolicyNumber  string
	TotalPremium  decimal.Decimal
	EffectiveDate time.Time
	ExpiryDate    time.Time
	OwnerID       *uint64
	Coverages     []CoverageInput
}

func (in PolicyInput) applyTo(p *domain.Policy) {
	p.PolicyNumber = validation.NormalizeCode(in.PolicyNumber)
	p.TotalPremium = in.TotalPremium
	p.EffectiveDate = dayOrZero(in.EffectiveDate)
	p.ExpiryDate = dayOrZero(in.ExpiryDate)
	p.OwnerID = in.OwnerID
	p.Coverages = make([]domain.Coverage, 0, len(in.Coverages))
	for _, c := range in.Coverages {
		p.Coverages = append(p.Coverages, domain.Coverage{
			Type:       validation.NormalizeCode(c.Type),
			Limit:      c.Limit,
			Deductible: c.Deductible,
		})
	}
}

func dayOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return domain.Day(t)
}

// Create validates in and persists a new DRAFT policy at version 1.
func (s *PolicyService) Create(ctx context.Context, in PolicyInput) (p *domain.Policy, err error) {
	ctx, span := startSpan(ctx, "PolicyService", "Create",
		trace.WithAttributes(attribute.String("policy.number", in.PolicyNumber)))
	defer func() { finishSpan(span, err) }()

	p = &domain.Policy{Status: domain.PolicyDraft, Version: 1}
	in.applyTo(p)
	if err := s.Validator.Policy(p); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, s.DB, p.OwnerID); err != nil {
		return nil, err
	}
	if err := repo.CreatePolicy(ctx, s.DB, p); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, validation.Fail("policy_number", "already exists")
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Uint64("policy_id", p.ID).
		Str("policy_number", p.PolicyNumber).
		Msg("policy created")
	events.Emit(ctx, s.Events, events.New(events.PolicyCreated, p.ID, Actor(ctx), map[string]any{
		"policy_number": p.PolicyNumber,
		"status":        p.Status,
	}))
	return p, nil
}

// Get returns a policy with its coverages.
func (s *PolicyService) Get(ctx context.Context, id uint64) (*domain.Policy, error) {
	ctx, span := startSpan(ctx, "PolicyService", "Get",
		trace.WithAttributes(attribute.Int64("policy.id", int64(id))))
	defer span.End()
	return s.load(ctx, s.DB, id)
}

// List returns a page of policies matching f and the total match count.
func (s *PolicyService) List(ctx context.Context, f repo.PolicyFilter, page, pageSize int) ([]domain.Policy, int64, error) {
	ctx, span := startSpan(ctx, "PolicyService", "List",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
			attribute.String("filter.status", string(f.Status)),
		))
	defer span.End()

	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountPolicies(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Policy{}, 0, nil
	}
	items, err := repo.ListPoliciesPage(ctx, s.DB, f, offset, limit)
	return items, total, err
}

// Update replaces the editable fields of policy id. expected is the version
// the client last read; a mismatch yields ConcurrentModificationError.
func (s *PolicyService) Update(ctx context.Context, id uint64, in PolicyInput, expected int64) (out *domain.Policy, err error) {
	ctx, span := startSpan(ctx, "PolicyService", "Update",
		trace.WithAttributes(
			attribute.Int64("policy.id", int64(id)),
			attribute.Int64("policy.expected_version", expected),
		))
	defer func() { finishSpan(span, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return &IllegalStateError{Resource: "policy", ID: id, From: string(cur.Status),
				Reason: "closed policies cannot be modified"}
		}
		if cur.Version != expected {
			return &ConcurrentModificationError{Resource: "policy", ID: id, Expected: expected, Actual: cur.Version}
		}
		in.applyTo(cur)
		if err := s.Validator.Policy(cur); err != nil {
			return err
		}
		if err := s.checkOwner(ctx, tx, cur.OwnerID); err != nil {
			return err
		}
		if err := repo.UpdatePolicy(ctx, tx, cur, expected); err != nil {
			return s.mapWriteErr(id, expected, err)
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.Events, events.New(events.PolicyUpdated, id, Actor(ctx), map[string]any{
		"version": out.Version,
	}))
	return out, nil
}

// Transition moves policy id to target along the lifecycle table. Only the
// client-driven transitions are accepted here: submit (PENDING), activate
// (ACTIVE), return for correction (DRAFT) and cancel (CANCELLED).
// Termination and expiry have their own operations. expected <= 0 skips
// the version precondition.
func (s *PolicyService) Transition(ctx context.Context, id uint64, target domain.PolicyStatus, expected int64) (out *domain.Policy, err error) {
	ctx, span := startSpan(ctx, "PolicyService", "Transition",
		trace.WithAttributes(
			attribute.Int64("policy.id", int64(id)),
			attribute.String("policy.target", string(target)),
		))
	defer func() { finishSpan(span, err) }()

	var from domain.PolicyStatus
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		from = cur.Status
		if expected > 0 && cur.Version != expected {
			return &ConcurrentModificationError{Resource: "policy", ID: id, Expected: expected, Actual: cur.Version}
		}
		switch target {
		case domain.PolicyTerminated:
			return &IllegalStateError{Resource: "policy", ID: id, From: string(from), To: string(target),
				Reason: "use terminate with a termination date"}
		case domain.PolicyExpired:
			return &IllegalStateError{Resource: "policy", ID: id, From: string(from), To: string(target),
				Reason: "expiry happens at end of term"}
		}
		if !from.CanTransitionTo(target) {
			return &IllegalStateError{Resource: "policy", ID: id, From: string(from), To: string(target)}
		}
		if s.UnderwritingRequired && from == domain.PolicyDraft && target == domain.PolicyActive {
			return &IllegalStateError{Resource: "policy", ID: id, From: string(from), To: string(target),
				Reason: "underwriting approval required; submit the policy first"}
		}
		if err := repo.UpdatePolicyStatus(ctx, tx, id, cur.Version, target, nil); err != nil {
			return s.mapWriteErr(id, cur.Version, err)
		}
		cur.Status = target
		cur.Version++
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.statusChanged(ctx, out, from)
	return out, nil
}

// Terminate ends an ACTIVE policy early. The termination date must fall
// after the effective date and no later than the current expiry date; it
// becomes the new expiry date. A zero date means today.
func (s *PolicyService) Terminate(ctx context.Context, id uint64, date time.Time) (out *domain.Policy, err error) {
	ctx, span := startSpan(ctx, "PolicyService", "Terminate",
		trace.WithAttributes(
			attribute.Int64("policy.id", int64(id)),
			attribute.String("policy.termination_date", date.Format(domain.DateLayout)),
		))
	defer func() { finishSpan(span, err) }()

	if date.IsZero() {
		date = s.Validator.Now()
	}
	date = domain.Day(date)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.Status != domain.PolicyActive {
			return &IllegalStateError{Resource: "policy", ID: id, From: string(cur.Status), To: string(domain.PolicyTerminated),
				Reason: "only ACTIVE policies can be terminated"}
		}
		if !date.After(cur.EffectiveDate) || date.After(cur.ExpiryDate) {
			return &IllegalStateError{Resource: "policy", ID: id, From: string(cur.Status), To: string(domain.PolicyTerminated),
				Reason: fmt.Sprintf("termination date %s must be after %s and not after %s",
					date.Format(domain.DateLayout),
					cur.EffectiveDate.Format(domain.DateLayout),
					cur.ExpiryDate.Format(domain.DateLayout))}
		}
		if err := repo.UpdatePolicyStatus(ctx, tx, id, cur.Version, domain.PolicyTerminated, &date); err != nil {
			return s.mapWriteErr(id, cur.Version, err)
		}
		cur.Status = domain.PolicyTerminated
		cur.ExpiryDate = date
		cur.Version++
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.statusChanged(ctx, out, domain.PolicyActive)
	return out, nil
}

// ExportToExternalSystem submits policy id to PolicySTAR. It returns the
// SUBMITTED export record right away together with a future that resolves
// to the completed record. A failed export resolves with the FAILED record
// and the integration error; the policy itself is never modified.
func (s *PolicyService) ExportToExternalSystem(ctx context.Context, id uint64) (*domain.PolicyExport, *integration.Future[*domain.PolicyExport], error) {
	ctx, span := startSpan(ctx, "PolicyService", "ExportToExternalSystem",
		trace.WithAttributes(attribute.Int64("policy.id", int64(id))))
	defer span.End()

	if s.ExportDisabled {
		return nil, nil, ErrExportDisabled
	}
	p, err := s.load(ctx, s.DB, id)
	if err != nil {
		return nil, nil, err
	}
	if p.Status != domain.PolicyActive {
		return nil, nil, &IllegalStateError{Resource: "policy", ID: id, From: string(p.Status),
			Reason: "only ACTIVE policies can be exported"}
	}

	rec := &domain.PolicyExport{
		PolicyID:    id,
		Status:      domain.ExportSubmitted,
		RequestedBy: Actor(ctx),
	}
	if err := repo.CreateExport(ctx, s.DB, rec); err != nil {
		return nil, nil, err
	}
	submitted := *rec

	fut := integration.SubmitOrAbandon(s.Executor, ctx,
		func(ctx context.Context) (*domain.PolicyExport, error) {
			return s.runExport(ctx, p, rec)
		},
		func(ctx context.Context, cause error) {
			s.failExport(ctx, p, rec, cause)
		})
	return &submitted, fut, nil
}

func (s *PolicyService) runExport(ctx context.Context, p *domain.Policy, rec *domain.PolicyExport) (*domain.PolicyExport, error) {
	log := zerolog.Ctx(ctx).With().Uint64("policy_id", p.ID).Uint64("export_id", rec.ID).Logger()
	receipt, callErr := s.Exporter.Export(ctx, p)

	// Record the outcome even when the executor is shutting down.
	store := context.WithoutCancel(ctx)
	now := time.Now().UTC()
	rec.CompletedAt = &now
	if callErr != nil {
		rec.Status = domain.ExportFailed
		rec.Error = callErr.Error()
	} else {
		rec.Status = domain.ExportSucceeded
		rec.ExternalReference = receipt.Reference
	}
	if err := repo.CompleteExport(store, s.DB, rec.ID, rec.Status, rec.ExternalReference, rec.Error, now); err != nil {
		log.Error().Err(err).Str("outcome", string(rec.Status)).Msg("recording export outcome failed")
		if callErr == nil {
			return rec, err
		}
	}

	if callErr != nil {
		log.Warn().Err(callErr).Msg("policy export failed")
		s.emitExportFailed(store, p, rec)
		return rec, callErr
	}
	log.Info().Str("reference", rec.ExternalReference).Msg("policy exported")
	events.Emit(store, s.Events, events.New(events.PolicyExported, p.ID, rec.RequestedBy, map[string]any{
		"export_id": rec.ID,
		"reference": rec.ExternalReference,
	}))
	return rec, nil
}

// failExport records an export that never reached PolicySTAR.
func (s *PolicyService) failExport(ctx context.Context, p *domain.Policy, rec *domain.PolicyExport, cause error) {
	now := time.Now().UTC()
	rec.Status = domain.ExportFailed
	rec.Error = cause.Error()
	rec.CompletedAt = &now
	log := zerolog.Ctx(ctx).With().Uint64("policy_id", p.ID).Uint64("export_id", rec.ID).Logger()
	if err := repo.CompleteExport(ctx, s.DB, rec.ID, rec.Status, "", rec.Error, now); err != nil {
		log.Error().Err(err).Msg("recording abandoned export failed")
	}
	log.Warn().Err(cause).Msg("policy export abandoned")
	s.emitExportFailed(ctx, p, rec)
}

func (s *PolicyService) emitExportFailed(ctx context.Context, p *domain.Policy, rec *domain.PolicyExport) {
	events.Emit(ctx, s.Events, events.New(events.PolicyExportFailed, p.ID, rec.RequestedBy, map[string]any{
		"export_id": rec.ID,
		"error":     rec.Error,
	}))
}

// ListExports returns the export history of policy id, newest first.
func (s *PolicyService) ListExports(ctx context.Context, id uint64) ([]domain.PolicyExport, error) {
	if _, err := s.load(ctx, s.DB, id); err != nil {
		return nil, err
	}
	return repo.ListExports(ctx, s.DB, id)
}

// ExpireDue moves every ACTIVE policy whose expiry date lies before asOf to
// EXPIRED and returns how many were expired. Policies modified concurrently
// are skipped and picked up by the next sweep.
func (s *PolicyService) ExpireDue(ctx context.Context, asOf time.Time) (n int, err error) {
	ctx, span := startSpan(ctx, "PolicyService", "ExpireDue",
		trace.WithAttributes(attribute.String("as_of", asOf.Format(domain.DateLayout))))
	defer func() {
		span.SetAttributes(attribute.Int("expired", n))
		finishSpan(span, err)
	}()

	asOf = domain.Day(asOf)
	for {
		due, err := repo.ListPoliciesDueForExpiry(ctx, s.DB, asOf, expiryBatch)
		if err != nil {
			return n, err
		}
		progressed := 0
		for i := range due {
			p := &due[i]
			err := repo.UpdatePolicyStatus(ctx, s.DB, p.ID, p.Version, domain.PolicyExpired, nil)
			if errors.Is(err, repo.ErrStaleVersion) || errors.Is(err, repo.ErrNotFound) {
				zerolog.Ctx(ctx).Debug().Uint64("policy_id", p.ID).Msg("expiry skipped; policy changed")
				continue
			}
			if err != nil {
				return n, err
			}
			progressed++
			p.Version++
			p.Status = domain.PolicyExpired
			s.statusChanged(ctx, p, domain.PolicyActive)
		}
		n += progressed
		if len(due) < expiryBatch || progressed == 0 {
			return n, nil
		}
	}
}

func (s *PolicyService) load(ctx context.Context, db *gorm.DB, id uint64) (*domain.Policy, error) {
	p, err := repo.GetPolicy(ctx, db, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, &NotFoundError{Resource: "policy", ID: id}
	}
	return p, err
}

func (s *PolicyService) checkOwner(ctx context.Context, db *gorm.DB, ownerID *uint64) error {
	if ownerID == nil {
		return nil
	}
	_, err := repo.GetUser(ctx, db, *ownerID)
	if errors.Is(err, repo.ErrNotFound) {
		return validation.Fail("owner_id", fmt.Sprintf("user %d does not exist", *ownerID))
	}
	return err
}

func (s *PolicyService) mapWriteErr(id uint64, expected int64, err error) error {
	switch {
	case errors.Is(err, repo.ErrStaleVersion):
		return &ConcurrentModificationError{Resource: "policy", ID: id, Expected: expected}
	case errors.Is(err, repo.ErrNotFound):
		return &NotFoundError{Resource: "policy", ID: id}
	case errors.Is(err, repo.ErrDuplicate):
		return validation.Fail("policy_number", "already exists")
	}
	return err
}

func (s *PolicyService) statusChanged(ctx context.Context, p *domain.Policy, from domain.PolicyStatus) {
	zerolog.Ctx(ctx).Info().
		Uint64("policy_id", p.ID).
		Str("from", string(from)).
		Str("to", string(p.Status)).
		Msg("policy status changed")
	events.Emit(ctx, s.Events, events.New(events.PolicyStatusChanged, p.ID, Actor(ctx), map[string]any{
		"from":        from,
		"to":          p.Status,
		"expiry_date": p.ExpiryDate.Format(domain.DateLayout),
		"version":     p.Version,
	}))
}
