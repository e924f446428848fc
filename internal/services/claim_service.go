// Package services – ClaimService
//
// This file implements ClaimService: claim intake against an in-force
// policy, the PENDING -> IN_REVIEW -> {APPROVED, REJECTED} -> CLOSED
// lifecycle, document uploads and SpeedPay disbursements.
//
// Payment issuance reserves the amount in a transaction (PENDING payment plus
// a claim version bump, so concurrent issuers cannot both pass the ceiling
// check), then settles with SpeedPay on the integration executor. A failed
// disbursement is final; the caller resubmits as a new payment. A payment
// whose task never starts (executor closed, caller cancelled) is failed
// the same way so the reservation is released.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/events"
	"github.com/tbourn/go-policy-admin/internal/integration"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/storage"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

const paidAmountAttempts = 3

// Payer disburses claim payments.
type Payer interface {
	Pay(ctx context.Context, req integration.PayRequest) (integration.PayReceipt, error)
}

// ClaimService implements the claim use-cases.
type ClaimService struct {
	DB        *gorm.DB
	Validator *validation.Validator
	Store     storage.DocumentStore
	Payer     Payer
	Executor  *integration.Executor
	Events    events.Publisher
}

// ClaimInput carries the fields of a new claim. An empty ClaimNumber is
// generated as CLM-YYYYMMDD-XXXXXXXX.
type ClaimInput struct {
	ClaimNumber  string
	PolicyID     uint64
	ClaimAmount  decimal.Decimal
	IncidentDate time.Time
	Description  string
}

// Upload is a document as received from the client. Size is the declared
// length and is checked before any bytes are read.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// claimablePolicy reports whether claims may be filed against p for an
// incident on day: the policy must have gone live and covered that day.
func claimablePolicy(p *domain.Policy, day time.Time) bool {
	switch p.Status {
	case domain.PolicyActive, domain.PolicyTerminated, domain.PolicyExpired:
		return p.InForceOn(day)
	}
	return false
}

func generateClaimNumber(now time.Time) string {
	return "CLM-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:8])
}

// Create files a PENDING claim against an in-force policy.
func (s *ClaimService) Create(ctx context.Context, in ClaimInput) (c *domain.Claim, err error) {
	ctx, span := startSpan(ctx, "ClaimService", "Create",
		trace.WithAttributes(attribute.Int64("policy.id", int64(in.PolicyID))))
	defer func() { finishSpan(span, err) }()

	now := s.Validator.Now()
	c = &domain.Claim{
		ClaimNumber:  validation.NormalizeCode(in.ClaimNumber),
		Status:       domain.ClaimPending,
		ClaimAmount:  in.ClaimAmount,
		PaidAmount:   decimal.Zero,
		IncidentDate: dayOrZero(in.IncidentDate),
		ReportedDate: domain.Day(now),
		Description:  strings.TrimSpace(in.Description),
		PolicyID:     in.PolicyID,
		Version:      1,
	}
	if c.ClaimNumber == "" {
		c.ClaimNumber = generateClaimNumber(now)
	}
	if err := s.Validator.Claim(c); err != nil {
		return nil, err
	}

	p, err := repo.GetPolicy(ctx, s.DB, in.PolicyID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, validation.Fail("policy_id", fmt.Sprintf("policy %d does not exist", in.PolicyID))
	}
	if err != nil {
		return nil, err
	}
	if !claimablePolicy(p, c.IncidentDate) {
		return nil, validation.Fail("incident_date", fmt.Sprintf("policy %s (%s, %s to %s) was not in force on %s",
			p.PolicyNumber, p.Status,
			p.EffectiveDate.Format(domain.DateLayout), p.ExpiryDate.Format(domain.DateLayout),
			c.IncidentDate.Format(domain.DateLayout)))
	}

	if err := repo.CreateClaim(ctx, s.DB, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, validation.Fail("claim_number", "already exists")
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Uint64("claim_id", c.ID).
		Str("claim_number", c.ClaimNumber).
		Uint64("policy_id", c.PolicyID).
		Msg("claim created")
	events.Emit(ctx, s.Events, events.New(events.ClaimCreated, c.ID, Actor(ctx), map[string]any{
		"claim_number": c.ClaimNumber,
		"policy_id":    c.PolicyID,
		"claim_amount": c.ClaimAmount.StringFixed(2),
	}))
	return c, nil
}

// Get returns claim id.
func (s *ClaimService) Get(ctx context.Context, id uint64) (*domain.Claim, error) {
	ctx, span := startSpan(ctx, "ClaimService", "Get",
		trace.WithAttributes(attribute.Int64("claim.id", int64(id))))
	defer span.End()
	return s.load(ctx, s.DB, id)
}

// List returns a page of claims matching f and the total match count.
func (s *ClaimService) List(ctx context.Context, f repo.ClaimFilter, page, pageSize int) ([]domain.Claim, int64, error) {
	ctx, span := startSpan(ctx, "ClaimService", "List",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		))
	defer span.End()

	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountClaims(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Claim{}, 0, nil
	}
	items, err := repo.ListClaimsPage(ctx, s.DB, f, offset, limit)
	return items, total, err
}

// UpdateStatus moves claim id to target if the lifecycle table allows it.
// expected <= 0 skips the version precondition.
func (s *ClaimService) UpdateStatus(ctx context.Context, id uint64, target domain.ClaimStatus, expected int64) (out *domain.Claim, err error) {
	ctx, span := startSpan(ctx, "ClaimService", "UpdateStatus",
		trace.WithAttributes(
			attribute.Int64("claim.id", int64(id)),
			attribute.String("claim.target", string(target)),
		))
	defer func() { finishSpan(span, err) }()

	if !target.Valid() {
		return nil, validation.Fail("status", fmt.Sprintf("unrecognized status %q", target))
	}
	var from domain.ClaimStatus
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		from = cur.Status
		if expected > 0 && cur.Version != expected {
			return &ConcurrentModificationError{Resource: "claim", ID: id, Expected: expected, Actual: cur.Version}
		}
		if !from.CanTransitionTo(target) {
			return &IllegalStateError{Resource: "claim", ID: id, From: string(from), To: string(target)}
		}
		if err := repo.UpdateClaimStatus(ctx, tx, id, cur.Version, target); err != nil {
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

	zerolog.Ctx(ctx).Info().
		Uint64("claim_id", id).
		Str("from", string(from)).
		Str("to", string(target)).
		Msg("claim status changed")
	events.Emit(ctx, s.Events, events.New(events.ClaimStatusChanged, id, Actor(ctx), map[string]any{
		"from":    from,
		"to":      target,
		"version": out.Version,
	}))
	return out, nil
}

// UploadDocument validates up against the size and type whitelist, stores
// its bytes and records the document metadata. The declared content type
// must agree with the sniffed one.
func (s *ClaimService) UploadDocument(ctx context.Context, id uint64, up Upload) (doc *domain.ClaimDocument, err error) {
	ctx, span := startSpan(ctx, "ClaimService", "UploadDocument",
		trace.WithAttributes(
			attribute.Int64("claim.id", int64(id)),
			attribute.Int64("document.size", up.Size),
			attribute.String("document.content_type", up.ContentType),
		))
	defer func() { finishSpan(span, err) }()

	declared, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(up.ContentType)), ";")
	declared = strings.TrimSpace(declared)
	meta := validation.Document{FileName: strings.TrimSpace(up.FileName), ContentType: declared, Size: up.Size}
	if err := s.Validator.Document(meta); err != nil {
		return nil, err
	}

	c, err := s.load(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.ClaimClosed {
		return nil, &IllegalStateError{Resource: "claim", ID: id, From: string(c.Status),
			Reason: "closed claims do not accept documents"}
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, validation.MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	meta.Size = int64(len(data))
	sniffed := storage.Sniff(data)
	ve := &validation.Error{}
	if meta.Size > validation.MaxDocumentSize {
		ve.Add("size_bytes", fmt.Sprintf("must not exceed %d bytes", validation.MaxDocumentSize))
	}
	if meta.Size == 0 {
		ve.Add("size_bytes", "file is empty")
	} else if sniffed != declared {
		ve.Add("content_type", fmt.Sprintf("declared %q but content is %q", declared, sniffed))
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	key := storage.DocumentKey(id, meta.FileName)
	loc, err := s.Store.Put(ctx, key, declared, data)
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	doc = &domain.ClaimDocument{
		ClaimID:         id,
		FileName:        meta.FileName,
		ContentType:     declared,
		SizeBytes:       meta.Size,
		StorageLocation: loc,
		UploadedBy:      Actor(ctx),
	}
	if err := repo.CreateDocument(ctx, s.DB, doc); err != nil {
		if derr := s.Store.Delete(context.WithoutCancel(ctx), loc); derr != nil {
			zerolog.Ctx(ctx).Warn().Err(derr).Str("location", loc).Msg("orphaned document bytes")
		}
		return nil, err
	}

	events.Emit(ctx, s.Events, events.New(events.DocumentUploaded, id, doc.UploadedBy, map[string]any{
		"document_id":  doc.ID,
		"file_name":    doc.FileName,
		"content_type": doc.ContentType,
		"size_bytes":   doc.SizeBytes,
	}))
	return doc, nil
}

// ListDocuments returns the documents attached to claim id.
func (s *ClaimService) ListDocuments(ctx context.Context, id uint64) ([]domain.ClaimDocument, error) {
	if _, err := s.load(ctx, s.DB, id); err != nil {
		return nil, err
	}
	return repo.ListDocuments(ctx, s.DB, id)
}

// ListPayments returns the payments of claim id.
func (s *ClaimService) ListPayments(ctx context.Context, id uint64) ([]domain.Payment, error) {
	if _, err := s.load(ctx, s.DB, id); err != nil {
		return nil, err
	}
	return repo.ListPayments(ctx, s.DB, id)
}

// ProcessPayment reserves amount against claim id and submits the SpeedPay
// disbursement. Pre-checks fail synchronously: the amount must be positive
// and the sum of completed and in-flight payments plus amount must not
// exceed the claim amount (BusinessRuleError). The returned future resolves
// to the final payment, COMPLETED or FAILED; on failure it also carries the
// SpeedPay error.
func (s *ClaimService) ProcessPayment(ctx context.Context, id uint64, amount decimal.Decimal, method domain.PaymentMethod) (_ *integration.Future[*domain.Payment], err error) {
	ctx, span := startSpan(ctx, "ClaimService", "ProcessPayment",
		trace.WithAttributes(
			attribute.Int64("claim.id", int64(id)),
			attribute.String("payment.amount", amount.String()),
			attribute.String("payment.method", string(method)),
		))
	defer func() { finishSpan(span, err) }()

	if !amount.IsPositive() {
		return nil, &BusinessRuleError{
			Rule:    "payment_amount_not_positive",
			Message: fmt.Sprintf("payment amount must be greater than zero, got %s", amount.String()),
		}
	}
	method = domain.PaymentMethod(validation.NormalizeCode(string(method)))
	if err := s.Validator.Payment(amount, method); err != nil {
		return nil, err
	}

	var (
		claim *domain.Claim
		pay   *domain.Payment
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !c.Status.AcceptsPayments() {
			return &IllegalStateError{Resource: "claim", ID: id, From: string(c.Status),
				Reason: "claim no longer accepts payments"}
		}
		committed, err := repo.SumPayments(ctx, tx, id,
			domain.PaymentCompleted, domain.PaymentPending, domain.PaymentProcessing)
		if err != nil {
			return err
		}
		if committed.Add(amount).GreaterThan(c.ClaimAmount) {
			remaining := decimal.Max(c.ClaimAmount.Sub(committed), decimal.Zero)
			return &BusinessRuleError{
				Rule: "payment_exceeds_claim_amount",
				Message: fmt.Sprintf("payment of %s exceeds the remaining claim amount %s (claim %s, committed %s)",
					amount.StringFixed(2), remaining.StringFixed(2),
					c.ClaimAmount.StringFixed(2), committed.StringFixed(2)),
			}
		}
		p := &domain.Payment{ClaimID: id, Amount: amount, Status: domain.PaymentPending, Method: method}
		if err := repo.CreatePayment(ctx, tx, p); err != nil {
			return err
		}
		if err := repo.TouchClaim(ctx, tx, id, c.Version); err != nil {
			return s.mapWriteErr(id, c.Version, err)
		}
		claim, pay = c, p
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Uint64("claim_id", id).
		Uint64("payment_id", pay.ID).
		Str("amount", pay.Amount.StringFixed(2)).
		Msg("payment reserved")
	return integration.SubmitOrAbandon(s.Executor, ctx,
		func(ctx context.Context) (*domain.Payment, error) {
			return s.settle(ctx, claim, pay)
		},
		func(ctx context.Context, cause error) {
			// never reached SpeedPay; release the reservation
			s.failPayment(ctx, claim, pay, domain.PaymentPending, cause)
		}), nil
}

// settle runs on the executor: PENDING -> PROCESSING, SpeedPay, then
// COMPLETED (with the claim's paid amount refreshed) or FAILED.
func (s *ClaimService) settle(ctx context.Context, claim *domain.Claim, pay *domain.Payment) (*domain.Payment, error) {
	store := context.WithoutCancel(ctx)
	log := zerolog.Ctx(ctx).With().Uint64("claim_id", claim.ID).Uint64("payment_id", pay.ID).Logger()

	if err := repo.TransitionPayment(store, s.DB, pay.ID, domain.PaymentPending, domain.PaymentProcessing, "", "", nil); err != nil {
		if !errors.Is(err, repo.ErrStaleVersion) {
			s.failPayment(store, claim, pay, domain.PaymentPending, err)
		}
		return pay, err
	}
	pay.Status = domain.PaymentProcessing

	receipt, callErr := s.Payer.Pay(ctx, integration.PayRequest{
		Reference: fmt.Sprintf("PAY-%d", pay.ID),
		ClaimNo:   claim.ClaimNumber,
		Amount:    pay.Amount,
		Method:    pay.Method,
	})
	now := time.Now().UTC()

	if callErr != nil {
		s.failPayment(store, claim, pay, domain.PaymentProcessing, callErr)
		return pay, callErr
	}

	var err error
	for attempt := 0; attempt < paidAmountAttempts; attempt++ {
		err = s.DB.WithContext(store).Transaction(func(tx *gorm.DB) error {
			if err := repo.TransitionPayment(store, tx, pay.ID, domain.PaymentProcessing, domain.PaymentCompleted,
				receipt.TransactionID, "", &now); err != nil {
				return err
			}
			paid, err := repo.SumPayments(store, tx, claim.ID, domain.PaymentCompleted)
			if err != nil {
				return err
			}
			c, err := repo.GetClaim(store, tx, claim.ID)
			if err != nil {
				return err
			}
			return repo.SetClaimPaidAmount(store, tx, claim.ID, c.Version, paid)
		})
		if !errors.Is(err, repo.ErrStaleVersion) {
			break
		}
	}
	if err != nil {
		// SpeedPay settled but the ledger write did not; the transaction id
		// in the log is what reconciliation needs.
		log.Error().Err(err).Str("transaction_id", receipt.TransactionID).Msg("recording completed payment")
		return pay, err
	}

	pay.Status = domain.PaymentCompleted
	pay.ExternalTransactionID = receipt.TransactionID
	pay.ProcessedAt = &now
	log.Info().Str("transaction_id", receipt.TransactionID).Msg("payment completed")
	events.Emit(store, s.Events, events.New(events.PaymentCompleted, claim.ID, Actor(ctx), map[string]any{
		"payment_id":     pay.ID,
		"amount":         pay.Amount.StringFixed(2),
		"transaction_id": receipt.TransactionID,
	}))
	return pay, nil
}

// failPayment moves pay from `from` to FAILED with cause as the reason and
// announces it. A FAILED payment no longer counts against the claim.
func (s *ClaimService) failPayment(ctx context.Context, claim *domain.Claim, pay *domain.Payment, from domain.PaymentStatus, cause error) {
	log := zerolog.Ctx(ctx).With().Uint64("claim_id", claim.ID).Uint64("payment_id", pay.ID).Logger()
	now := time.Now().UTC()
	reason := cause.Error()
	if err := repo.TransitionPayment(ctx, s.DB, pay.ID, from, domain.PaymentFailed, "", reason, &now); err != nil {
		log.Error().Err(err).Str("from", string(from)).Msg("recording failed payment")
	}
	pay.Status = domain.PaymentFailed
	pay.FailureReason = reason
	pay.ProcessedAt = &now
	log.Warn().Err(cause).Msg("payment failed")
	events.Emit(ctx, s.Events, events.New(events.PaymentFailed, claim.ID, Actor(ctx), map[string]any{
		"payment_id": pay.ID,
		"amount":     pay.Amount.StringFixed(2),
		"reason":     reason,
	}))
}

func (s *ClaimService) load(ctx context.Context, db *gorm.DB, id uint64) (*domain.Claim, error) {
	c, err := repo.GetClaim(ctx, db, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, &NotFoundError{Resource: "claim", ID: id}
	}
	return c, err
}

func (s *ClaimService) mapWriteErr(id uint64, expected int64, err error) error {
	switch {
	case errors.Is(err, repo.ErrStaleVersion):
		return &ConcurrentModificationError{Resource: "claim", ID: id, Expected: expected}
	case errors.Is(err, repo.ErrNotFound):
		return &NotFoundError{Resource: "claim", ID: id}
	}
	return err
}
