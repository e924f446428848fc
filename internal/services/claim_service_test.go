package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/events"
	"github.com/tbourn/go-policy-admin/internal/integration"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/storage"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

type fakePayer struct {
	mu   sync.Mutex
	reqs []integration.PayRequest
	err  error
	gate chan struct{}
}

func (f *fakePayer) Pay(ctx context.Context, req integration.PayRequest) (integration.PayReceipt, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	n := len(f.reqs)
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return integration.PayReceipt{}, ctx.Err()
		}
	}
	if f.err != nil {
		return integration.PayReceipt{}, f.err
	}
	return integration.PayReceipt{TransactionID: "SP-" + strings.Repeat("X", n), Status: "APPROVED"}, nil
}

type claimFixture struct {
	claims   *ClaimService
	policies *PolicyService
	payer    *fakePayer
	rec      *recorder
	policy   *domain.Policy
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()
	db := newSvcDB(t)
	ps, rec := newPolicyService(t, db)
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	payer := &fakePayer{}
	cs := &ClaimService{
		DB:        db,
		Validator: ps.Validator,
		Store:     store,
		Payer:     payer,
		Executor:  ps.Executor,
		Events:    rec,
	}
	return &claimFixture{claims: cs, policies: ps, payer: payer, rec: rec, policy: activePolicy(t, ps)}
}

func (f *claimFixture) claim(t *testing.T, amount string) *domain.Claim {
	t.Helper()
	c, err := f.claims.Create(context.Background(), ClaimInput{
		PolicyID:     f.policy.ID,
		ClaimAmount:  decimal.RequireFromString(amount),
		IncidentDate: day(2024, 3, 1),
		Description:  "rear-ended at a light",
	})
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}
	return c
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// ---------- Create ----------

func TestClaimService_Create(t *testing.T) {
	f := newClaimFixture(t)
	c := f.claim(t, "5000.00")

	if c.Status != domain.ClaimPending || c.Version != 1 || !c.PaidAmount.IsZero() {
		t.Fatalf("unexpected claim: %+v", c)
	}
	if !regexp.MustCompile(`^CLM-20240701-[0-9A-F]{8}$`).MatchString(c.ClaimNumber) {
		t.Fatalf("generated number = %q", c.ClaimNumber)
	}
	if !c.ReportedDate.Equal(day(2024, 7, 1)) {
		t.Fatalf("reported date = %s", c.ReportedDate)
	}

	got, err := f.claims.Get(context.Background(), c.ID)
	if err != nil || got.ClaimNumber != c.ClaimNumber {
		t.Fatalf("get: %+v err=%v", got, err)
	}
}

func TestClaimService_Create_Rejections(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	draftIn := scenarioAInput()
	draftIn.PolicyNumber = "POL-2024-000002"
	draft, err := f.policies.Create(ctx, draftIn)
	if err != nil {
		t.Fatalf("draft policy: %v", err)
	}

	cases := []struct {
		name  string
		in    ClaimInput
		field string
	}{
		{"unknown policy", ClaimInput{PolicyID: 999, ClaimAmount: decimal.NewFromInt(10), IncidentDate: day(2024, 3, 1)}, "policy_id"},
		{"draft policy", ClaimInput{PolicyID: draft.ID, ClaimAmount: decimal.NewFromInt(10), IncidentDate: day(2024, 3, 1)}, "incident_date"},
		{"before term", ClaimInput{PolicyID: f.policy.ID, ClaimAmount: decimal.NewFromInt(10), IncidentDate: day(2023, 12, 31)}, "incident_date"},
		{"future incident", ClaimInput{PolicyID: f.policy.ID, ClaimAmount: decimal.NewFromInt(10), IncidentDate: day(2024, 8, 1)}, "incident_date"},
		{"zero amount", ClaimInput{PolicyID: f.policy.ID, ClaimAmount: decimal.Zero, IncidentDate: day(2024, 3, 1)}, "claim_amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.claims.Create(ctx, tc.in)
			ve := mustAs[*validation.Error](t, err)
			found := false
			for _, v := range ve.Violations {
				found = found || v.Field == tc.field
			}
			if !found {
				t.Fatalf("want violation on %s, got %+v", tc.field, ve.Violations)
			}
		})
	}

	in := ClaimInput{ClaimNumber: "clm-1", PolicyID: f.policy.ID, ClaimAmount: decimal.NewFromInt(10), IncidentDate: day(2024, 3, 1)}
	if _, err := f.claims.Create(ctx, in); err != nil {
		t.Fatalf("explicit number: %v", err)
	}
	_, err = f.claims.Create(ctx, in)
	ve := mustAs[*validation.Error](t, err)
	if ve.Violations[0].Field != "claim_number" {
		t.Fatalf("duplicate: %+v", ve.Violations)
	}
}

func TestClaimService_Create_AfterTermination(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	if _, err := f.policies.Terminate(ctx, f.policy.ID, day(2024, 6, 15)); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	in := ClaimInput{PolicyID: f.policy.ID, ClaimAmount: decimal.NewFromInt(100), IncidentDate: day(2024, 6, 1)}
	if _, err := f.claims.Create(ctx, in); err != nil {
		t.Fatalf("incident inside shortened term: %v", err)
	}
	in.IncidentDate = day(2024, 6, 20)
	_, err := f.claims.Create(ctx, in)
	mustAs[*validation.Error](t, err)
}

// ---------- UpdateStatus ----------

func TestClaimService_UpdateStatus_Matrix(t *testing.T) {
	all := []domain.ClaimStatus{
		domain.ClaimPending, domain.ClaimInReview, domain.ClaimApproved, domain.ClaimRejected, domain.ClaimClosed,
	}
	f := newClaimFixture(t)
	ctx := context.Background()
	n := 0
	for _, from := range all {
		for _, to := range all {
			n++
			c := &domain.Claim{
				ClaimNumber:  fmt.Sprintf("CLM-MATRIX-%03d", n),
				Status:       from,
				ClaimAmount:  decimal.NewFromInt(100),
				PaidAmount:   decimal.Zero,
				IncidentDate: day(2024, 3, 1),
				ReportedDate: day(2024, 3, 2),
				PolicyID:     f.policy.ID,
				Version:      1,
			}
			if err := repo.CreateClaim(ctx, f.claims.DB, c); err != nil {
				t.Fatalf("seed: %v", err)
			}
			got, err := f.claims.UpdateStatus(ctx, c.ID, to, 1)
			if from.CanTransitionTo(to) {
				if err != nil {
					t.Fatalf("%s -> %s: %v", from, to, err)
				}
				if got.Status != to || got.Version != 2 {
					t.Fatalf("%s -> %s: status=%s version=%d", from, to, got.Status, got.Version)
				}
				continue
			}
			is := mustAs[*IllegalStateError](t, err)
			if is.From != string(from) || is.To != string(to) {
				t.Fatalf("%s -> %s: %+v", from, to, is)
			}
		}
	}
}

func TestClaimService_UpdateStatus_Errors(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	c := f.claim(t, "100.00")

	_, err := f.claims.UpdateStatus(ctx, c.ID, "SETTLED", 0)
	mustAs[*validation.Error](t, err)

	_, err = f.claims.UpdateStatus(ctx, c.ID, domain.ClaimInReview, 5)
	cm := mustAs[*ConcurrentModificationError](t, err)
	if cm.Actual != 1 {
		t.Fatalf("actual = %d", cm.Actual)
	}

	_, err = f.claims.UpdateStatus(ctx, 999, domain.ClaimInReview, 0)
	mustAs[*NotFoundError](t, err)
}

// ---------- Payments ----------

func TestClaimService_ProcessPayment_ScenarioC(t *testing.T) {
	f := newClaimFixture(t)
	c := f.claim(t, "5000.00")

	_, err := f.claims.ProcessPayment(context.Background(), c.ID, decimal.NewFromInt(6000), domain.MethodACH)
	br := mustAs[*BusinessRuleError](t, err)
	if br.Rule != "payment_exceeds_claim_amount" || !errors.Is(err, ErrBusinessRule) {
		t.Fatalf("unexpected: %+v", br)
	}
	pays, _ := f.claims.ListPayments(context.Background(), c.ID)
	if len(pays) != 0 {
		t.Fatalf("no payment should be created, got %d", len(pays))
	}
	if len(f.payer.reqs) != 0 {
		t.Fatalf("payer must not be called")
	}
}

func TestClaimService_ProcessPayment_Completes(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	c := f.claim(t, "5000.00")

	fut, err := f.claims.ProcessPayment(ctx, c.ID, decimal.RequireFromString("1250.50"), "ach")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	pay, err := fut.Await(ctx)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if pay.Status != domain.PaymentCompleted || pay.ExternalTransactionID == "" || pay.ProcessedAt == nil {
		t.Fatalf("payment = %+v", pay)
	}
	if pay.Method != domain.MethodACH {
		t.Fatalf("method = %s", pay.Method)
	}
	if got := f.payer.reqs[0]; got.Reference == "" || got.ClaimNo != c.ClaimNumber {
		t.Fatalf("request = %+v", got)
	}

	after, _ := f.claims.Get(ctx, c.ID)
	if !after.PaidAmount.Equal(decimal.RequireFromString("1250.50")) {
		t.Fatalf("paid = %s", after.PaidAmount)
	}

	// a second payment up to the remainder is fine
	fut, err = f.claims.ProcessPayment(ctx, c.ID, decimal.RequireFromString("3749.50"), domain.MethodWire)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if _, err := fut.Await(ctx); err != nil {
		t.Fatalf("await second: %v", err)
	}
	after, _ = f.claims.Get(ctx, c.ID)
	if !after.PaidAmount.Equal(after.ClaimAmount) {
		t.Fatalf("paid = %s, claim = %s", after.PaidAmount, after.ClaimAmount)
	}

	_, err = f.claims.ProcessPayment(ctx, c.ID, decimal.RequireFromString("0.01"), domain.MethodWire)
	mustAs[*BusinessRuleError](t, err)
}

func TestClaimService_ProcessPayment_InFlightCountsAgainstCeiling(t *testing.T) {
	f := newClaimFixture(t)
	f.payer.gate = make(chan struct{})
	ctx := context.Background()
	c := f.claim(t, "5000.00")

	fut, err := f.claims.ProcessPayment(ctx, c.ID, decimal.NewFromInt(3000), domain.MethodCheck)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err = f.claims.ProcessPayment(ctx, c.ID, decimal.NewFromInt(2500), domain.MethodCheck)
	mustAs[*BusinessRuleError](t, err)

	close(f.payer.gate)
	if _, err := fut.Await(ctx); err != nil {
		t.Fatalf("await: %v", err)
	}
}

func TestClaimService_ProcessPayment_Failure(t *testing.T) {
	f := newClaimFixture(t)
	f.payer.err = &integration.Error{Integration: "speedpay", Op: "pay", Kind: integration.KindRejected, Message: "account closed"}
	ctx := context.Background()
	c := f.claim(t, "5000.00")

	fut, err := f.claims.ProcessPayment(ctx, c.ID, decimal.NewFromInt(5000), domain.MethodACH)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	pay, err := fut.Await(ctx)
	if !integration.IsRejected(err) {
		t.Fatalf("expected rejected error, got %v", err)
	}
	if pay.Status != domain.PaymentFailed || pay.FailureReason == "" {
		t.Fatalf("payment = %+v", pay)
	}
	stored, _ := repo.GetPayment(ctx, f.claims.DB, pay.ID)
	if stored.Status != domain.PaymentFailed {
		t.Fatalf("stored = %+v", stored)
	}
	after, _ := f.claims.Get(ctx, c.ID)
	if !after.PaidAmount.IsZero() {
		t.Fatalf("paid = %s", after.PaidAmount)
	}

	// failed payments free the reservation
	f.payer.err = nil
	fut, err = f.claims.ProcessPayment(ctx, c.ID, decimal.NewFromInt(5000), domain.MethodACH)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, err := fut.Await(ctx); err != nil {
		t.Fatalf("await retry: %v", err)
	}
}

func TestClaimService_ProcessPayment_Preconditions(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	c := f.claim(t, "100.00")

	for _, amt := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := f.claims.ProcessPayment(ctx, c.ID, amt, domain.MethodACH)
		br := mustAs[*BusinessRuleError](t, err)
		if br.Rule != "payment_amount_not_positive" || !errors.Is(err, ErrBusinessRule) {
			t.Fatalf("amount %s: %+v", amt, br)
		}
	}
	_, err := f.claims.ProcessPayment(ctx, c.ID, decimal.RequireFromString("5.001"), domain.MethodACH)
	mustAs[*validation.Error](t, err)
	_, err = f.claims.ProcessPayment(ctx, c.ID, decimal.NewFromInt(5), "BITCOIN")
	mustAs[*validation.Error](t, err)
	_, err = f.claims.ProcessPayment(ctx, 999, decimal.NewFromInt(5), domain.MethodACH)
	mustAs[*NotFoundError](t, err)

	for _, s := range []domain.ClaimStatus{domain.ClaimInReview, domain.ClaimRejected} {
		if _, err := f.claims.UpdateStatus(ctx, c.ID, s, 0); err != nil {
			t.Fatalf("-> %s: %v", s, err)
		}
	}
	_, err = f.claims.ProcessPayment(ctx, c.ID, decimal.NewFromInt(5), domain.MethodACH)
	mustAs[*IllegalStateError](t, err)
}

func TestClaimService_ProcessPayment_ExecutorClosedReleasesReservation(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	c := f.claim(t, "100.00")

	closed := integration.NewExecutor(1)
	if err := closed.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	live := f.claims.Executor
	f.claims.Executor = closed

	fut, err := f.claims.ProcessPayment(ctx, c.ID, decimal.RequireFromString("100.00"), domain.MethodACH)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := fut.Await(ctx); !errors.Is(err, integration.ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
	pays, _ := f.claims.ListPayments(ctx, c.ID)
	if len(pays) != 1 || pays[0].Status != domain.PaymentFailed || pays[0].FailureReason == "" {
		t.Fatalf("payments = %+v", pays)
	}
	if len(f.payer.reqs) != 0 {
		t.Fatalf("payer must not be called")
	}

	// the claim is not locked: the full amount can be paid again
	f.claims.Executor = live
	fut, err = f.claims.ProcessPayment(ctx, c.ID, decimal.RequireFromString("100.00"), domain.MethodACH)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	pay, err := fut.Await(ctx)
	if err != nil || pay.Status != domain.PaymentCompleted {
		t.Fatalf("resubmitted payment = %+v, %v", pay, err)
	}
	types := f.rec.types()
	if !slices.Contains(types, events.PaymentFailed) {
		t.Fatalf("events = %v", types)
	}
}

func TestClaimService_ProcessPayment_CancelledWhileQueued(t *testing.T) {
	f := newClaimFixture(t)
	f.payer.gate = make(chan struct{})
	f.claims.Executor = integration.NewExecutor(1)
	t.Cleanup(func() { _ = f.claims.Executor.Shutdown(context.Background()) })
	ctx := context.Background()
	first, second := f.claim(t, "500.00"), f.claim(t, "500.00")

	busy, err := f.claims.ProcessPayment(ctx, first.ID, decimal.NewFromInt(200), domain.MethodCheck)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	for deadline := time.Now().Add(2 * time.Second); ; time.Sleep(5 * time.Millisecond) {
		f.payer.mu.Lock()
		started := len(f.payer.reqs) == 1
		f.payer.mu.Unlock()
		if started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first payment never reached the payer")
		}
	}
	queued, err := f.claims.ProcessPayment(ctx, second.ID, decimal.NewFromInt(500), domain.MethodCheck)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	queued.Cancel()
	if _, err := queued.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	pays, _ := f.claims.ListPayments(ctx, second.ID)
	if len(pays) != 1 || pays[0].Status != domain.PaymentFailed {
		t.Fatalf("queued payment = %+v", pays)
	}

	close(f.payer.gate)
	if _, err := busy.Await(ctx); err != nil {
		t.Fatalf("busy: %v", err)
	}
}

// ---------- Documents ----------

func TestClaimService_UploadDocument_ScenarioD(t *testing.T) {
	f := newClaimFixture(t)
	c := f.claim(t, "100.00")

	_, err := f.claims.UploadDocument(context.Background(), c.ID, Upload{
		FileName:    "photos.pdf",
		ContentType: "application/pdf",
		Size:        15 << 20,
		Body:        bytes.NewReader(pdfBytes),
	})
	ve := mustAs[*validation.Error](t, err)
	if ve.Violations[0].Field != "size_bytes" {
		t.Fatalf("violations = %+v", ve.Violations)
	}
	docs, _ := f.claims.ListDocuments(context.Background(), c.ID)
	if len(docs) != 0 {
		t.Fatalf("no document should be stored")
	}
}

func TestClaimService_UploadDocument_Stores(t *testing.T) {
	f := newClaimFixture(t)
	ctx := WithActor(context.Background(), "adjuster-1")
	c := f.claim(t, "100.00")

	doc, err := f.claims.UploadDocument(ctx, c.ID, Upload{
		FileName:    "../estimate.pdf",
		ContentType: "Application/PDF; charset=binary",
		Size:        int64(len(pdfBytes)),
		Body:        bytes.NewReader(pdfBytes),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.ContentType != "application/pdf" || doc.SizeBytes != int64(len(pdfBytes)) || doc.UploadedBy != "adjuster-1" {
		t.Fatalf("doc = %+v", doc)
	}
	if !strings.HasPrefix(doc.StorageLocation, "file://") || !strings.HasSuffix(doc.StorageLocation, "estimate.pdf") {
		t.Fatalf("location = %q", doc.StorageLocation)
	}

	rc, err := f.claims.Store.Open(ctx, doc.StorageLocation)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(rc)
	if !bytes.Equal(buf.Bytes(), pdfBytes) {
		t.Fatalf("stored bytes differ")
	}

	docs, err := f.claims.ListDocuments(ctx, c.ID)
	if err != nil || len(docs) != 1 {
		t.Fatalf("docs = %+v err=%v", docs, err)
	}
}

func TestClaimService_UploadDocument_Rejections(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	c := f.claim(t, "100.00")

	// declared PNG, actually PDF
	_, err := f.claims.UploadDocument(ctx, c.ID, Upload{
		FileName: "scan.png", ContentType: "image/png", Size: int64(len(pdfBytes)), Body: bytes.NewReader(pdfBytes),
	})
	ve := mustAs[*validation.Error](t, err)
	if ve.Violations[0].Field != "content_type" {
		t.Fatalf("violations = %+v", ve.Violations)
	}

	_, err = f.claims.UploadDocument(ctx, c.ID, Upload{
		FileName: "notes.txt", ContentType: "text/plain", Size: 5, Body: strings.NewReader("hello"),
	})
	mustAs[*validation.Error](t, err)

	_, err = f.claims.UploadDocument(ctx, 999, Upload{
		FileName: "a.pdf", ContentType: "application/pdf", Size: int64(len(pdfBytes)), Body: bytes.NewReader(pdfBytes),
	})
	mustAs[*NotFoundError](t, err)

	for _, s := range []domain.ClaimStatus{domain.ClaimInReview, domain.ClaimApproved, domain.ClaimClosed} {
		if _, err := f.claims.UpdateStatus(ctx, c.ID, s, 0); err != nil {
			t.Fatalf("-> %s: %v", s, err)
		}
	}
	_, err = f.claims.UploadDocument(ctx, c.ID, Upload{
		FileName: "late.pdf", ContentType: "application/pdf", Size: int64(len(pdfBytes)), Body: bytes.NewReader(pdfBytes),
	})
	mustAs[*IllegalStateError](t, err)
}
