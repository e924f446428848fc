package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-policy-admin/internal/config"
	"github.com/tbourn/go-policy-admin/internal/domain"
)

func TestPolicyStar_Export(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/policies", r.URL.Path)
		assert.Equal(t, "POL-2024-000001@3", r.Header.Get("Idempotency-Key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "POL-2024-000001", body["policy_number"])
		assert.Equal(t, "1200.00", body["total_premium"])
		assert.Equal(t, "2024-01-01", body["effective_date"])
		assert.Len(t, body["coverages"], 1)
		_, _ = w.Write([]byte(`{"reference":"PS-42","accepted_at":"2024-07-01T10:00:00Z"}`))
	})
	ps := NewPolicyStar(NewCaller(testConfig("policystar", srv.URL), nil))

	p := &domain.Policy{
		PolicyNumber: "POL-2024-000001", Status: domain.PolicyActive, Version: 3,
		TotalPremium:  decimal.NewFromInt(1200),
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Coverages:     []domain.Coverage{{Type: "COLLISION", Limit: decimal.NewFromInt(1000), Deductible: decimal.Zero}},
	}
	rec, err := ps.Export(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "PS-42", rec.Reference)
	assert.Equal(t, 2024, rec.AcceptedAt.Year())
}

func TestPolicyStar_Export_MissingReference(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	ps := NewPolicyStar(NewCaller(testConfig("policystar", srv.URL), nil))
	_, err := ps.Export(context.Background(), &domain.Policy{PolicyNumber: "POL-2024-000001"})
	assert.True(t, IsUnavailable(err))
}

func TestRMV_Verify_Caches(t *testing.T) {
	var hits int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		var body VerificationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "S1234567", body.LicenseNumber)
		assert.Equal(t, "MA", body.State)
		_, _ = w.Write([]byte(`{"valid":true,"status":"ACTIVE","license_class":"D","points":2}`))
	})
	rmv := NewRMV(NewCaller(testConfig("rmv", srv.URL), nil), time.Minute)

	v, err := rmv.Verify(context.Background(), VerificationRequest{LicenseNumber: " s1234567 ", State: "ma"})
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, "ACTIVE", v.Status)
	assert.EqualValues(t, 2, v.Points)
	assert.False(t, v.Cached)

	v, err = rmv.Verify(context.Background(), VerificationRequest{LicenseNumber: "S1234567", State: "MA"})
	require.NoError(t, err)
	assert.True(t, v.Cached)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestRMV_NoCacheWhenTTLZero(t *testing.T) {
	var hits int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"valid":false,"status":"SUSPENDED"}`))
	})
	rmv := NewRMV(NewCaller(testConfig("rmv", srv.URL), nil), 0)
	for i := 0; i < 2; i++ {
		_, err := rmv.Verify(context.Background(), VerificationRequest{LicenseNumber: "X", State: "MA"})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestSpeedPay_Pay(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pay-17", r.Header.Get("Idempotency-Key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "250.50", body["amount"])
		assert.Equal(t, "USD", body["currency"])
		assert.Equal(t, "ACH", body["method"])
		_, _ = w.Write([]byte(`{"transaction_id":"SP-1","status":"approved"}`))
	})
	sp := NewSpeedPay(NewCaller(testConfig("speedpay", srv.URL), nil))
	rec, err := sp.Pay(context.Background(), PayRequest{
		Reference: "pay-17", ClaimNo: "CLM-1", Amount: decimal.RequireFromString("250.5"), Method: domain.MethodACH,
	})
	require.NoError(t, err)
	assert.Equal(t, "SP-1", rec.TransactionID)
	assert.Equal(t, "APPROVED", rec.Status)
}

func TestSpeedPay_Declined(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"DECLINED","reason":"account closed"}`))
	})
	sp := NewSpeedPay(NewCaller(testConfig("speedpay", srv.URL), nil))
	_, err := sp.Pay(context.Background(), PayRequest{Reference: "p", Amount: decimal.NewFromInt(1), Method: domain.MethodCheck})
	require.True(t, IsRejected(err), "got %v", err)
	assert.Contains(t, err.Error(), "account closed")
}

func TestCLUE_History(t *testing.T) {
	var hits int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"report_id":"CL-9","claims":[
			{"date":"2021-05-01","type":"COLLISION","amount":"1200.50","carrier":"Acme"},
			{"date":"2022-08-11","type":"THEFT","amount":300}
		]}`))
	})
	clue := NewCLUE(NewCaller(testConfig("clue", srv.URL), nil), time.Minute)

	rep, err := clue.History(context.Background(), HistoryRequest{FirstName: "Jane", LastName: "Doe", DateOfBirth: "1980-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "CL-9", rep.ReportID)
	assert.Equal(t, "AUTO", rep.Line)
	require.Len(t, rep.Losses, 2)
	assert.True(t, rep.TotalLosses.Equal(decimal.RequireFromString("1500.50")))

	rep, err = clue.History(context.Background(), HistoryRequest{FirstName: "JANE", LastName: "doe", DateOfBirth: "1980-01-01", Line: "auto"})
	require.NoError(t, err)
	assert.True(t, rep.Cached)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestClients_Ping(t *testing.T) {
	up := newServer(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	down := newServer(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) })

	cfg := config.IntegrationsConfig{
		PolicyStar: testConfig("policystar", up.URL),
		RMV:        testConfig("rmv", up.URL),
		SpeedPay:   testConfig("speedpay", down.URL),
		CLUE:       testConfig("clue", up.URL),
	}
	res := NewClients(cfg, nil).Ping(context.Background())
	require.Len(t, res, 4)
	assert.NoError(t, res["policystar"])
	assert.NoError(t, res["rmv"])
	assert.NoError(t, res["clue"])
	assert.True(t, IsUnavailable(res["speedpay"]))
}
