package integration

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// VerificationRequest identifies a driver's license at the Registry of
// Motor Vehicles.
type VerificationRequest struct {
	LicenseNumber string `json:"license_number"`
	State         string `json:"state"`
	DateOfBirth   string `json:"date_of_birth,omitempty"`
}

// Verification is the RMV verdict on a license.
type Verification struct {
	LicenseNumber string    `json:"license_number"`
	State         string    `json:"state"`
	Valid         bool      `json:"valid"`
	Status        string    `json:"status"`
	LicenseClass  string    `json:"license_class,omitempty"`
	ExpiresOn     string    `json:"expires_on,omitempty"`
	Points        int64     `json:"points"`
	CheckedAt     time.Time `json:"checked_at"`
	Cached        bool      `json:"cached"`
}

// RMV verifies driver licenses. Answers are cached because the registry
// is slow and rate limited while the data rarely changes within a day.
type RMV struct {
	caller *Caller
	cache  *cache.Cache
}

// NewRMV wraps a configured Caller; ttl <= 0 disables caching.
func NewRMV(c *Caller, ttl time.Duration) *RMV {
	return &RMV{caller: c, cache: newLookupCache(ttl)}
}

func newLookupCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		return nil
	}
	return cache.New(ttl, 2*ttl)
}

// Verify checks a license, serving repeated lookups from cache.
func (r *RMV) Verify(ctx context.Context, req VerificationRequest) (Verification, error) {
	req.LicenseNumber = strings.ToUpper(strings.TrimSpace(req.LicenseNumber))
	req.State = strings.ToUpper(strings.TrimSpace(req.State))
	key := req.State + "|" + req.LicenseNumber + "|" + req.DateOfBirth
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			out := v.(Verification)
			out.Cached = true
			return out, nil
		}
	}

	res, err := r.caller.Do(ctx, Request{
		Op:     "verify",
		Method: http.MethodPost,
		Path:   "/v1/licenses/verify",
		Body:   req,
	})
	if err != nil {
		return Verification{}, err
	}
	out := Verification{
		LicenseNumber: req.LicenseNumber,
		State:         req.State,
		Valid:         res.Get("valid").Bool(),
		Status:        res.Get("status").String(),
		LicenseClass:  res.Get("license_class").String(),
		ExpiresOn:     res.Get("expires_on").String(),
		Points:        res.Get("points").Int(),
		CheckedAt:     time.Now().UTC(),
	}
	if r.cache != nil {
		r.cache.SetDefault(key, out)
	}
	return out, nil
}

// Ping checks RMV reachability.
func (r *RMV) Ping(ctx context.Context) error { return r.caller.Ping(ctx, "/health") }
