package integration

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// HistoryRequest identifies the subject of a CLUE loss-history report.
type HistoryRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	State       string `json:"state,omitempty"`
	Line        string `json:"line"` // AUTO|PROPERTY
}

// LossRecord is one prior claim in the report.
type LossRecord struct {
	Date    string          `json:"date"`
	Type    string          `json:"type"`
	Amount  decimal.Decimal `json:"amount"`
	Carrier string          `json:"carrier,omitempty"`
}

// Report is a Comprehensive Loss Underwriting Exchange history.
type Report struct {
	ReportID    string          `json:"report_id"`
	Line        string          `json:"line"`
	Losses      []LossRecord    `json:"losses"`
	TotalLosses decimal.Decimal `json:"total_losses"`
	RetrievedAt time.Time       `json:"retrieved_at"`
	Cached      bool            `json:"cached"`
}

// CLUE retrieves prior-loss history used during underwriting.
type CLUE struct {
	caller *Caller
	cache  *cache.Cache
}

// NewCLUE wraps a configured Caller; ttl <= 0 disables caching.
func NewCLUE(c *Caller, ttl time.Duration) *CLUE {
	return &CLUE{caller: c, cache: newLookupCache(ttl)}
}

// History fetches the loss history of a subject.
func (c *CLUE) History(ctx context.Context, req HistoryRequest) (Report, error) {
	req.Line = strings.ToUpper(strings.TrimSpace(req.Line))
	if req.Line == "" {
		req.Line = "AUTO"
	}
	key := strings.ToLower(req.FirstName + "|" + req.LastName + "|" + req.DateOfBirth + "|" + req.State + "|" + req.Line)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			out := v.(Report)
			out.Cached = true
			return out, nil
		}
	}

	res, err := c.caller.Do(ctx, Request{
		Op:     "history",
		Method: http.MethodPost,
		Path:   "/v1/reports",
		Body:   req,
	})
	if err != nil {
		return Report{}, err
	}
	out := Report{
		ReportID:    res.Get("report_id").String(),
		Line:        req.Line,
		Losses:      []LossRecord{},
		TotalLosses: decimal.Zero,
		RetrievedAt: time.Now().UTC(),
	}
	res.Get("claims").ForEach(func(_, v gjson.Result) bool {
		amt, err := decimal.NewFromString(v.Get("amount").String())
		if err != nil {
			amt = decimal.Zero
		}
		out.Losses = append(out.Losses, LossRecord{
			Date:    v.Get("date").String(),
			Type:    v.Get("type").String(),
			Amount:  amt,
			Carrier: v.Get("carrier").String(),
		})
		out.TotalLosses = out.TotalLosses.Add(amt)
		return true
	})
	if c.cache != nil {
		c.cache.SetDefault(key, out)
	}
	return out, nil
}

// Ping checks CLUE reachability.
func (c *CLUE) Ping(ctx context.Context) error { return c.caller.Ping(ctx, "/health") }
