package integration

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tbourn/go-policy-admin/internal/config"
)

// Clients bundles the external systems the services talk to.
type Clients struct {
	PolicyStar *PolicyStar
	RMV        *RMV
	SpeedPay   *SpeedPay
	CLUE       *CLUE
}

// NewClients builds every client from cfg sharing one HTTP transport.
func NewClients(cfg config.IntegrationsConfig, httpClient *http.Client) *Clients {
	if httpClient == nil {
		httpClient = &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		}}
	}
	return &Clients{
		PolicyStar: NewPolicyStar(NewCaller(cfg.PolicyStar, httpClient)),
		RMV:        NewRMV(NewCaller(cfg.RMV, httpClient), cfg.LookupCacheTTL),
		SpeedPay:   NewSpeedPay(NewCaller(cfg.SpeedPay, httpClient)),
		CLUE:       NewCLUE(NewCaller(cfg.CLUE, httpClient), cfg.LookupCacheTTL),
	}
}

// Ping probes all systems concurrently and returns the error per system
// (nil when healthy).
func (c *Clients) Ping(ctx context.Context) map[string]error {
	probes := map[string]func(context.Context) error{
		"policystar": c.PolicyStar.Ping,
		"rmv":        c.RMV.Ping,
		"speedpay":   c.SpeedPay.Ping,
		"clue":       c.CLUE.Ping,
	}
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]error, len(probes))
	)
	for name, ping := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ping(ctx)
			mu.Lock()
			out[name] = err
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
