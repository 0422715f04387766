/*
Package proxy implements the cheap IP reputation probe used to keep open
proxies out of chat.

Verdicts are cached with an expiry so that one noisy user does not turn into
one HTTP request per message. The probe is only consulted for unprivileged
users; a probe failure propagates to the caller instead of defaulting to
"clean".
*/
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/equwal/pixelplanet/internal/pkg/logx"
)

const (
	probeTimeout  = 5 * time.Second
	verdictMaxAge = 3 * time.Hour
)

type verdict struct {
	isProxy bool
	checked time.Time
}

// Detector queries an external proxycheck API for IP reputation.
// A Detector with an empty API key is disabled and reports every IP as clean.
type Detector struct {
	apiKey string
	client *http.Client

	mu    sync.Mutex
	cache map[string]verdict

	logger zerolog.Logger
}

// NewDetector creates a Detector. Pass an empty apiKey to disable probing.
func NewDetector(apiKey string) *Detector {
	return &Detector{
		apiKey: apiKey,
		client: &http.Client{Timeout: probeTimeout},
		cache:  make(map[string]verdict),
		logger: logx.Logger().With().Str("component", "proxy").Logger(),
	}
}

// IsProxy reports whether the IP is flagged as an open proxy. Results are
// cached. When the probe cannot answer, the error is returned and the caller
// decides; the Detector never substitutes a default verdict.
func (d *Detector) IsProxy(ctx context.Context, ip string) (bool, error) {
	if d.apiKey == "" {
		return false, nil
	}

	d.mu.Lock()
	if v, ok := d.cache[ip]; ok && time.Since(v.checked) < verdictMaxAge {
		d.mu.Unlock()
		return v.isProxy, nil
	}
	d.mu.Unlock()

	isProxy, err := d.probe(ctx, ip)
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	d.cache[ip] = verdict{isProxy: isProxy, checked: time.Now()}
	d.mu.Unlock()

	if isProxy {
		d.logger.Info().Str("ip", ip).Msg("IP flagged as proxy")
	}

	return isProxy, nil
}

func (d *Detector) probe(ctx context.Context, ip string) (bool, error) {
	url := fmt.Sprintf("http://proxycheck.io/v2/%s?key=%s&vpn=1", ip, d.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build proxycheck request: %w", err)
	}

	res, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("proxycheck request for %s: %w", ip, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("proxycheck returned status %d for %s", res.StatusCode, ip)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode proxycheck response for %s: %w", ip, err)
	}

	var entry struct {
		Proxy string `json:"proxy"`
	}
	raw, ok := body[ip]
	if !ok {
		return false, fmt.Errorf("proxycheck response missing entry for %s", ip)
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return false, fmt.Errorf("decode proxycheck entry for %s: %w", ip, err)
	}

	return entry.Proxy == "yes", nil
}
