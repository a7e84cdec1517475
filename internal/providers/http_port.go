package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"squeezerun/internal/config"
	"squeezerun/internal/data/cache"
	"squeezerun/internal/net/httpx"
	"squeezerun/internal/net/ratelimit"
)

const userAgent = "squeezerun/1.0"

// HTTPPort is the production Port backed by the configured REST vendors.
// One instance per engine; all state lives in the injected cache
// registry, never in package globals.
type HTTPPort struct {
	cfg       map[string]config.ProviderCfg
	clients   map[string]*httpx.Client
	limiter   *ratelimit.Manager
	registry  *cache.Registry
	dataDir   string
	skipCache bool

	fundamentals *cache.TTLCache[*Fundamentals]
	liquidity    *cache.TTLCache[*Liquidity]
	borrow       *cache.TTLCache[*Borrow]
	shortInt     *cache.TTLCache[*ShortInterest]
	catalyst     *cache.TTLCache[*Catalyst]
	sentiment    *cache.TTLCache[*Sentiment]
	options      *cache.TTLCache[*Options]
	minuteBars   *cache.TTLCache[[]Bar]
	dailyBars    *cache.TTLCache[[]Bar]
	shortVolume  *cache.TTLCache[map[string]*ShortVolumeRow]
}

// NewHTTPPort builds the port from the preset's provider table.
func NewHTTPPort(cfg *config.Config, registry *cache.Registry) *HTTPPort {
	limiter := ratelimit.NewManager()
	clients := make(map[string]*httpx.Client, len(cfg.Providers))
	for name, p := range cfg.Providers {
		limiter.AddProvider(name, p.RPS, p.Burst)
		clients[name] = httpx.NewClient(httpx.ClientConfig{
			Provider:       name,
			MaxConcurrency: p.Concurrency,
			RequestTimeout: p.Timeout(),
			MaxRetries:     2,
			UserAgent:      userAgent,
		}, limiter)
	}

	return &HTTPPort{
		cfg:       cfg.Providers,
		clients:   clients,
		limiter:   limiter,
		registry:  registry,
		dataDir:   cfg.DataDir,
		skipCache: config.SkipCacheWrites(),

		fundamentals: cache.New[*Fundamentals]("fundamentals", registry.Mirror("fundamentals")),
		liquidity:    cache.New[*Liquidity]("liquidity", registry.Mirror("liquidity")),
		borrow:       cache.New[*Borrow]("borrow", registry.Mirror("borrow")),
		shortInt:     cache.New[*ShortInterest]("shortinterest", registry.Mirror("shortinterest")),
		catalyst:     cache.New[*Catalyst]("catalyst", nil),
		sentiment:    cache.New[*Sentiment]("sentiment", nil),
		options:      cache.New[*Options]("options", nil),
		minuteBars:   cache.New[[]Bar]("minute_bars", nil),
		dailyBars:    cache.New[[]Bar]("daily_bars", nil),
		shortVolume:  cache.New[map[string]*ShortVolumeRow]("finra_shortvol", nil),
	}
}

// Concurrency implements the Concurrency hint for the orchestrator.
func (p *HTTPPort) Concurrency(kind string) int {
	if c, ok := p.cfg[kind]; ok && c.Concurrency > 0 {
		return c.Concurrency
	}
	return 1
}

func (p *HTTPPort) ttl(kind string) time.Duration {
	if c, ok := p.cfg[kind]; ok {
		return c.TTL()
	}
	return 0
}

func (p *HTTPPort) baseURL(kind string) string {
	return p.cfg[kind].BaseURL
}

func (p *HTTPPort) apiKey(kind string) string {
	env := p.cfg[kind].APIKeyEnv
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// getJSON issues a GET through the provider's client and decodes into out.
func (p *HTTPPort) getJSON(ctx context.Context, kind, url string, out any) error {
	client, ok := p.clients[kind]
	if !ok {
		return fmt.Errorf("provider %q is not configured", kind)
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if key := p.apiKey(kind); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", kind, err)
	}
	return nil
}
