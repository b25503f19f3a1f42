package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/config"
	"github.com/SlpAus/mediashelf-backend/internal/platform/metrics"
	"github.com/avast/retry-go/v4"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// errClient marks upstream 4xx answers: the request is wrong, the provider is fine.
var errClient = errors.New("provider rejected request")

type providerResponse struct {
	Results []catalog.Descriptor `json:"results"`
}

// HTTPProvider calls a remote JSON search API.
// Requests are throttled client-side, retried with backoff on transient
// failures, and short-circuited while the provider keeps failing.
type HTTPProvider struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[[]catalog.Descriptor]
	attempts uint
	backoff  time.Duration
	log      *zap.Logger
}

func NewHTTPProvider(cfg config.SearchConfig, log *zap.Logger) *HTTPProvider {
	p := &HTTPProvider{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		attempts: cfg.MaxRetries,
		backoff:  300 * time.Millisecond,
		log:      log.Named("search.http"),
	}
	p.breaker = gobreaker.NewCircuitBreaker[[]catalog.Descriptor](gobreaker.Settings{
		Name:        "search-provider",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errClient)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return p
}

func (p *HTTPProvider) Search(ctx context.Context, query string, t catalog.MediaType) ([]catalog.Descriptor, error) {
	params := url.Values{}
	params.Set("query", query)
	if t != "" {
		params.Set("type", string(t))
	}
	return p.call(ctx, "search", p.baseURL+"/search?"+params.Encode())
}

func (p *HTTPProvider) Trending(ctx context.Context, t catalog.MediaType) ([]catalog.Descriptor, error) {
	return p.call(ctx, "trending", p.baseURL+"/trending/"+url.PathEscape(string(t)))
}

func (p *HTTPProvider) call(ctx context.Context, op, endpoint string) ([]catalog.Descriptor, error) {
	results, err := p.breaker.Execute(func() ([]catalog.Descriptor, error) {
		return retry.DoWithData(
			func() ([]catalog.Descriptor, error) { return p.get(ctx, endpoint) },
			retry.Context(ctx),
			retry.Attempts(p.attempts),
			retry.Delay(p.backoff),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				p.log.Debug("retrying provider request", zap.String("op", op), zap.Uint("attempt", n+1), zap.Error(err))
			}),
		)
	})
	outcome := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "short_circuit"
	case err != nil:
		outcome = "error"
	}
	metrics.ProviderRequests.WithLabelValues(op, outcome).Inc()
	return results, err
}

// get performs one throttled request.
func (p *HTTPProvider) get(ctx context.Context, endpoint string) ([]catalog.Descriptor, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, retry.Unrecoverable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// rate limiting and server errors are worth another attempt
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("provider request failed: %s", resp.Status)
	}
	if resp.StatusCode >= 400 {
		return nil, retry.Unrecoverable(fmt.Errorf("%w: %s", errClient, resp.Status))
	}

	var body providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("decode provider response: %w", err))
	}

	// drop entries the catalog could never accept
	out := make([]catalog.Descriptor, 0, len(body.Results))
	for _, d := range body.Results {
		if d.Validate() == nil {
			out = append(out, d)
		}
	}
	return out, nil
}
