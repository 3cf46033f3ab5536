package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultNagerURL is the public-holiday endpoint of date.nager.at
	DefaultNagerURL    = "https://date.nager.at/api/v3/publicholidays"
	defaultHTTPTimeout = 10 * time.Second
	defaultCacheTTL    = 24 * time.Hour
)

// NagerProvider fetches public holidays from a Nager.Date compatible API,
// one request per year: GET {apiURL}/{year}/{COUNTRY}
type NagerProvider struct {
	apiURL     string
	httpClient *http.Client
	logger     *zap.Logger
	cache      map[string]*cachedYear
	cacheMu    sync.RWMutex
	cacheTTL   time.Duration
}

type cachedYear struct {
	data      []byte
	fetchedAt time.Time
}

// NewNagerProvider creates a provider. proxy is an optional outbound proxy URL.
func NewNagerProvider(apiURL, proxy string, cacheTTL time.Duration, logger *zap.Logger) (*NagerProvider, error) {
	if apiURL == "" {
		apiURL = DefaultNagerURL
	}
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &NagerProvider{
		apiURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: transport,
		},
		logger:   logger,
		cache:    make(map[string]*cachedYear),
		cacheTTL: cacheTTL,
	}, nil
}

// Fetch downloads every requested year and merges the results. A year that
// fails is logged and skipped; the call fails only if no year succeeded.
func (p *NagerProvider) Fetch(ctx context.Context, country string, years []int) ([]byte, error) {
	country = strings.ToUpper(country)

	var (
		parts   [][]byte
		lastErr error
	)
	for _, year := range years {
		data, err := p.year(ctx, country, year)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("Failed to fetch public holidays, skipping year",
				zap.String("country", country),
				zap.Int("year", year),
				zap.Error(err))
			lastErr = err
			continue
		}
		parts = append(parts, data)
	}

	if len(parts) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrNoData, country, lastErr)
		}
		return nil, fmt.Errorf("%w for %s: no years requested", ErrNoData, country)
	}

	merged := mergeArrays(parts)
	p.logger.Info("Public holidays fetched",
		zap.String("country", country),
		zap.Ints("years", years),
		zap.Int("records", countRecords(merged)))

	return merged, nil
}

func (p *NagerProvider) year(ctx context.Context, country string, year int) ([]byte, error) {
	cacheKey := fmt.Sprintf("%s/%d", country, year)

	p.cacheMu.RLock()
	if cached, ok := p.cache[cacheKey]; ok && time.Since(cached.fetchedAt) < p.cacheTTL {
		p.cacheMu.RUnlock()
		p.logger.Debug("Using cached public holidays", zap.String("key", cacheKey))
		return cached.data, nil
	}
	p.cacheMu.RUnlock()

	data, err := p.fetchYear(ctx, country, year)
	if err != nil {
		return nil, err
	}

	p.cacheMu.Lock()
	p.cache[cacheKey] = &cachedYear{data: data, fetchedAt: time.Now()}
	p.cacheMu.Unlock()

	return data, nil
}

func (p *NagerProvider) fetchYear(ctx context.Context, country string, year int) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%d/%s", p.apiURL, year, country)

	p.logger.Debug("Fetching public holidays", zap.String("url", endpoint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public holidays: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, fmt.Errorf("unexpected response body for %d", year)
	}

	return body, nil
}

// Refresh drops the cached years of country and downloads them again
func (p *NagerProvider) Refresh(ctx context.Context, country string, years []int) ([]byte, error) {
	country = strings.ToUpper(country)

	p.cacheMu.Lock()
	for _, year := range years {
		delete(p.cache, fmt.Sprintf("%s/%d", country, year))
	}
	p.cacheMu.Unlock()

	return p.Fetch(ctx, country, years)
}

// ClearCache drops every cached year
func (p *NagerProvider) ClearCache() {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()

	p.cache = make(map[string]*cachedYear)
	p.logger.Info("Public holiday cache cleared")
}
