package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu    sync.Mutex
	rates map[string]Rates
	err   error
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, base string) (Rates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.rates[base]
	if !ok {
		return nil, errors.New("unknown base")
	}
	return r, nil
}

type memSharedCache struct {
	mu      sync.Mutex
	entries map[string]Rates
}

func (c *memSharedCache) Get(_ context.Context, base string) (Rates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[base]
	if !ok {
		return nil, redis.Nil
	}
	return r, nil
}

func (c *memSharedCache) Set(_ context.Context, base string, rates Rates, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[base] = rates
	return nil
}

func usdRates() Rates {
	return Rates{
		"NGN": decimal.RequireFromString("1530.25"),
		"GBP": decimal.RequireFromString("0.79"),
		"EUR": decimal.RequireFromString("0.92"),
	}
}

func TestHTTPRateFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/USD", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"NGN":1530.25,"GBP":0.79}}`))
	}))
	defer srv.Close()

	rates, err := NewHTTPRateFetcher(srv.URL+"/").Fetch(context.Background(), "USD")
	require.NoError(t, err)
	assert.True(t, rates["NGN"].Equal(decimal.RequireFromString("1530.25")))
	assert.Len(t, rates, 2)
}

func TestHTTPRateFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/EMPTY" {
			_, _ = w.Write([]byte(`{"rates":{}}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTTPRateFetcher(srv.URL)
	_, err := f.Fetch(context.Background(), "USD")
	assert.Error(t, err)
	_, err = f.Fetch(context.Background(), "EMPTY")
	assert.Error(t, err)
}

func TestRateCacheFreshnessAndEviction(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewRateCache(time.Hour, 2)
	c.now = func() time.Time { return now }

	c.Set("USD", usdRates())
	_, fresh, ok := c.Get("USD")
	require.True(t, ok)
	assert.True(t, fresh)

	now = now.Add(61 * time.Minute)
	rates, fresh, ok := c.Get("USD")
	require.True(t, ok)
	assert.False(t, fresh)
	assert.NotEmpty(t, rates)

	c.Set("EUR", Rates{"USD": decimal.NewFromFloat(1.09)})
	now = now.Add(time.Minute)
	c.Set("GBP", Rates{"USD": decimal.NewFromFloat(1.27)})

	assert.Equal(t, 2, c.Len())
	_, _, ok = c.Get("USD")
	assert.False(t, ok, "oldest entry is evicted")
	_, _, ok = c.Get("EUR")
	assert.True(t, ok)
}

func TestCurrencyServiceFallbacks(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{rates: map[string]Rates{"USD": usdRates()}}
	cache := NewRateCache(time.Hour, 10)
	cache.now = func() time.Time { return now }
	svc := NewCurrencyService(fetcher, cache, nil)

	require.NotEmpty(t, svc.Rates(ctx, "usd"))
	require.NotEmpty(t, svc.Rates(ctx, "USD"))
	assert.Equal(t, 1, fetcher.calls, "fresh entries are served from cache")

	now = now.Add(2 * time.Hour)
	fetcher.err = errors.New("api down")
	stale := svc.Rates(ctx, "USD")
	assert.True(t, stale["GBP"].Equal(decimal.RequireFromString("0.79")), "stale rates are used when the API fails")
	assert.Equal(t, 2, fetcher.calls)

	assert.Empty(t, svc.Rates(ctx, "JPY"))
}

func TestCurrencyServiceSharedCache(t *testing.T) {
	ctx := context.Background()
	shared := &memSharedCache{entries: map[string]Rates{"USD": usdRates()}}
	fetcher := &stubFetcher{err: errors.New("should not be called")}
	svc := NewCurrencyService(fetcher, NewRateCache(time.Hour, 10), shared)

	rates := svc.Rates(ctx, "USD")
	assert.NotEmpty(t, rates)
	assert.Equal(t, 0, fetcher.calls)

	fetcher.err = nil
	fetcher.rates = map[string]Rates{"EUR": {"USD": decimal.NewFromFloat(1.09)}}
	svc.Rates(ctx, "EUR")
	assert.Contains(t, shared.entries, "EUR", "fetched rates are shared")
}

func TestConvert(t *testing.T) {
	ctx := context.Background()
	svc := NewCurrencyService(&stubFetcher{rates: map[string]Rates{"USD": usdRates()}}, NewRateCache(time.Hour, 10), nil)

	got := svc.Convert(ctx, decimal.RequireFromString("4.99"), "USD", "NGN")
	assert.Equal(t, "7635.95", got.StringFixed(2))

	got = svc.Convert(ctx, decimal.RequireFromString("4.99"), "usd", "usd")
	assert.Equal(t, "4.99", got.String())

	got = svc.Convert(ctx, decimal.RequireFromString("4.99"), "USD", "XYZ")
	assert.Equal(t, "4.99", got.String(), "unknown currencies keep the original amount")
}

func TestCurrencyForCountry(t *testing.T) {
	cases := map[string]string{
		"Nigeria":        "NGN",
		"ng":             "NGN",
		"United Kingdom": "GBP",
		"USA":            "USD",
		"DE":             "EUR",
		"KES":            "KES",
		"":               "USD",
		"Atlantis":       "USD",
	}
	for in, want := range cases {
		assert.Equal(t, want, CurrencyForCountry(in), in)
	}
}
