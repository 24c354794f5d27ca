package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency catalog prices are stored in
const BaseCurrency = "USD"

// Rates maps currency codes to the amount of that currency one unit of the base buys
type Rates map[string]decimal.Decimal

// RateFetcher loads exchange rates for a base currency
type RateFetcher interface {
	Fetch(ctx context.Context, base string) (Rates, error)
}

// SharedRateCache is a cache tier shared between instances
type SharedRateCache interface {
	Get(ctx context.Context, base string) (Rates, error)
	Set(ctx context.Context, base string, rates Rates, ttl time.Duration) error
}

// HTTPRateFetcher reads rates from an exchangerate-api style endpoint
type HTTPRateFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRateFetcher creates a fetcher for GET {baseURL}/{base}
func NewHTTPRateFetcher(baseURL string) *HTTPRateFetcher {
	return &HTTPRateFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch implements RateFetcher
func (f *HTTPRateFetcher) Fetch(ctx context.Context, base string) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+base, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rates request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Rates Rates `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rates: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, errors.New("rates endpoint returned no rates")
	}
	return body.Rates, nil
}

// RateCache is an in-process, capacity-bounded cache of rates per base
// currency. Expired entries stay readable as a stale fallback until evicted.
type RateCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	max     int
	entries map[string]rateEntry
	now     func() time.Time
}

type rateEntry struct {
	rates     Rates
	fetchedAt time.Time
}

// NewRateCache creates a cache holding at most max bases for ttl each
func NewRateCache(ttl time.Duration, max int) *RateCache {
	if max < 1 {
		max = 1
	}
	return &RateCache{
		ttl:     ttl,
		max:     max,
		entries: make(map[string]rateEntry),
		now:     time.Now,
	}
}

// Get returns the cached rates for base and whether they are still fresh
func (c *RateCache) Get(base string) (rates Rates, fresh, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[base]
	if !ok {
		return nil, false, false
	}
	return e.rates, c.now().Sub(e.fetchedAt) < c.ttl, true
}

// Set stores rates for base, evicting the oldest entry when full
func (c *RateCache) Set(base string, rates Rates) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[base]; !exists && len(c.entries) >= c.max {
		var oldest string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldest == "" || e.fetchedAt.Before(oldestAt) {
				oldest, oldestAt = k, e.fetchedAt
			}
		}
		delete(c.entries, oldest)
	}
	c.entries[base] = rateEntry{rates: rates, fetchedAt: c.now()}
}

// Len returns the number of cached bases
func (c *RateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisRateCache stores rates in Redis as JSON
type RedisRateCache struct {
	client *redis.Client
	prefix string
}

// NewRedisRateCache creates a Redis backed rate cache
func NewRedisRateCache(client *redis.Client) *RedisRateCache {
	return &RedisRateCache{client: client, prefix: "rates:"}
}

// Get implements SharedRateCache. A missing key returns redis.Nil.
func (c *RedisRateCache) Get(ctx context.Context, base string) (Rates, error) {
	data, err := c.client.Get(ctx, c.prefix+base).Bytes()
	if err != nil {
		return nil, err
	}
	var rates Rates
	if err := json.Unmarshal(data, &rates); err != nil {
		return nil, fmt.Errorf("failed to decode cached rates: %w", err)
	}
	return rates, nil
}

// Set implements SharedRateCache
func (c *RedisRateCache) Set(ctx context.Context, base string, rates Rates, ttl time.Duration) error {
	data, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}
	return c.client.Set(ctx, c.prefix+base, data, ttl).Err()
}

// CurrencyService converts catalog prices into local currencies
type CurrencyService struct {
	fetcher RateFetcher
	cache   *RateCache
	shared  SharedRateCache
}

// NewCurrencyService creates a currency service. shared may be nil.
func NewCurrencyService(fetcher RateFetcher, cache *RateCache, shared SharedRateCache) *CurrencyService {
	return &CurrencyService{fetcher: fetcher, cache: cache, shared: shared}
}

// Rates returns exchange rates for base. Lookup order is the local cache,
// the shared cache, the rates API, then any stale local entry. When all of
// them fail the result is empty, never an error.
func (s *CurrencyService) Rates(ctx context.Context, base string) Rates {
	base = strings.ToUpper(base)

	cached, fresh, ok := s.cache.Get(base)
	if ok && fresh {
		return cached
	}

	if s.shared != nil {
		rates, err := s.shared.Get(ctx, base)
		if err == nil && len(rates) > 0 {
			s.cache.Set(base, rates)
			return rates
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("base", base).Msg("Shared rate cache unavailable")
		}
	}

	rates, err := s.fetcher.Fetch(ctx, base)
	if err == nil {
		s.cache.Set(base, rates)
		if s.shared != nil {
			if err := s.shared.Set(ctx, base, rates, s.cache.ttl); err != nil {
				log.Warn().Err(err).Str("base", base).Msg("Failed to store rates in shared cache")
			}
		}
		return rates
	}

	log.Warn().Err(err).Str("base", base).Bool("stale_available", ok).Msg("Failed to fetch exchange rates")
	if ok {
		return cached
	}
	return Rates{}
}

// Convert converts amount between currencies, rounded to 2 decimal places.
// The amount is returned unchanged when no rate is known.
func (s *CurrencyService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount
	}
	rate, ok := s.Rates(ctx, from)[to]
	if !ok || rate.IsZero() {
		return amount
	}
	return amount.Mul(rate).Round(2)
}

// CurrencyForCountry resolves an ISO country code, a common country name or
// a currency code to a currency code, defaulting to USD
func CurrencyForCountry(country string) string {
	c := strings.TrimSpace(country)
	if c == "" {
		return BaseCurrency
	}
	upper := strings.ToUpper(c)
	if code, ok := countryNames[upper]; ok {
		return countryCurrencies[code]
	}
	if cur, ok := countryCurrencies[upper]; ok {
		return cur
	}
	if len(c) == 3 && c == upper {
		return c
	}
	return BaseCurrency
}

var countryNames = map[string]string{
	"NIGERIA":        "NG",
	"KENYA":          "KE",
	"GHANA":          "GH",
	"SOUTH AFRICA":   "ZA",
	"UNITED STATES":  "US",
	"USA":            "US",
	"UNITED KINGDOM": "GB",
	"UK":             "GB",
	"CANADA":         "CA",
	"AUSTRALIA":      "AU",
	"FRANCE":         "FR",
	"GERMANY":        "DE",
	"ITALY":          "IT",
	"SPAIN":          "ES",
	"BRAZIL":         "BR",
	"INDIA":          "IN",
	"CHINA":          "CN",
	"JAPAN":          "JP",
}

var countryCurrencies = map[string]string{
	// Africa
	"NG": "NGN", "KE": "KES", "GH": "GHS", "ZA": "ZAR", "EG": "EGP", "TZ": "TZS", "UG": "UGX",
	"ET": "ETB", "MA": "MAD", "DZ": "DZD", "TN": "TND", "CM": "XAF", "CI": "XOF", "SN": "XOF",
	"AO": "AOA", "SD": "SDG", "MZ": "MZN", "MG": "MGA", "ML": "XOF", "BF": "XOF", "NE": "XOF",
	"RW": "RWF", "BJ": "XOF", "TG": "XOF", "GN": "GNF", "SL": "SLL", "LR": "LRD", "TD": "XAF",
	"CF": "XAF", "GA": "XAF", "CG": "XAF", "CD": "CDF", "ZM": "ZMW", "ZW": "USD", "MW": "MWK",
	"LS": "LSL", "BW": "BWP", "NA": "NAD", "SZ": "SZL", "MU": "MUR", "SC": "SCR", "KM": "KMF",
	"DJ": "DJF", "ER": "ERN", "SO": "SOS", "SS": "SSP",

	// Americas
	"US": "USD", "CA": "CAD", "MX": "MXN", "BR": "BRL", "AR": "ARS", "CL": "CLP", "CO": "COP",
	"PE": "PEN", "VE": "VES", "EC": "USD", "BO": "BOB", "PY": "PYG", "UY": "UYU", "GY": "GYD",
	"SR": "SRD", "GF": "EUR", "FK": "FKP", "GT": "GTQ", "BZ": "BZD", "SV": "USD", "HN": "HNL",
	"NI": "NIO", "CR": "CRC", "PA": "PAB", "CU": "CUP", "JM": "JMD", "HT": "HTG", "DO": "DOP",
	"PR": "USD", "TT": "TTD", "BB": "BBD", "BS": "BSD", "AG": "XCD", "DM": "XCD", "GD": "XCD",
	"KN": "XCD", "LC": "XCD", "VC": "XCD",

	// Asia
	"CN": "CNY", "JP": "JPY", "IN": "INR", "ID": "IDR", "PK": "PKR", "BD": "BDT", "PH": "PHP",
	"VN": "VND", "TH": "THB", "MY": "MYR", "SG": "SGD", "HK": "HKD", "TW": "TWD", "KR": "KRW",
	"MM": "MMK", "KH": "KHR", "LA": "LAK", "BN": "BND", "AF": "AFN", "IR": "IRR", "IQ": "IQD",
	"SA": "SAR", "AE": "AED", "OM": "OMR", "YE": "YER", "KW": "KWD", "QA": "QAR", "BH": "BHD",
	"JO": "JOD", "LB": "LBP", "SY": "SYP", "IL": "ILS", "PS": "ILS", "TR": "TRY", "GE": "GEL",
	"AM": "AMD", "AZ": "AZN", "KZ": "KZT", "UZ": "UZS", "TM": "TMT", "TJ": "TJS", "KG": "KGS",
	"MN": "MNT", "NP": "NPR", "BT": "BTN", "LK": "LKR", "MV": "MVR",

	// Europe
	"GB": "GBP", "IE": "EUR", "FR": "EUR", "DE": "EUR", "IT": "EUR", "ES": "EUR", "PT": "EUR",
	"NL": "EUR", "BE": "EUR", "LU": "EUR", "AT": "EUR", "FI": "EUR", "GR": "EUR", "CY": "EUR",
	"MT": "EUR", "SI": "EUR", "SK": "EUR", "EE": "EUR", "LV": "EUR", "LT": "EUR", "PL": "PLN",
	"CZ": "CZK", "HU": "HUF", "RO": "RON", "BG": "BGN", "HR": "EUR", "RS": "RSD", "BA": "BAM",
	"MK": "MKD", "AL": "ALL", "ME": "EUR", "XK": "EUR", "CH": "CHF", "NO": "NOK", "SE": "SEK",
	"DK": "DKK", "IS": "ISK", "RU": "RUB", "UA": "UAH", "BY": "BYN", "MD": "MDL",

	// Oceania
	"AU": "AUD", "NZ": "NZD", "PG": "PGK", "FJ": "FJD", "NC": "XPF", "PF": "XPF", "WS": "WST",
	"TO": "TOP", "VU": "VUV", "SB": "SBD", "KI": "AUD", "TV": "AUD", "NR": "AUD", "PW": "USD",
	"FM": "USD", "MH": "USD",
}
