package oddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBase = "https://api.the-odds-api.com/v4"

	// El plan gratuito no publica límite por segundo: 2/s con burst 4.
	defaultRatePerSec = 2
	defaultBurst      = 4

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Config configura el cliente de The Odds API.
type Config struct {
	BaseURL       string
	APIKey        string
	Regions       string // "eu,uk"
	Markets       string // "h2h,totals,spreads"
	RatePerSecond float64
	Timeout       time.Duration
}

// Client es el HTTP client de The Odds API con rate limiting y retries.
// Implementa ports.FixtureProvider y ports.PriceProvider.
type Client struct {
	http    *http.Client
	base    string
	apiKey  string
	regions string
	markets string
	limiter *rate.Limiter
}

// NewClient crea un Client. Los campos vacíos usan los valores de producción.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBase
	}
	if cfg.Regions == "" {
		cfg.Regions = "eu"
	}
	if cfg.Markets == "" {
		cfg.Markets = "h2h,totals,spreads"
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRatePerSec
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		base:    cfg.BaseURL,
		apiKey:  cfg.APIKey,
		regions: cfg.Regions,
		markets: cfg.Markets,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), defaultBurst),
	}
}

// endpoint construye la URL con la api key y los parámetros dados.
func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("apiKey", c.apiKey)
	}
	return c.base + path + "?" + params.Encode()
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
// Los 4xx (salvo 429) no se reintentan: la key o los parámetros están mal.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			// *url.Error incluye la URL, y con ella la api key.
			var ue *url.Error
			if errors.As(err, &ue) {
				err = ue.Err
			}
			if ctx.Err() != nil || attempt == maxRetries {
				return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if rem := resp.Header.Get("x-requests-remaining"); rem != "" {
			slog.Debug("odds api quota", "remaining", rem, "used", resp.Header.Get("x-requests-used"))
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by odds API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
