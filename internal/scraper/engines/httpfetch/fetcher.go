package httpfetch

import (
	"context"
	"errors"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/pkg/utils"
)

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

// Options tune a single fetch
type Options struct {
	// Timeout overrides the client timeout when positive
	Timeout time.Duration
	Headers map[string]string
}

// Fetcher retrieves raw HTML over plain HTTP with browser-like headers.
// It never retries; callers decide.
type Fetcher struct {
	client  *resty.Client
	limiter *DomainLimiter
	logger  logging.Logger
}

func New(cfg config.ScraperConfig, logger logging.Logger) *Fetcher {
	client := resty.New()
	if jar, err := cookiejar.New(nil); err == nil {
		client.SetCookieJar(jar)
	}
	if cfg.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.SetHeader("User-Agent", utils.GetStringOrDefault(cfg.UserAgent, "Mozilla/5.0"))
	client.SetHeader("Accept", acceptHTML)
	client.SetHeader("Accept-Language", utils.GetStringOrDefault(cfg.AcceptLanguage, "es-ES,es;q=0.9"))
	client.SetHeader("Cache-Control", "no-cache")
	client.SetHeader("Upgrade-Insecure-Requests", "1")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	limiter := NewDomainLimiter(LimiterConfig{
		PerMinute: cfg.RateLimit,
		Burst:     cfg.Burst,
		Threshold: cfg.CircuitThreshold,
		Reset:     cfg.CircuitReset,
	}, logger)

	return &Fetcher{
		client:  client,
		limiter: limiter,
		logger:  logger.WithField("component", "http_fetcher"),
	}
}

// Limiter exposes the per-domain limiter
func (f *Fetcher) Limiter() *DomainLimiter { return f.limiter }

// Fetch returns the body of url. Every failure is a *utils.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (string, error) {
	domain := utils.DomainOf(url)
	if domain == "" {
		return "", &utils.FetchError{URL: url, Err: errors.New("invalid url")}
	}

	if err := f.limiter.Wait(ctx, domain); err != nil {
		return "", &utils.FetchError{URL: url, Err: err}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(opts.Headers).
		Get(url)
	if err != nil {
		f.limiter.RecordFailure(domain, err)
		f.logger.Warn("HTTP fetch failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return "", &utils.FetchError{URL: url, Err: err}
	}

	if !resp.IsSuccess() {
		fetchErr := &utils.FetchError{URL: url, StatusCode: resp.StatusCode()}
		f.limiter.RecordFailure(domain, fetchErr)
		f.logger.Warn("HTTP fetch returned non-success status", map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode(),
		})
		return "", fetchErr
	}

	f.limiter.RecordSuccess(domain)
	f.logger.Debug("HTTP fetch completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode(),
		"bytes":    len(resp.Body()),
		"duration": utils.FormatDuration(time.Since(start)),
	})
	return resp.String(), nil
}
