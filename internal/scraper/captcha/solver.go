package captcha

import (
	"context"
	"fmt"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
)

const (
	DefaultTimeout         = 120 * time.Second
	DefaultPollingInterval = 5 * time.Second
)

// Solver turns a challenge widget into a response token the page accepts
type Solver interface {
	SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error)
	SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error)
}

// Solve dispatches ch to the matching solver method
func Solve(ctx context.Context, s Solver, ch Challenge) (string, error) {
	switch ch.Kind {
	case KindTurnstile:
		return s.SolveTurnstile(ctx, ch.SiteKey, ch.PageURL)
	case KindRecaptcha:
		return s.SolveRecaptcha(ctx, ch.SiteKey, ch.PageURL)
	default:
		return "", fmt.Errorf("unsupported challenge kind %q", ch.Kind)
	}
}

// TwoCaptcha solves challenges through the 2captcha.com API
type TwoCaptcha struct {
	client  *api2captcha.Client
	timeout time.Duration
	logger  logging.Logger
}

func NewTwoCaptcha(cfg config.CaptchaConfig, logger logging.Logger) *TwoCaptcha {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	polling := cfg.PollingInterval
	if polling <= 0 {
		polling = DefaultPollingInterval
	}

	client := api2captcha.NewClient(cfg.APIKey)
	client.DefaultTimeout = int(timeout.Seconds())
	client.RecaptchaTimeout = int(timeout.Seconds())
	client.PollingInterval = int(polling.Seconds())

	return &TwoCaptcha{
		client:  client,
		timeout: timeout,
		logger:  logger.WithField("component", "2captcha"),
	}
}

func (s *TwoCaptcha) SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error) {
	req := api2captcha.ReCaptcha{SiteKey: siteKey, Url: pageURL}
	return s.solve(ctx, KindRecaptcha, siteKey, pageURL, req.ToRequest())
}

func (s *TwoCaptcha) SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error) {
	req := api2captcha.CloudflareTurnstile{SiteKey: siteKey, Url: pageURL}
	return s.solve(ctx, KindTurnstile, siteKey, pageURL, req.ToRequest())
}

// solve runs the blocking client call and gives up when ctx ends first. The
// client keeps polling in the background until its own timeout.
func (s *TwoCaptcha) solve(ctx context.Context, kind Kind, siteKey, pageURL string, req api2captcha.Request) (string, error) {
	fields := map[string]interface{}{
		"kind":     string(kind),
		"site_key": siteKey,
		"page_url": pageURL,
		"timeout":  s.timeout.String(),
	}
	s.logger.Info("Solving challenge", fields)

	type result struct {
		code string
		id   string
		err  error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		code, id, err := s.client.Solve(req)
		done <- result{code: code, id: id, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			s.logger.Error("Challenge solving failed", map[string]interface{}{
				"kind":       string(kind),
				"captcha_id": res.id,
				"error":      res.err.Error(),
			})
			return "", fmt.Errorf("failed to solve %s: %w", kind, res.err)
		}
		s.logger.Info("Challenge solved", map[string]interface{}{
			"kind":     string(kind),
			"duration": time.Since(start).String(),
		})
		return res.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("solving %s: %w", kind, ctx.Err())
	}
}
