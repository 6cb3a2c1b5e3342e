package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/scraper/captcha"
	"canales-taurinos/pkg/utils"
)

// Wait strategies accepted by Navigate
const (
	WaitLoad             = "load"
	WaitDOMContentLoaded = "domcontentloaded"
	WaitNetworkIdle      = "networkidle"
)

const (
	defaultNavigationTimeout = 60 * time.Second
	defaultSelectorTimeout   = 30 * time.Second
	defaultLoadMoreWait      = 15 * time.Second
	defaultMaxClicks         = 50
	networkIdleWindow        = 500 * time.Millisecond
)

type NavigateOptions struct {
	Wait    string
	Timeout time.Duration
	// Settle is an extra fixed pause after the wait condition
	Settle time.Duration
}

type LoadMoreOptions struct {
	ItemSelector   string
	ButtonSelector string
	// ButtonText filters candidate buttons by their text (JS regex syntax)
	ButtonText string
	Wait       time.Duration
	MaxClicks  int
}

// Plan is the full navigation recipe of one source
type Plan struct {
	URL                 string
	Navigate            NavigateOptions
	CookieSelectors     []string
	WaitSelector        string
	WaitSelectorTimeout time.Duration
	LoadMore            *LoadMoreOptions
}

// PlanFor builds the navigation plan of a configured source
func PlanFor(sc config.SourceConfig) Plan {
	b := sc.Browser
	plan := Plan{
		URL: sc.URL,
		Navigate: NavigateOptions{
			Wait:    b.Wait,
			Timeout: b.NavigationTimeout,
			Settle:  b.Settle,
		},
		CookieSelectors:     b.CookieSelectors,
		WaitSelector:        b.WaitSelector,
		WaitSelectorTimeout: b.WaitSelectorTimeout,
	}
	if lm := sc.LoadMore(); lm != nil {
		plan.LoadMore = &LoadMoreOptions{
			ItemSelector:   lm.ItemSelector,
			ButtonSelector: lm.ButtonSelector,
			ButtonText:     lm.ButtonText,
			Wait:           lm.Wait,
			MaxClicks:      lm.MaxClicks,
		}
	}
	return plan
}

func lifecycleEvent(wait string) proto.PageLifecycleEventName {
	switch strings.ToLower(wait) {
	case WaitDOMContentLoaded:
		return proto.PageLifecycleEventNameDOMContentLoaded
	case WaitNetworkIdle:
		return proto.PageLifecycleEventNameNetworkIdle
	default:
		return proto.PageLifecycleEventNameLoad
	}
}

// Session is one acquired page. In fresh mode it also owns its browser
// process and profile directory.
type Session struct {
	ID     string
	Mode   Mode
	page   *rod.Page
	router *rod.HijackRouter

	// set in fresh mode only
	browser    *rod.Browser
	launcher   *launcher.Launcher
	launched   bool
	profileDir string

	solver    captcha.Solver
	logger    logging.Logger
	onRelease func(*Session)

	releaseOnce sync.Once
	releaseErr  error
}

// Navigate loads url and blocks until the wait condition holds or the
// navigation timeout expires.
func (s *Session) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultNavigationTimeout
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := s.page.Context(navCtx)
	start := time.Now()

	// listeners must exist before Navigate or early events are missed
	var wait func()
	if strings.EqualFold(opts.Wait, WaitNetworkIdle) {
		wait = page.WaitRequestIdle(networkIdleWindow, nil, nil, nil)
	} else {
		wait = page.WaitNavigation(lifecycleEvent(opts.Wait))
	}

	if err := page.Navigate(url); err != nil {
		return &utils.SessionError{Op: "navigate", Err: err}
	}
	wait()
	if err := navCtx.Err(); err != nil {
		return &utils.SessionError{Op: "navigate", Err: fmt.Errorf("waiting for %s on %s: %w", utils.GetStringOrDefault(opts.Wait, WaitLoad), url, err)}
	}

	s.logger.Debug("Navigation completed", map[string]interface{}{
		"url":      url,
		"wait":     utils.GetStringOrDefault(opts.Wait, WaitLoad),
		"duration": utils.FormatDuration(time.Since(start)),
	})

	return sleep(ctx, opts.Settle)
}

// DismissCookieBanner clicks the first present selector. It reports whether
// a click happened; a missing banner is not an error.
func (s *Session) DismissCookieBanner(ctx context.Context, selectors []string) bool {
	page := s.page.Context(ctx)
	for _, selector := range selectors {
		has, el, err := page.Has(selector)
		if err != nil || !has {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			s.logger.Debug("Cookie banner click failed", map[string]interface{}{
				"selector": selector,
				"error":    err.Error(),
			})
			continue
		}
		s.logger.Debug("Cookie banner dismissed", map[string]interface{}{"selector": selector})
		return true
	}
	return false
}

// WaitForSelector waits until selector matches at least one element
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultSelectorTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := s.page.Context(waitCtx).Element(selector); err != nil {
		return &utils.SessionError{Op: "wait_selector", Err: fmt.Errorf("%q not found within %s: %w", selector, timeout, err)}
	}
	return nil
}

// countIncreasedJS reports whether more than n elements match selector
const countIncreasedJS = `(selector, n) => document.querySelectorAll(selector).length > n`

// LoadMore clicks the "load more" control while it is present and each click
// grows the item count within the wait window. A wait that times out means
// the list is fully loaded. It returns the number of successful clicks.
func (s *Session) LoadMore(ctx context.Context, opts LoadMoreOptions) (int, error) {
	wait := opts.Wait
	if wait <= 0 {
		wait = defaultLoadMoreWait
	}
	maxClicks := opts.MaxClicks
	if maxClicks <= 0 {
		maxClicks = defaultMaxClicks
	}

	page := s.page.Context(ctx)
	clicks := 0
	for clicks < maxClicks {
		if err := ctx.Err(); err != nil {
			return clicks, err
		}

		items, err := page.Elements(opts.ItemSelector)
		if err != nil {
			return clicks, &utils.SessionError{Op: "load_more", Err: err}
		}
		before := len(items)

		button, ok := s.findButton(page, opts)
		if !ok {
			break
		}
		_ = button.ScrollIntoView()
		if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
			s.logger.Debug("Load-more click failed", map[string]interface{}{"error": err.Error()})
			break
		}

		err = page.Timeout(wait).Wait(rod.Eval(countIncreasedJS, opts.ItemSelector, before))
		if err != nil {
			if ctx.Err() != nil {
				return clicks, ctx.Err()
			}
			// no growth within the window, treated as fully loaded
			break
		}
		clicks++
	}

	s.logger.Debug("Load-more finished", map[string]interface{}{
		"clicks":     clicks,
		"max_clicks": maxClicks,
	})
	return clicks, nil
}

func (s *Session) findButton(page *rod.Page, opts LoadMoreOptions) (*rod.Element, bool) {
	var (
		has bool
		el  *rod.Element
		err error
	)
	if opts.ButtonText != "" {
		has, el, err = page.HasR(opts.ButtonSelector, opts.ButtonText)
	} else {
		has, el, err = page.Has(opts.ButtonSelector)
	}
	if err != nil || !has {
		return nil, false
	}
	return el, true
}

// HTML returns the serialized DOM of the current page
func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", &utils.SessionError{Op: "html", Err: err}
	}
	return html, nil
}

// Screenshot captures the full page as PNG
func (s *Session) Screenshot() ([]byte, error) {
	shot, err := s.page.Screenshot(true, nil)
	if err != nil {
		return nil, &utils.SessionError{Op: "screenshot", Err: err}
	}
	return shot, nil
}

// Run executes plan and returns the resulting HTML. A missing wait selector
// is logged and the current DOM is returned so the extractor can decide.
func (s *Session) Run(ctx context.Context, plan Plan) (string, error) {
	if err := s.Navigate(ctx, plan.URL, plan.Navigate); err != nil {
		return "", err
	}

	if len(plan.CookieSelectors) > 0 {
		s.DismissCookieBanner(ctx, plan.CookieSelectors)
	}

	if s.solver != nil {
		if err := s.SolveChallenge(ctx, plan.URL); err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			s.logger.Warn("Challenge not solved, continuing with current DOM", map[string]interface{}{
				"url":   plan.URL,
				"error": err.Error(),
			})
		}
	}

	if plan.WaitSelector != "" {
		if err := s.WaitForSelector(ctx, plan.WaitSelector, plan.WaitSelectorTimeout); err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			s.logger.Warn("Wait selector not found, continuing with current DOM", map[string]interface{}{
				"url":      plan.URL,
				"selector": plan.WaitSelector,
			})
		}
	}

	if plan.LoadMore != nil {
		clicks, err := s.LoadMore(ctx, *plan.LoadMore)
		if err != nil {
			return "", err
		}
		s.logger.Info("Load-more pagination done", map[string]interface{}{
			"url":    plan.URL,
			"clicks": clicks,
		})
	}

	return s.HTML(ctx)
}

// Release closes the page and, in fresh mode, the browser process and its
// profile directory. It is safe to call more than once.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		var errs []error
		if s.router != nil {
			if err := s.router.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop hijack router: %w", err))
			}
		}
		if s.page != nil {
			if err := s.page.Close(); err != nil && s.browser == nil {
				// in fresh mode the browser close below covers it
				errs = append(errs, fmt.Errorf("close page: %w", err))
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			// Cleanup blocks until the process exits, so only after a launch
			if s.launched {
				s.launcher.Cleanup()
			}
		}
		if s.profileDir != "" {
			if err := os.RemoveAll(s.profileDir); err != nil {
				errs = append(errs, fmt.Errorf("remove profile dir: %w", err))
			}
		}
		s.releaseErr = errors.Join(errs...)

		if s.onRelease != nil {
			s.onRelease(s)
		}
		s.logger.Debug("Browser session released", map[string]interface{}{
			"session_id": s.ID,
			"mode":       string(s.Mode),
		})
	})
	return s.releaseErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
