package headless

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canales-taurinos/internal/scraper/captcha"
	"canales-taurinos/pkg/utils"
)

const challengeSettle = 10 * time.Second

// injectTokenJS writes the token where the widget's own script would and
// fires its data-callback. A form wrapping the widget is submitted only when
// no callback exists. Returns whether a widget was found.
const injectTokenJS = `(kind, token) => {
	const widgetSel = kind === 'turnstile' ? '.cf-turnstile, [data-sitekey^="0x"]' : '.g-recaptcha, [data-sitekey]';
	const fieldName = kind === 'turnstile' ? 'cf-turnstile-response' : 'g-recaptcha-response';
	const widget = document.querySelector(widgetSel);
	if (!widget) return false;

	let fields = document.querySelectorAll('[name="' + fieldName + '"]');
	if (fields.length === 0) {
		const field = document.createElement(kind === 'turnstile' ? 'input' : 'textarea');
		field.name = fieldName;
		field.style.display = 'none';
		widget.appendChild(field);
		fields = [field];
	}
	fields.forEach((f) => { f.value = token; });

	const callback = widget.getAttribute('data-callback');
	if (callback && typeof window[callback] === 'function') {
		window[callback](token);
		return true;
	}
	const form = widget.closest('form');
	if (form) form.submit();
	return true;
}`

// SolveChallenge looks for a Turnstile or reCAPTCHA widget in the current
// DOM, solves it and injects the token. Pages without a widget are left
// untouched.
func (s *Session) SolveChallenge(ctx context.Context, pageURL string) error {
	if s.solver == nil {
		return nil
	}
	html, err := s.HTML(ctx)
	if err != nil {
		return err
	}
	ch, ok := captcha.Detect(html)
	if !ok {
		return nil
	}
	ch.PageURL = pageURL

	fields := map[string]interface{}{
		"url":      pageURL,
		"kind":     string(ch.Kind),
		"site_key": ch.SiteKey,
	}
	s.logger.Info("Challenge widget found", fields)

	token, err := captcha.Solve(ctx, s.solver, ch)
	if err != nil {
		return &utils.SessionError{Op: "captcha", Err: err}
	}

	settleCtx, cancel := context.WithTimeout(ctx, challengeSettle)
	defer cancel()

	// a submitted form navigates, a callback usually fetches
	idle := s.page.Context(settleCtx).WaitRequestIdle(networkIdleWindow, nil, nil, nil)
	injected, err := s.page.Context(ctx).Eval(injectTokenJS, string(ch.Kind), token)
	if err != nil {
		return &utils.SessionError{Op: "captcha", Err: fmt.Errorf("inject token: %w", err)}
	}
	if !injected.Value.Bool() {
		return &utils.SessionError{Op: "captcha", Err: errors.New("widget disappeared before injection")}
	}
	idle()

	if err := ctx.Err(); err != nil {
		return err
	}

	// widgets often stay rendered after a successful callback
	after, err := s.HTML(ctx)
	if err != nil {
		return err
	}
	again, still := captcha.Detect(after)
	fields["widget_remaining"] = still && again.SiteKey == ch.SiteKey
	s.logger.Info("Challenge token injected", fields)
	return nil
}
