package headless

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"canales-taurinos/internal/config"
)

var chromeCandidates = []string{
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/opt/google/chrome/chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",
	"C:\\Program Files (x86)\\Google\\Chrome\\Application\\chrome.exe",
}

// systemChromePath resolves the browser binary: configured path first, then
// CHROME_PATH, then well-known install locations. Empty means rod downloads one.
func systemChromePath(configured string) string {
	for _, candidate := range append([]string{configured, os.Getenv("CHROME_PATH")}, chromeCandidates...) {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func newLauncher(cfg config.BrowserConfig, userAgent string) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("lang", "es-ES")

	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		l = l.Set("window-size", fmt.Sprintf("%d,%d", cfg.ViewportWidth, cfg.ViewportHeight))
	}
	if userAgent != "" {
		l = l.Set("user-agent", userAgent)
	}
	if bin := systemChromePath(cfg.Bin); bin != "" {
		l = l.Bin(bin)
	}
	return l
}

// launch starts the browser and returns its control URL. The process is
// killed when the deadline passes first.
func launch(ctx context.Context, l *launcher.Launcher, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		u, err := l.Launch()
		done <- result{url: u, err: err}
	}()

	select {
	case res := <-done:
		return res.url, res.err
	case <-ctx.Done():
		l.Kill()
		return "", fmt.Errorf("browser launch: %w", ctx.Err())
	}
}
