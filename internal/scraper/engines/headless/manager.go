package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/scraper/captcha"
	"canales-taurinos/pkg/utils"
)

// Mode selects the browser lifecycle of a session
type Mode string

const (
	// ModeFresh launches a new browser with an empty profile per session
	ModeFresh Mode = "fresh"
	// ModePersistent opens one page per session on a long-lived browser
	ModePersistent Mode = "persistent"
)

// ParseMode maps a configured mode name, defaulting to fresh
func ParseMode(s string) Mode {
	if Mode(s) == ModePersistent {
		return ModePersistent
	}
	return ModeFresh
}

// ErrManagerClosed is returned by Acquire after Shutdown
var ErrManagerClosed = errors.New("session manager is shut down")

type Options struct {
	Mode           Mode
	Browser        config.BrowserConfig
	UserAgent      string
	AcceptLanguage string
	Patches        PatchSet
	// Solver answers Turnstile and reCAPTCHA widgets; nil leaves them alone
	Solver captcha.Solver
}

// Manager hands out browser sessions in one mode
type Manager struct {
	opts    Options
	blocked map[proto.NetworkResourceType]bool
	logger  logging.Logger

	mu             sync.Mutex
	shared         *rod.Browser
	sharedLauncher *launcher.Launcher
	sessions       map[string]*Session
	closed         bool
}

func NewManager(opts Options, logger logging.Logger) *Manager {
	if opts.Mode == "" {
		opts.Mode = ModeFresh
	}
	if opts.Patches.Version == "" {
		opts.Patches = DefaultPatchSet()
	}

	logger = logger.WithFields(map[string]interface{}{
		"component": "headless",
		"mode":      string(opts.Mode),
	})

	blocked, unknown := parseBlockList(opts.Browser.BlockResources)
	if len(unknown) > 0 {
		logger.Warn("Ignoring unknown blocked resource types", map[string]interface{}{"types": unknown})
	}

	return &Manager{
		opts:     opts,
		blocked:  blocked,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Mode returns the lifecycle mode of sessions from this manager
func (m *Manager) Mode() Mode { return m.opts.Mode }

// Active returns the number of sessions not yet released
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Acquire returns a ready session whose page already carries the patch set,
// headers and resource blocking. Failures are *utils.SessionError.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, &utils.SessionError{Op: "acquire", Err: ErrManagerClosed}
	}

	var (
		sess *Session
		err  error
	)
	if m.opts.Mode == ModePersistent {
		sess, err = m.acquirePersistent(ctx)
	} else {
		sess, err = m.acquireFresh(ctx)
	}
	if err != nil {
		m.logger.Error("Failed to acquire browser session", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Debug("Browser session acquired", map[string]interface{}{
		"session_id":    sess.ID,
		"patch_version": m.opts.Patches.Version,
	})
	return sess, nil
}

func (m *Manager) acquireFresh(ctx context.Context) (*Session, error) {
	id := uuid.New().String()
	root := utils.GetStringOrDefault(m.opts.Browser.ProfileRoot, os.TempDir())
	profileDir := filepath.Join(root, "rod-profile-"+id)
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, &utils.SessionError{Op: "launch", Err: fmt.Errorf("create profile dir: %w", err)}
	}

	l := newLauncher(m.opts.Browser, m.opts.UserAgent).UserDataDir(profileDir)
	sess := &Session{
		ID:         id,
		Mode:       ModeFresh,
		launcher:   l,
		profileDir: profileDir,
		solver:     m.opts.Solver,
		logger:     m.logger.WithField("session_id", id),
		onRelease:  m.forget,
	}

	controlURL, err := launch(ctx, l, m.opts.Browser.LaunchTimeout)
	if err != nil {
		_ = sess.Release()
		return nil, &utils.SessionError{Op: "launch", Err: err}
	}
	sess.launched = true

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		_ = sess.Release()
		return nil, &utils.SessionError{Op: "connect", Err: err}
	}
	sess.browser = browser

	if err := m.preparePage(sess, browser); err != nil {
		_ = sess.Release()
		return nil, err
	}
	return sess, nil
}

func (m *Manager) acquirePersistent(ctx context.Context) (*Session, error) {
	browser, err := m.sharedBrowser(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	sess := &Session{
		ID:        id,
		Mode:      ModePersistent,
		solver:    m.opts.Solver,
		logger:    m.logger.WithField("session_id", id),
		onRelease: m.forget,
	}
	if err := m.preparePage(sess, browser); err != nil {
		_ = sess.Release()
		return nil, err
	}
	return sess, nil
}

// sharedBrowser returns the long-lived browser, relaunching it when the
// previous process died.
func (m *Manager) sharedBrowser(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shared != nil {
		if _, err := m.shared.Pages(); err == nil {
			return m.shared, nil
		}
		m.logger.Warn("Shared browser is unresponsive, relaunching", nil)
		m.closeSharedLocked()
	}

	l := newLauncher(m.opts.Browser, m.opts.UserAgent)
	controlURL, err := launch(ctx, l, m.opts.Browser.LaunchTimeout)
	if err != nil {
		l.Kill()
		return nil, &utils.SessionError{Op: "launch", Err: err}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, &utils.SessionError{Op: "connect", Err: err}
	}

	m.shared = browser
	m.sharedLauncher = l
	m.logger.Info("Shared browser launched", nil)
	return browser, nil
}

// preparePage opens a stealth page and installs everything that must be in
// place before the first navigation.
func (m *Manager) preparePage(sess *Session, browser *rod.Browser) error {
	page, err := stealth.Page(browser)
	if err != nil {
		return &utils.SessionError{Op: "open_page", Err: err}
	}
	sess.page = page

	if _, err := page.EvalOnNewDocument(m.opts.Patches.Script()); err != nil {
		return &utils.SessionError{Op: "patch", Err: err}
	}

	if m.opts.Browser.ViewportWidth > 0 && m.opts.Browser.ViewportHeight > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             m.opts.Browser.ViewportWidth,
			Height:            m.opts.Browser.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			sess.logger.Warn("Failed to set viewport", map[string]interface{}{"error": err.Error()})
		}
	}

	if m.opts.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      m.opts.UserAgent,
			AcceptLanguage: m.opts.AcceptLanguage,
		})
		if err != nil {
			sess.logger.Warn("Failed to set user agent", map[string]interface{}{"error": err.Error()})
		}
	}

	if _, err := page.SetExtraHeaders(extraHeaders(m.opts.AcceptLanguage)); err != nil {
		sess.logger.Debug("Failed to set extra headers", map[string]interface{}{"error": err.Error()})
	}

	if len(m.blocked) > 0 {
		router, err := blockResources(page, m.blocked)
		if err != nil {
			return &utils.SessionError{Op: "intercept", Err: err}
		}
		sess.router = router
	}
	return nil
}

// extraHeaders returns the flat name/value list SetExtraHeaders expects
func extraHeaders(acceptLanguage string) []string {
	return []string{
		"Accept-Language", utils.GetStringOrDefault(acceptLanguage, "es-ES,es;q=0.9"),
		"Cache-Control", "no-cache",
		"Pragma", "no-cache",
		"Upgrade-Insecure-Requests", "1",
	}
}

func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()
}

func (m *Manager) closeSharedLocked() {
	if m.shared != nil {
		_ = m.shared.Close()
		m.shared = nil
	}
	if m.sharedLauncher != nil {
		m.sharedLauncher.Kill()
		m.sharedLauncher.Cleanup()
		m.sharedLauncher = nil
	}
}

// Shutdown releases every outstanding session and closes the shared browser
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.closed = true
	pending := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		pending = append(pending, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range pending {
		if err := s.Release(); err != nil {
			errs = append(errs, err)
		}
	}

	m.mu.Lock()
	m.closeSharedLocked()
	m.mu.Unlock()

	if len(pending) > 0 {
		m.logger.Warn("Released outstanding sessions on shutdown", map[string]interface{}{"count": len(pending)})
	}
	return errors.Join(errs...)
}
