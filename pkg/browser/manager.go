package browser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/walletflow/pkg/logging"
)

// browserStartWait bounds how long a freshly started browser gets to open
// its debugging endpoint.
const browserStartWait = 30 * time.Second

// LaunchConfig configures session creation.
type LaunchConfig struct {
	// Headed runs the browser with a visible window.
	Headed bool

	// UserDataDir is the persistent profile directory. Wallet import and
	// unlock state live in the profile; the session only opens it.
	UserDataDir string

	// ExtensionPath is the unpacked wallet extension loaded on fresh
	// launches. Reattached sessions already have it.
	ExtensionPath string

	// BrowserPath is an explicit Chromium executable. Empty means discover
	// one from the usual install locations.
	BrowserPath string

	// DebugPort is the local debugging endpoint used both for exposing a
	// fresh browser and for probing a prior one.
	DebugPort int

	// TimeoutMs is the default timeout applied to page operations.
	TimeoutMs int
}

// Session is the single live browser process/context handle. The browser is
// always a detached OS process reached over its debugging endpoint, so it
// survives this process exiting and the next invocation can reattach.
type Session struct {
	// Browser is the CDP connection to the browser process.
	Browser playwright.Browser

	// Context is the browser context owning all surfaces.
	Context playwright.BrowserContext

	// Listener is the session's popup race listener. One per session, so
	// the at-most-one-subscription invariant holds process-wide.
	Listener *PopupListener

	// Reattached marks a session attached to a prior browser rather than
	// launched fresh.
	Reattached bool

	CreatedAt time.Time
	DebugPort int

	// PID is the browser's OS process id when known; zero when the browser
	// was started by something else.
	PID int

	primary playwright.Page
}

// PrimaryPage returns the current primary page.
func (s *Session) PrimaryPage() playwright.Page {
	return s.primary
}

// SetPrimaryPage switches the current primary page. Switching is always an
// explicit operation; no event handler mutates this reference.
func (s *Session) SetPrimaryPage(page playwright.Page) {
	s.primary = page
}

// Manager tracks the single active browser session.
type Manager struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	session *Session
	pointer *PointerStore
	log     *logging.Logger

	// connect dials a debugging endpoint. Defaults to ConnectOverCDP once
	// the driver is up; tests substitute their own.
	connect func(endpoint string) (playwright.Browser, error)
}

// NewManager creates a manager persisting its session pointer through store.
func NewManager(store *PointerStore, log *logging.Logger) *Manager {
	return &Manager{
		pointer: store,
		log:     log,
	}
}

// Session returns the live session, or an ErrNoSession structural error.
func (m *Manager) Session() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, ErrNoSession
	}
	return m.session, nil
}

// EnsureSession returns the live session, creating one if needed. Creation
// first probes the persisted debugging endpoint and reattaches when it
// answers; otherwise it starts a detached browser process with the wallet
// extension loaded and connects to it. Idempotent when a session is already
// live.
//
// A failed fresh launch is fatal: browser process creation is not retried.
func (m *Manager) EnsureSession(cfg LaunchConfig) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return m.session, nil
	}

	if err := m.initDriver(); err != nil {
		return nil, &SessionError{Op: "init", Err: err}
	}

	if session := m.tryReattach(cfg); session != nil {
		m.session = session
		return session, nil
	}

	session, err := m.launch(cfg)
	if err != nil {
		return nil, &SessionError{Op: "launch", Err: err}
	}
	m.session = session
	return session, nil
}

// AttachExisting reattaches to a browser recorded by a prior invocation,
// never launching one. Returns ok=false when there is no running browser to
// attach to; a stale pointer is cleared as a side effect.
func (m *Manager) AttachExisting(cfg LaunchConfig) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return m.session, true, nil
	}

	if err := m.initDriver(); err != nil {
		return nil, false, &SessionError{Op: "init", Err: err}
	}

	if session := m.tryReattach(cfg); session != nil {
		m.session = session
		return session, true, nil
	}
	return nil, false, nil
}

// Teardown closes all surfaces and clears state. Safe to call when nothing
// is live. With keepOpen the browser keeps running and the session pointer
// stays on disk so the next invocation reattaches; otherwise the detached
// browser process is terminated.
func (m *Manager) Teardown(keepOpen bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}

	session := m.session
	m.session = nil

	if keepOpen {
		// Close only disconnects from a CDP-attached browser; the detached
		// process keeps running.
		if session.Browser != nil {
			_ = session.Browser.Close()
		}
		m.log.Infof("teardown with keep-open: browser left running on port %d", session.DebugPort)
		return m.stopDriver()
	}

	for _, page := range session.Context.Pages() {
		_ = page.Close() // ignore errors, continue cleanup
	}
	_ = session.Context.Close()
	if session.Browser != nil {
		_ = session.Browser.Close()
	}

	// Disconnecting never kills the detached process; signal it directly.
	if session.PID > 0 {
		killProcess(session.PID)
	}

	if err := m.pointer.Clear(); err != nil {
		m.log.Warnf("failed to clear session pointer: %v", err)
	}

	return m.stopDriver()
}

// initDriver starts the playwright driver used purely as a CDP client. The
// browser itself is never launched through the driver (a driver-launched
// browser dies with the driver, which would break reattachment).
func (m *Manager) initDriver() error {
	if m.connect != nil {
		return nil
	}

	// Discard driver output so stdout stays reserved for result records.
	opts := &playwright.RunOptions{
		Verbose:             false,
		SkipInstallBrowsers: true,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright driver: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright driver: %w", err)
	}
	m.pw = pw
	m.connect = func(endpoint string) (playwright.Browser, error) {
		return m.pw.Chromium.ConnectOverCDP(endpoint)
	}
	return nil
}

func (m *Manager) stopDriver() error {
	if m.pw == nil {
		return nil
	}
	pw := m.pw
	m.pw = nil
	m.connect = nil
	if err := pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright driver: %w", err)
	}
	return nil
}

// tryReattach probes the debugging endpoint recorded by a prior launch and
// attaches to the running browser when it answers. Returns nil when there is
// nothing to reattach to; that is not an error, just a reason to launch.
func (m *Manager) tryReattach(cfg LaunchConfig) *Session {
	pointer, err := m.pointer.Load()
	if err != nil {
		m.log.Warnf("unreadable session pointer, launching fresh: %v", err)
		return nil
	}
	if pointer == nil {
		return nil
	}

	port := pointer.Port
	if port == 0 {
		port = cfg.DebugPort
	}

	endpoint := fmt.Sprintf("http://127.0.0.1:%d", port)
	browser, err := m.connect(endpoint)
	if err != nil {
		m.log.Infof("debug endpoint %s not answering, clearing stale pointer: %v", endpoint, err)
		if clearErr := m.pointer.Clear(); clearErr != nil {
			m.log.Warnf("failed to clear stale session pointer: %v", clearErr)
		}
		return nil
	}

	session, err := m.sessionFromBrowser(browser, port, true)
	if err != nil {
		m.log.Warnf("reattached browser has no usable context: %v", err)
		_ = browser.Close()
		return nil
	}
	session.PID = pointer.PID

	m.log.Infof("reattached to existing browser on port %d", port)
	return session
}

// launch starts a detached browser process with a persistent profile and the
// wallet extension loaded, connects over its debugging endpoint, and records
// the endpoint (and pid) for reattachment and teardown.
func (m *Manager) launch(cfg LaunchConfig) (*Session, error) {
	execPath, err := chromiumExecutable(cfg.BrowserPath)
	if err != nil {
		return nil, err
	}

	if cfg.UserDataDir != "" {
		if err := os.MkdirAll(cfg.UserDataDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create profile directory: %w", err)
		}
	}

	cmd := exec.Command(execPath, launchArgs(cfg)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start browser %s: %w", execPath, err)
	}
	pid := cmd.Process.Pid
	// Detach: the browser must outlive this process so the next invocation
	// can reattach over the debugging endpoint.
	if err := cmd.Process.Release(); err != nil {
		m.log.Warnf("failed to release browser process handle: %v", err)
	}

	endpoint := fmt.Sprintf("http://127.0.0.1:%d", cfg.DebugPort)
	browser, err := m.connectWithin(endpoint, browserStartWait)
	if err != nil {
		killProcess(pid)
		return nil, fmt.Errorf("browser did not open debugging endpoint %s: %w", endpoint, err)
	}

	session, err := m.sessionFromBrowser(browser, cfg.DebugPort, false)
	if err != nil {
		_ = browser.Close()
		killProcess(pid)
		return nil, err
	}
	session.PID = pid

	if cfg.TimeoutMs > 0 && session.PrimaryPage() != nil {
		session.PrimaryPage().SetDefaultTimeout(float64(cfg.TimeoutMs))
	}

	pointer := SessionPointer{Port: cfg.DebugPort, PID: pid, StartedAt: time.Now()}
	if err := m.pointer.Save(pointer); err != nil {
		m.log.Warnf("failed to persist session pointer: %v", err)
	}

	m.log.Infof("launched browser pid %d on port %d (headed=%v)", pid, cfg.DebugPort, cfg.Headed)
	return session, nil
}

// connectWithin retries the endpoint until the starting browser answers.
func (m *Manager) connectWithin(endpoint string, wait time.Duration) (playwright.Browser, error) {
	deadline := time.Now().Add(wait)
	for {
		browser, err := m.connect(endpoint)
		if err == nil {
			return browser, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// sessionFromBrowser builds a Session over an established CDP connection.
func (m *Manager) sessionFromBrowser(browser playwright.Browser, port int, reattached bool) (*Session, error) {
	contexts := browser.Contexts()
	var context playwright.BrowserContext
	if len(contexts) > 0 {
		context = contexts[0]
	} else {
		var err error
		context, err = browser.NewContext()
		if err != nil {
			return nil, fmt.Errorf("failed to obtain browser context: %w", err)
		}
	}

	session := &Session{
		Browser:    browser,
		Context:    context,
		Reattached: reattached,
		CreatedAt:  time.Now(),
		DebugPort:  port,
	}
	session.Listener = NewPopupListener(NewContextEvents(context), m.log)

	if primary := firstOrdinaryPage(context); primary != nil {
		session.SetPrimaryPage(primary)
	} else if page, err := context.NewPage(); err == nil {
		session.SetPrimaryPage(page)
	}

	return session, nil
}

// launchArgs builds the browser command line for a fresh launch.
func launchArgs(cfg LaunchConfig) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", cfg.DebugPort),
		fmt.Sprintf("--user-data-dir=%s", cfg.UserDataDir),
		"--no-first-run",
		"--no-default-browser-check",
		"--window-size=1280,720",
	}
	if cfg.ExtensionPath != "" {
		args = append(args,
			fmt.Sprintf("--disable-extensions-except=%s", cfg.ExtensionPath),
			fmt.Sprintf("--load-extension=%s", cfg.ExtensionPath),
		)
	}
	if !cfg.Headed {
		// Extensions require the new headless implementation.
		args = append(args, "--headless=new")
	}
	args = append(args, "about:blank")
	return args
}

// chromiumCandidates are the usual Chromium install names/locations probed
// when no explicit browser path is configured.
var chromiumCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"/usr/bin/google-chrome",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// chromiumExecutable resolves the browser binary to launch.
func chromiumExecutable(override string) (string, error) {
	if override != "" {
		if _, err := exec.LookPath(override); err != nil {
			return "", fmt.Errorf("configured browser %q is not runnable: %w", override, err)
		}
		return override, nil
	}
	for _, candidate := range chromiumCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chromium executable found; set browser_path or -browser")
}

// killProcess terminates a detached browser process, best effort.
func killProcess(pid int) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = proc.Kill()
}

// firstOrdinaryPage prefers a non-extension page as the primary page when
// attaching; extension popups must never become primary implicitly.
func firstOrdinaryPage(context playwright.BrowserContext) playwright.Page {
	var fallback playwright.Page
	for _, page := range context.Pages() {
		if page.IsClosed() {
			continue
		}
		if fallback == nil {
			fallback = page
		}
		if !IsExtensionURL(page.URL()) {
			return page
		}
	}
	return fallback
}
