package wallet

import (
	"errors"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/walletflow/pkg/browser"
	"github.com/entrhq/walletflow/pkg/logging"
)

func testLogger() *logging.Logger {
	l, _ := logging.NewLogger("wallet-test")
	return l
}

// testDriver returns a driver with no backoff so failure paths stay fast.
func testDriver() *browser.Driver {
	d := browser.NewDriver(testLogger())
	d.Backoff = 0
	return d
}

// fakeControl is a clickable control whose clicks can close its surface.
type fakeControl struct {
	surface *fakeSurface
	visible bool
	enabled bool
	fills   []string
	clicks  int
}

func (c *fakeControl) Visible() (bool, error) { return c.visible, nil }
func (c *fakeControl) Enabled() (bool, error) { return c.enabled, nil }
func (c *fakeControl) ScrollIntoView() error  { return nil }

func (c *fakeControl) Click(timeout time.Duration, force bool) error {
	c.clicks++
	c.surface.recordClick()
	return nil
}

func (c *fakeControl) Fill(value string, timeout time.Duration) error {
	c.fills = append(c.fills, value)
	return nil
}

// fakeSurface simulates a wallet popup: it exposes one affirmative control
// per "screen" and closes itself after a configured number of landed clicks,
// the way a real popup closes after its last confirmation.
type fakeSurface struct {
	mu     sync.Mutex
	url    string
	closed bool

	// control served for every matching intent; nil means nothing matches.
	control *fakeControl

	// matching is the set of intent values the control answers to.
	matching map[string]bool

	// closeAfterClicks closes the surface once this many clicks landed
	// (0 = never close on click).
	closeAfterClicks int
	totalClicks      int

	finds       int
	screenshots []string
}

func newFakeSurface(url string) *fakeSurface {
	s := &fakeSurface{url: url, matching: make(map[string]bool)}
	s.control = &fakeControl{surface: s, visible: true, enabled: true}
	return s
}

// withAffirmative makes the surface answer the given intent values and
// close after n clicks.
func (s *fakeSurface) withAffirmative(n int, values ...string) *fakeSurface {
	s.closeAfterClicks = n
	for _, v := range values {
		s.matching[v] = true
	}
	return s
}

func (s *fakeSurface) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *fakeSurface) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSurface) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSurface) recordClick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalClicks++
	if s.closeAfterClicks > 0 && s.totalClicks >= s.closeAfterClicks {
		s.closed = true
	}
}

func (s *fakeSurface) Find(intent browser.Intent) (browser.Control, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.control != nil && s.matching[intent.Value] {
		return s.control, true, nil
	}
	return nil, false, nil
}

func (s *fakeSurface) Screenshot(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenshots = append(s.screenshots, path)
	return nil
}

// fakeWaiter scripts the popup listener's behavior for flow tests.
type fakeWaiter struct {
	surface browser.Surface
	err     error
	open    int

	// delay defers delivery, simulating a popup opening mid-wait.
	delay time.Duration
}

func (w *fakeWaiter) ConsumePendingOrWait(timeout time.Duration) (browser.Surface, error) {
	if w.delay > 0 {
		time.Sleep(w.delay)
	}
	if w.err != nil {
		return nil, w.err
	}
	return w.surface, nil
}

func (w *fakeWaiter) OpenSurfaceCount() int { return w.open }

// Stubs over the playwright interfaces, enough to drive the default
// resolution chain against an attached browser context.

type stubPage struct {
	playwright.Page
	url string
}

func (p *stubPage) URL() string { return p.url }

type stubContext struct {
	playwright.BrowserContext
	pages []playwright.Page
}

func (c *stubContext) Pages() []playwright.Page            { return c.pages }
func (c *stubContext) ServiceWorkers() []playwright.Worker { return nil }

func (c *stubContext) NewPage() (playwright.Page, error) {
	return nil, errors.New("no new pages in tests")
}

// attachedSession builds a reattached-style session whose context holds the
// given pages.
func attachedSession(urls ...string) *browser.Session {
	pages := make([]playwright.Page, 0, len(urls))
	for _, u := range urls {
		pages = append(pages, &stubPage{url: u})
	}
	return &browser.Session{
		Context:    &stubContext{pages: pages},
		Reattached: true,
	}
}

// fastFlow returns a flow with test-friendly timing.
func fastFlow(waiter popupWaiter, identity Identity, primary browser.Surface) *ApprovalFlow {
	flow := NewApprovalFlow(waiter, testDriver(), identity, primary, testLogger())
	flow.SettleDelay = time.Millisecond
	flow.PollInterval = time.Millisecond
	flow.CloseWait = 30 * time.Millisecond
	return flow
}
