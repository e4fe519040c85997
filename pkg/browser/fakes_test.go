package browser

import (
	"sync"
	"time"

	"github.com/entrhq/walletflow/pkg/logging"
)

// testLogger returns a logger for tests; file logging failures fall back to
// stderr, so this never returns nil.
func testLogger() *logging.Logger {
	l, _ := logging.NewLogger("browser-test")
	return l
}

// fakeControl is a scriptable Control for driver tests.
type fakeControl struct {
	visible bool
	enabled bool

	visibleErr error
	enabledErr error

	clickErr       error // error for direct clicks
	forcedClickErr error // error for forced clicks

	fillErr error

	directClicks int
	forcedClicks int
	fills        []string
	scrolled     int
}

func (c *fakeControl) Visible() (bool, error) { return c.visible, c.visibleErr }
func (c *fakeControl) Enabled() (bool, error) { return c.enabled, c.enabledErr }

func (c *fakeControl) ScrollIntoView() error {
	c.scrolled++
	return nil
}

func (c *fakeControl) Click(timeout time.Duration, force bool) error {
	if force {
		c.forcedClicks++
		return c.forcedClickErr
	}
	c.directClicks++
	return c.clickErr
}

func (c *fakeControl) Fill(value string, timeout time.Duration) error {
	if c.fillErr != nil {
		return c.fillErr
	}
	c.fills = append(c.fills, value)
	return nil
}

// fakeSurface maps intents to controls and can be closed mid-test.
type fakeSurface struct {
	mu       sync.Mutex
	url      string
	closed   bool
	controls map[Intent]*fakeControl
	findErr  error

	// closeAfterFinds closes the surface after this many Find calls when
	// positive, simulating a popup dismissed while the driver works.
	closeAfterFinds int
	finds           int

	screenshots []string
	shotErr     error
}

func newFakeSurface(url string) *fakeSurface {
	return &fakeSurface{url: url, controls: make(map[Intent]*fakeControl)}
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

func (s *fakeSurface) Find(intent Intent) (Control, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finds++
	if s.closeAfterFinds > 0 && s.finds >= s.closeAfterFinds {
		s.closed = true
	}
	if s.findErr != nil {
		return nil, false, s.findErr
	}
	ctl, ok := s.controls[intent]
	if !ok {
		return nil, false, nil
	}
	return ctl, true, nil
}

func (s *fakeSurface) Screenshot(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shotErr != nil {
		return s.shotErr
	}
	s.screenshots = append(s.screenshots, path)
	return nil
}

// fakeEvents is a scriptable SurfaceEvents source.
type fakeEvents struct {
	mu       sync.Mutex
	handlers []func(Surface)
	open     []Surface
}

func (e *fakeEvents) OnSurface(fn func(Surface)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, fn)
}

func (e *fakeEvents) OpenSurfaces() []Surface {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Surface(nil), e.open...)
}

func (e *fakeEvents) addOpen(s Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = append(e.open, s)
}

func (e *fakeEvents) emit(s Surface) {
	e.mu.Lock()
	handlers := append([](func(Surface))(nil), e.handlers...)
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(s)
	}
}

func (e *fakeEvents) handlerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

// testDriver returns a driver that does not sleep between retries.
func testDriver() *Driver {
	d := NewDriver(testLogger())
	d.sleep = func(time.Duration) {}
	return d
}
