package browser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stubs over the playwright interfaces: only the methods the attach path
// touches are implemented; anything else panics through the nil embed.

type stubPage struct {
	playwright.Page
	url    string
	closed bool
}

func (p *stubPage) URL() string    { return p.url }
func (p *stubPage) IsClosed() bool { return p.closed }

func (p *stubPage) Close(options ...playwright.PageCloseOptions) error {
	p.closed = true
	return nil
}

type stubBrowserContext struct {
	playwright.BrowserContext
	pages  []playwright.Page
	closed bool
}

func (c *stubBrowserContext) Pages() []playwright.Page        { return c.pages }
func (c *stubBrowserContext) OnPage(fn func(playwright.Page)) {}

func (c *stubBrowserContext) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.closed = true
	return nil
}

type stubBrowser struct {
	playwright.Browser
	contexts []playwright.BrowserContext
	closed   bool
}

func (b *stubBrowser) Contexts() []playwright.BrowserContext { return b.contexts }

func (b *stubBrowser) Close(options ...playwright.BrowserCloseOptions) error {
	b.closed = true
	return nil
}

func testManager(t *testing.T) (*Manager, *PointerStore) {
	t.Helper()
	store, err := NewPointerStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	return NewManager(store, testLogger()), store
}

func cdpBrowser(urls ...string) *stubBrowser {
	pages := make([]playwright.Page, 0, len(urls))
	for _, u := range urls {
		pages = append(pages, &stubPage{url: u})
	}
	return &stubBrowser{contexts: []playwright.BrowserContext{&stubBrowserContext{pages: pages}}}
}

func TestTryReattachPrefersOrdinaryPrimaryPage(t *testing.T) {
	manager, store := testManager(t)
	require.NoError(t, store.Save(SessionPointer{Port: 9222, PID: 4242, StartedAt: time.Now()}))

	var dialed string
	browser := cdpBrowser(
		"chrome-extension://abc123/popup.html",
		"https://app.example.com/swap",
	)
	manager.connect = func(endpoint string) (playwright.Browser, error) {
		dialed = endpoint
		return browser, nil
	}

	session := manager.tryReattach(LaunchConfig{DebugPort: 9300})

	require.NotNil(t, session)
	assert.Equal(t, "http://127.0.0.1:9222", dialed, "recorded port wins over the configured one")
	assert.True(t, session.Reattached)
	assert.Equal(t, 4242, session.PID)
	assert.Equal(t, 9222, session.DebugPort)
	require.NotNil(t, session.Listener)
	require.NotNil(t, session.PrimaryPage())
	assert.Equal(t, "https://app.example.com/swap", session.PrimaryPage().URL(),
		"an extension popup must never become primary implicitly")
}

func TestTryReattachExtensionOnlySurfaceStaysAddressable(t *testing.T) {
	manager, store := testManager(t)
	require.NoError(t, store.Save(SessionPointer{Port: 9222, StartedAt: time.Now()}))

	manager.connect = func(endpoint string) (playwright.Browser, error) {
		return cdpBrowser("chrome-extension://abc123/home.html"), nil
	}

	session := manager.tryReattach(LaunchConfig{})

	require.NotNil(t, session)
	require.NotNil(t, session.PrimaryPage())
	assert.Equal(t, "chrome-extension://abc123/home.html", session.PrimaryPage().URL())
}

func TestTryReattachDeadEndpointClearsPointer(t *testing.T) {
	manager, store := testManager(t)
	require.NoError(t, store.Save(SessionPointer{Port: 9222, PID: 4242, StartedAt: time.Now()}))

	manager.connect = func(endpoint string) (playwright.Browser, error) {
		return nil, errors.New("connection refused")
	}

	session := manager.tryReattach(LaunchConfig{})
	assert.Nil(t, session)

	pointer, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, pointer, "a pointer to a dead endpoint must not survive")
}

func TestTryReattachWithoutPointerDoesNotDial(t *testing.T) {
	manager, _ := testManager(t)

	dialed := false
	manager.connect = func(endpoint string) (playwright.Browser, error) {
		dialed = true
		return nil, errors.New("unexpected dial")
	}

	assert.Nil(t, manager.tryReattach(LaunchConfig{}))
	assert.False(t, dialed)
}

func TestAttachExisting(t *testing.T) {
	manager, store := testManager(t)
	manager.connect = func(endpoint string) (playwright.Browser, error) {
		return nil, errors.New("connection refused")
	}

	// Nothing recorded: nothing to attach to, and no launch happens.
	session, ok, err := manager.AttachExisting(LaunchConfig{DebugPort: 9222})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, session)

	require.NoError(t, store.Save(SessionPointer{Port: 9222, StartedAt: time.Now()}))
	manager.connect = func(endpoint string) (playwright.Browser, error) {
		return cdpBrowser("https://app.example.com"), nil
	}

	session, ok, err = manager.AttachExisting(LaunchConfig{DebugPort: 9222})
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, session)

	// Attached session is cached; later calls return the same one.
	again, ok, err := manager.AttachExisting(LaunchConfig{DebugPort: 9222})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, session, again)
}

func TestTeardownKeepOpenLeavesPointer(t *testing.T) {
	manager, store := testManager(t)
	require.NoError(t, store.Save(SessionPointer{Port: 9222, PID: 4242, StartedAt: time.Now()}))

	browser := cdpBrowser("https://app.example.com")
	manager.connect = func(endpoint string) (playwright.Browser, error) {
		return browser, nil
	}

	_, ok, err := manager.AttachExisting(LaunchConfig{})
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, manager.Teardown(true))

	assert.True(t, browser.closed, "keep-open disconnects but does not terminate")
	pointer, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, pointer, "keep-open preserves the pointer for the next invocation")
	assert.Equal(t, 9222, pointer.Port)

	_, err = manager.Session()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTeardownClosesSurfacesAndClearsPointer(t *testing.T) {
	manager, store := testManager(t)
	require.NoError(t, store.Save(SessionPointer{Port: 9222, StartedAt: time.Now()}))

	browser := cdpBrowser("https://app.example.com", "chrome-extension://abc123/popup.html")
	manager.connect = func(endpoint string) (playwright.Browser, error) {
		return browser, nil
	}

	_, ok, err := manager.AttachExisting(LaunchConfig{})
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, manager.Teardown(false))

	context := browser.contexts[0].(*stubBrowserContext)
	assert.True(t, context.closed)
	for _, page := range context.pages {
		assert.True(t, page.IsClosed())
	}
	assert.True(t, browser.closed)

	pointer, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, pointer, "a full teardown removes the pointer")
}

func TestLaunchArgs(t *testing.T) {
	cfg := LaunchConfig{
		UserDataDir:   "/tmp/profile",
		ExtensionPath: "/tmp/wallet",
		DebugPort:     9222,
	}

	args := launchArgs(cfg)
	assert.Contains(t, args, "--remote-debugging-port=9222")
	assert.Contains(t, args, "--user-data-dir=/tmp/profile")
	assert.Contains(t, args, "--disable-extensions-except=/tmp/wallet")
	assert.Contains(t, args, "--load-extension=/tmp/wallet")
	assert.Contains(t, args, "--headless=new")

	cfg.Headed = true
	cfg.ExtensionPath = ""
	args = launchArgs(cfg)
	assert.NotContains(t, args, "--headless=new")
	for _, arg := range args {
		assert.NotContains(t, arg, "--load-extension")
	}
}

func TestChromiumExecutableOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake-chromium")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))

	resolved, err := chromiumExecutable(path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	_, err = chromiumExecutable(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
