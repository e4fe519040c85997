package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// pageSurface adapts a Playwright page to the Surface interface.
type pageSurface struct {
	page playwright.Page
}

// WrapPage exposes a Playwright page as a Surface.
func WrapPage(page playwright.Page) Surface {
	return &pageSurface{page: page}
}

func (s *pageSurface) URL() string {
	return s.page.URL()
}

func (s *pageSurface) IsClosed() bool {
	return s.page.IsClosed()
}

func (s *pageSurface) Find(intent Intent) (Control, bool, error) {
	var locator playwright.Locator

	switch intent.Strategy {
	case StrategyRole:
		locator = s.page.GetByRole("button", playwright.PageGetByRoleOptions{
			Name: intent.Value,
		}).First()
	case StrategyText:
		locator = s.page.GetByText(intent.Value).First()
	case StrategyCSS:
		locator = s.page.Locator(intent.Value).First()
	default:
		return nil, false, fmt.Errorf("unknown locator strategy %q", intent.Strategy)
	}

	count, err := locator.Count()
	if err != nil {
		return nil, false, fmt.Errorf("locator count failed: %w", err)
	}
	if count == 0 {
		return nil, false, nil
	}

	return &locatorControl{locator: locator}, true, nil
}

func (s *pageSurface) Screenshot(path string) error {
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}

// locatorControl adapts a Playwright locator to the Control interface.
type locatorControl struct {
	locator playwright.Locator
}

func (c *locatorControl) Visible() (bool, error) {
	return c.locator.IsVisible()
}

func (c *locatorControl) Enabled() (bool, error) {
	return c.locator.IsEnabled()
}

func (c *locatorControl) ScrollIntoView() error {
	return c.locator.ScrollIntoViewIfNeeded()
}

func (c *locatorControl) Click(timeout time.Duration, force bool) error {
	opts := playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}
	if force {
		opts.Force = playwright.Bool(true)
	}
	return c.locator.Click(opts)
}

func (c *locatorControl) Fill(value string, timeout time.Duration) error {
	return c.locator.Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

// contextEvents adapts a Playwright browser context to SurfaceEvents.
type contextEvents struct {
	ctx playwright.BrowserContext
}

// NewContextEvents exposes a browser context's page events as SurfaceEvents.
func NewContextEvents(ctx playwright.BrowserContext) SurfaceEvents {
	return &contextEvents{ctx: ctx}
}

func (e *contextEvents) OnSurface(fn func(Surface)) {
	e.ctx.OnPage(func(page playwright.Page) {
		fn(WrapPage(page))
	})
}

func (e *contextEvents) OpenSurfaces() []Surface {
	pages := e.ctx.Pages()
	surfaces := make([]Surface, 0, len(pages))
	for _, page := range pages {
		surfaces = append(surfaces, WrapPage(page))
	}
	return surfaces
}
