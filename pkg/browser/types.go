package browser

import (
	"time"
)

// Strategy identifies how an Intent locates its control.
type Strategy string

const (
	// StrategyRole locates a button by its accessible name.
	StrategyRole Strategy = "role"

	// StrategyText locates an element containing the given text.
	StrategyText Strategy = "text"

	// StrategyCSS locates an element by CSS selector.
	StrategyCSS Strategy = "css"
)

// Intent is one (strategy, value) locator candidate for a logical UI
// control. A slice of intents represents synonymous ways to find the same
// control across wallet versions and languages; order expresses priority.
type Intent struct {
	Strategy Strategy
	Value    string
}

// ActionResult is the immutable outcome of one driver action.
type ActionResult struct {
	// Success is true when a click landed, or when the surface was found
	// already closed (the action's effect had completed).
	Success bool

	// Matched is the intent that succeeded, nil if none did or the surface
	// closed before a match.
	Matched *Intent

	// Retries is the number of full retry passes consumed.
	Retries int

	// SurfaceClosed marks an implicit success on an already-closed surface.
	SurfaceClosed bool

	// Reason describes the failure when Success is false.
	Reason string
}

// Control is a located UI element on a surface.
type Control interface {
	Visible() (bool, error)
	Enabled() (bool, error)
	ScrollIntoView() error
	Click(timeout time.Duration, force bool) error
	Fill(value string, timeout time.Duration) error
}

// Surface is the subset of a browser page the engine drives. Both the
// primary page and wallet popups are surfaces. A Surface never owns the
// underlying page; closing is always the browser's or the user's doing.
type Surface interface {
	URL() string
	IsClosed() bool

	// Find locates the control for an intent. found is false when nothing
	// matches; err reports evaluation problems, not absence.
	Find(intent Intent) (ctl Control, found bool, err error)

	// Screenshot captures the surface to the given file path.
	Screenshot(path string) error
}

// SurfaceEvents is the event source the popup listener subscribes to.
type SurfaceEvents interface {
	// OnSurface registers a callback invoked for every newly opened
	// surface. Registration lasts for the session's lifetime.
	OnSurface(fn func(Surface))

	// OpenSurfaces lists the currently open surfaces.
	OpenSurfaces() []Surface
}

// Default tuning values.
const (
	DefaultActionRetries = 3
	DefaultRetryBackoff  = 800 * time.Millisecond
	DefaultClickTimeout  = 2 * time.Second
	DefaultPopupTimeout  = 30 * time.Second
)

// DefaultPopupMarkers are URL glob patterns identifying wallet popup
// surfaces among already-open pages. Matching is case-insensitive.
var DefaultPopupMarkers = []string{"*notification*", "*popup*", "*confirm*"}
