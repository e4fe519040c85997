package browser

import (
	"time"

	"github.com/entrhq/walletflow/pkg/logging"
)

// Driver executes single logical UI actions against a surface using a
// prioritized, multi-strategy locator fallback chain.
//
// The driver never escalates an exhausted retry budget to an error: the
// calling agent may choose an alternative strategy (e.g. coordinate-based
// clicking), so failures are only ever reported.
type Driver struct {
	// Retries is the number of full passes over the intent list.
	Retries int

	// Backoff is the fixed sleep between retry passes.
	Backoff time.Duration

	// ClickTimeout bounds each direct click attempt.
	ClickTimeout time.Duration

	log   *logging.Logger
	sleep func(time.Duration)
}

// NewDriver creates a driver with default retry tuning.
func NewDriver(log *logging.Logger) *Driver {
	return &Driver{
		Retries:      DefaultActionRetries,
		Backoff:      DefaultRetryBackoff,
		ClickTimeout: DefaultClickTimeout,
		log:          log,
		sleep:        time.Sleep,
	}
}

// WithRetries returns a copy of the driver with a different retry budget.
// Used by the approval flow for its reduced-budget follow-up passes.
func (d *Driver) WithRetries(retries int) *Driver {
	clone := *d
	clone.Retries = retries
	return &clone
}

// PerformAction clicks the first intent (in caller-specified order) that is
// simultaneously present, visible, and enabled. A direct click is attempted
// first; on failure one forced click bypasses overlay/occlusion checks.
//
// A surface found already closed at the start of any pass is an implicit
// success: the action's effect (e.g. approval) already completed.
func (d *Driver) PerformAction(surface Surface, intents []Intent) ActionResult {
	result := ActionResult{}

	for attempt := 0; attempt < d.Retries; attempt++ {
		result.Retries = attempt
		if attempt > 0 {
			d.sleep(d.Backoff)
		}

		if surface.IsClosed() {
			result.Success = true
			result.SurfaceClosed = true
			return result
		}

		for i := range intents {
			intent := intents[i]

			ctl, ok := d.usable(surface, intent)
			if !ok {
				continue
			}

			if err := ctl.Click(d.ClickTimeout, false); err != nil {
				d.log.Debugf("direct click failed for %s=%q, forcing: %v", intent.Strategy, intent.Value, err)
				if err := ctl.Click(d.ClickTimeout, true); err != nil {
					d.log.Debugf("forced click failed for %s=%q: %v", intent.Strategy, intent.Value, err)
					continue
				}
			}

			d.log.Infof("clicked %s=%q (attempt %d)", intent.Strategy, intent.Value, attempt+1)
			result.Success = true
			result.Matched = &intent
			return result
		}
	}

	result.Retries = d.Retries
	result.Reason = "no matching control after retries"
	return result
}

// PerformFill fills the first usable intent with the given value. Same
// retry and implicit-close semantics as PerformAction.
func (d *Driver) PerformFill(surface Surface, intents []Intent, value string) ActionResult {
	result := ActionResult{}

	for attempt := 0; attempt < d.Retries; attempt++ {
		result.Retries = attempt
		if attempt > 0 {
			d.sleep(d.Backoff)
		}

		if surface.IsClosed() {
			result.Success = true
			result.SurfaceClosed = true
			return result
		}

		for i := range intents {
			intent := intents[i]

			ctl, ok := d.usable(surface, intent)
			if !ok {
				continue
			}

			if err := ctl.Fill(value, d.ClickTimeout); err != nil {
				d.log.Debugf("fill failed for %s=%q: %v", intent.Strategy, intent.Value, err)
				continue
			}

			result.Success = true
			result.Matched = &intent
			return result
		}
	}

	result.Retries = d.Retries
	result.Reason = "no matching control after retries"
	return result
}

// usable locates an intent's control and gates it on visibility and enabled
// state, scrolling it into view when it passes.
func (d *Driver) usable(surface Surface, intent Intent) (Control, bool) {
	ctl, found, err := surface.Find(intent)
	if err != nil {
		d.log.Debugf("find failed for %s=%q: %v", intent.Strategy, intent.Value, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	visible, err := ctl.Visible()
	if err != nil || !visible {
		return nil, false
	}
	enabled, err := ctl.Enabled()
	if err != nil || !enabled {
		return nil, false
	}

	// Best effort; an unscrollable element can still be force-clicked.
	_ = ctl.ScrollIntoView()

	return ctl, true
}
