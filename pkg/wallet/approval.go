package wallet

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/entrhq/walletflow/pkg/browser"
	"github.com/entrhq/walletflow/pkg/logging"
)

// FlowState is one state of the approval flow machine.
type FlowState string

const (
	StateAwaitingPopup   FlowState = "awaiting_popup"
	StatePopupOpened     FlowState = "popup_opened"
	StateFirstApproval   FlowState = "first_approval_attempted"
	StateAdditionalCheck FlowState = "additional_approval_check"
	StateAwaitingClose   FlowState = "awaiting_close"
	StateClosed          FlowState = "closed"
	StateTimedOut        FlowState = "timed_out"
)

// Flow error messages surfaced verbatim in result records.
const (
	errNoPopup        = "No popup window detected within timeout"
	errNotExtension   = "Popup is not a Chrome extension"
	hintCheckTrigger  = "ensure the trigger was clicked first"
	hintCheckIdentity = "an unrelated surface (e.g. a new tab) opened instead of the wallet popup"
)

// ApprovalResult is the outcome of driving one popup to completion.
type ApprovalResult struct {
	// Success is false only for the two hard failures: no popup appeared,
	// or the surface was not extension-owned. Click flakiness never fails
	// the flow.
	Success bool

	// Approved reports whether at least one affirmative click landed, or
	// the popup closed on its own (prior approval already in effect).
	Approved bool

	// PopupClosed reports whether the surface closed by the end of the flow.
	PopupClosed bool

	// State is the terminal machine state.
	State FlowState

	// Error and Hint are set on reported failures.
	Error string
	Hint  string

	// URL is the popup's URL when one was seen.
	URL string

	// OpenSurfaces counts surfaces open at timeout, so the agent can judge
	// whether the trigger click actually fired.
	OpenSurfaces int

	// StepsApproved counts confirmation screens where a click landed.
	StepsApproved int

	// Screenshots lists diagnostic captures taken during the flow.
	Screenshots []string
}

// popupWaiter is the listener contract the flow depends on.
type popupWaiter interface {
	ConsumePendingOrWait(timeout time.Duration) (browser.Surface, error)
	OpenSurfaceCount() int
}

// ApprovalFlow drives a wallet popup through however many sequential
// confirmation screens the interaction requires.
type ApprovalFlow struct {
	// SettleDelay is the fixed wait for a follow-up screen (e.g. a
	// signature request after a connect) to render in the same surface.
	SettleDelay time.Duration

	// PollInterval is the close-polling cadence.
	PollInterval time.Duration

	// CloseWait bounds the total close-polling time.
	CloseWait time.Duration

	// ScreenshotDir receives diagnostic captures. Empty disables them.
	ScreenshotDir string

	listener popupWaiter
	driver   *browser.Driver
	identity Identity
	primary  browser.Surface

	log   *logging.Logger
	sleep func(time.Duration)
}

// NewApprovalFlow creates a flow over the given listener and driver. The
// primary surface is only used for the post-approval diagnostic screenshot
// and may be nil.
func NewApprovalFlow(listener popupWaiter, driver *browser.Driver, identity Identity, primary browser.Surface, log *logging.Logger) *ApprovalFlow {
	return &ApprovalFlow{
		SettleDelay:  2 * time.Second,
		PollInterval: 500 * time.Millisecond,
		CloseWait:    10 * time.Second,
		listener:     listener,
		driver:       driver,
		identity:     identity,
		primary:      primary,
		log:          log,
		sleep:        time.Sleep,
	}
}

// Approve waits for the wallet popup and drives it to closure. The timeout
// bounds only the popup's appearance; the close wait is fixed. Approve never
// returns an error for expected flakiness — every outcome is a result.
func (f *ApprovalFlow) Approve(timeout time.Duration) ApprovalResult {
	result := ApprovalResult{State: StateAwaitingPopup}

	popup, err := f.listener.ConsumePendingOrWait(timeout)
	if err != nil {
		result.State = StateTimedOut
		result.Error = errNoPopup
		result.Hint = hintCheckTrigger
		result.OpenSurfaces = f.listener.OpenSurfaceCount()
		f.log.Warnf("approval timed out: %d surfaces open", result.OpenSurfaces)
		return result
	}

	result.State = StatePopupOpened
	result.URL = popup.URL()
	f.log.Infof("approval popup opened: %s", result.URL)

	// A popup that already closed means the wallet resolved the request on
	// its own (previously trusted origin); the approval effect is complete.
	if popup.IsClosed() {
		return f.finish(result, true)
	}

	if !f.identity.Owns(popup.URL()) {
		result.Error = errNotExtension
		result.Hint = hintCheckIdentity
		f.log.Warnf("rejecting non-extension surface: %s", result.URL)
		return result
	}

	f.capture(&result, popup, "popup-opened")

	// First confirmation screen, full retry budget.
	result.State = StateFirstApproval
	if action := f.driver.PerformAction(popup, ApproveIntents()); action.Success && !action.SurfaceClosed {
		result.StepsApproved++
	}
	if popup.IsClosed() {
		return f.finish(result, result.StepsApproved > 0)
	}

	// Give a chained screen (connect followed by sign) time to render in
	// the same surface, then try once more with a reduced budget.
	result.State = StateAdditionalCheck
	f.sleep(f.SettleDelay)
	reduced := f.driver.WithRetries(1)
	if action := reduced.PerformAction(popup, ApproveIntents()); action.Success && !action.SurfaceClosed {
		result.StepsApproved++
	}

	// Poll for closure, opportunistically clicking on each pass. Wallets
	// may chain three or more screens; the step count is not known ahead
	// of time, so closure is the only completion signal.
	result.State = StateAwaitingClose
	deadline := time.Now().Add(f.CloseWait)
	for {
		if popup.IsClosed() {
			return f.finish(result, result.StepsApproved > 0)
		}
		if time.Now().After(deadline) {
			break
		}
		if action := reduced.PerformAction(popup, ApproveIntents()); action.Success && !action.SurfaceClosed {
			result.StepsApproved++
		}
		if popup.IsClosed() {
			return f.finish(result, result.StepsApproved > 0)
		}
		f.sleep(f.PollInterval)
	}

	// The surface never closed. That is not a hard failure: the wallet may
	// legitimately hold the popup open (e.g. a review screen the agent
	// inspects next). Report what happened.
	result.Success = true
	result.Approved = result.StepsApproved > 0
	result.PopupClosed = false
	f.log.Warnf("popup still open after %s close wait (%d steps approved)", f.CloseWait, result.StepsApproved)
	return result
}

// finish marks the flow Closed and captures the post-approval state of the
// primary page.
func (f *ApprovalFlow) finish(result ApprovalResult, clicked bool) ApprovalResult {
	result.State = StateClosed
	result.Success = true
	result.PopupClosed = true
	// Closure without a landed click still means approval: the effect
	// completed before we could observe the button.
	result.Approved = true
	if !clicked {
		f.log.Infof("popup closed without a driver click; approval already in effect")
	}
	if f.primary != nil {
		f.capture(&result, f.primary, "post-approval")
	}
	return result
}

// capture takes a diagnostic screenshot, best effort.
func (f *ApprovalFlow) capture(result *ApprovalResult, surface browser.Surface, label string) {
	if f.ScreenshotDir == "" || surface.IsClosed() {
		return
	}
	path := filepath.Join(f.ScreenshotDir, fmt.Sprintf("%s-%d.png", label, time.Now().UnixMilli()))
	if err := surface.Screenshot(path); err != nil {
		f.log.Debugf("diagnostic screenshot failed: %v", err)
		return
	}
	result.Screenshots = append(result.Screenshots, path)
}
