// Package wallet drives the wallet extension itself: resolving its runtime
// identity, walking its multi-step confirmation popups to completion, and
// issuing provider calls (network switch, address query) on the primary
// page.
//
// The approval flow is a state machine over a single popup's lifetime. A
// wallet interaction may chain an unknown number of confirmation screens
// (connect, then network add, then sign) inside the same surface; the flow
// keeps opportunistically clicking affirmative controls until the surface
// closes, which is the wallet's own signal of natural completion. No
// individual click failure is fatal — only "the popup never appeared" and
// "the popup is not an extension surface" fail the flow as a whole, and
// even those are reported rather than thrown.
package wallet
