// Package browser is the session and surface orchestration engine behind
// walletflow. It drives a real Chromium instance through Playwright and
// solves the timing problems that come with a wallet extension opening its
// own confirmation surfaces.
//
// # Architecture
//
// The package is built around four core concepts:
//
//  1. Manager: owns the single live Session — launched fresh with a
//     persistent profile, or reattached to a prior browser through its
//     debugging endpoint.
//  2. Surface: a narrow view over one browser page (the primary page or a
//     wallet popup). Detection of a surface never implies ownership of it.
//  3. PopupListener: a one-shot, re-armable subscription for "a new surface
//     opened". Arming happens before the triggering click so popups that
//     open and close within milliseconds are not lost.
//  4. Driver: executes one logical UI action against a surface using an
//     ordered list of locator intents with bounded retries.
//
// # Session lifecycle
//
// Sessions follow this lifecycle:
//
//  1. EnsureSession probes the persisted debugging endpoint and reattaches
//     if it answers; otherwise it starts a detached browser process with the
//     wallet extension loaded, connects over the endpoint, and records port
//     and pid in a sidecar file. The browser outlives the harness process,
//     which is what makes reattachment possible at all.
//  2. Commands operate against the primary page; wallet interactions spawn
//     popup surfaces handled through the listener.
//  3. Teardown terminates the browser and clears the sidecar, or with
//     keep-open merely disconnects. It is a no-op when nothing is live.
//
// The primary page reference is mutated only by SetPrimaryPage, never
// implicitly by event handlers, so concurrent surfaces cannot disagree
// about which page is current.
package browser
