package browser

import (
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/walletflow/pkg/logging"
)

// PopupListener is a one-shot, re-armable subscription for "a new surface
// opened" on the session's context.
//
// A wallet-triggered popup can appear and auto-dismiss (previously approved
// origin) faster than a caller can react after clicking a trigger, so the
// listener must be armed before the trigger action. The pending future holds
// the surface reference even after the browser closes it; closed-but-known
// surfaces are still valid results.
//
// At most one pending subscription exists at a time: arming again replaces
// (cancels) the prior pending future, so a single future popup can never be
// resolved twice.
type PopupListener struct {
	mu         sync.Mutex
	events     SurfaceEvents
	subscribed bool
	pending    chan Surface

	markers []glob.Glob
	log     *logging.Logger
}

// NewPopupListener creates a listener over the given event source using the
// default popup URL markers.
func NewPopupListener(events SurfaceEvents, log *logging.Logger) *PopupListener {
	markers := make([]glob.Glob, 0, len(DefaultPopupMarkers))
	for _, pattern := range DefaultPopupMarkers {
		markers = append(markers, glob.MustCompile(pattern))
	}
	return &PopupListener{
		events:  events,
		markers: markers,
		log:     log,
	}
}

// Arm registers a one-shot subscription for the next new surface and returns
// immediately. Any prior pending subscription is cancelled first.
func (l *PopupListener) Arm() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.subscribeLocked()
	l.pending = make(chan Surface, 1)
	l.log.Debugf("popup listener armed")
}

// Disarm cancels the pending subscription if one exists. Idempotent.
func (l *PopupListener) Disarm() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = nil
}

// Armed reports whether a pending subscription exists.
func (l *PopupListener) Armed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending != nil
}

// OpenSurfaceCount reports how many surfaces are currently open. Included in
// timeout diagnostics so the agent can judge whether the trigger fired.
func (l *PopupListener) OpenSurfaceCount() int {
	return len(l.events.OpenSurfaces())
}

// ConsumePendingOrWait returns the next popup surface:
//
//  1. A previously armed subscription that already resolved is consumed
//     immediately.
//  2. Otherwise a matching popup among currently open surfaces (by URL
//     marker) is returned immediately — the trigger and the approval call
//     arrive as separate commands, so the popup may predate this call.
//  3. Otherwise the pending future (armed fresh if none exists) races a
//     timer; whichever resolves first wins and the listener is disarmed.
func (l *PopupListener) ConsumePendingOrWait(timeout time.Duration) (Surface, error) {
	l.mu.Lock()
	ch := l.pending
	l.mu.Unlock()

	if ch != nil {
		select {
		case s := <-ch:
			l.Disarm()
			l.log.Infof("popup consumed from pending subscription: %s", s.URL())
			return s, nil
		default:
		}
	}

	if s := l.matchExisting(); s != nil {
		l.Disarm()
		l.log.Infof("popup matched among open surfaces: %s", s.URL())
		return s, nil
	}

	if ch == nil {
		l.Arm()
		l.mu.Lock()
		ch = l.pending
		l.mu.Unlock()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s := <-ch:
		l.Disarm()
		l.log.Infof("popup arrived while waiting: %s", s.URL())
		return s, nil
	case <-timer.C:
		l.Disarm()
		return nil, ErrPopupTimeout
	}
}

// subscribeLocked registers the context-wide page handler once per session.
// Delivery honors only the currently pending future, so stale handlers can
// never resolve a replaced subscription.
func (l *PopupListener) subscribeLocked() {
	if l.subscribed {
		return
	}
	l.events.OnSurface(l.deliver)
	l.subscribed = true
}

func (l *PopupListener) deliver(s Surface) {
	l.mu.Lock()
	ch := l.pending
	l.mu.Unlock()

	if ch == nil {
		return
	}
	select {
	case ch <- s:
	default:
		// Future already resolved; later surfaces belong to a new arm.
	}
}

// matchExisting scans currently open surfaces for one whose URL carries a
// popup marker. Closed-but-still-listed surfaces are valid matches.
func (l *PopupListener) matchExisting() Surface {
	for _, s := range l.events.OpenSurfaces() {
		url := strings.ToLower(s.URL())
		for _, marker := range l.markers {
			if marker.Match(url) {
				return s
			}
		}
	}
	return nil
}
