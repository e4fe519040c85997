package wallet

import (
	"fmt"
	"net/url"
	"time"

	"github.com/entrhq/walletflow/pkg/browser"
	"github.com/entrhq/walletflow/pkg/logging"
)

// FallbackExtensionID is the last-known-good MetaMask identifier used when
// every live detection strategy fails. Identities resolved this way carry
// Unverified=true; callers must surface the degraded mode, never treat it
// as a clean resolution.
const FallbackExtensionID = "nkbihfbeogaeaoehlefnkodbefgpgknn"

// ExtensionPage is one of the wallet's well-known internal pages. The set is
// a closed enumeration supplied by configuration, not discovered.
type ExtensionPage string

const (
	PagePopup     ExtensionPage = "popup.html"
	PageHome      ExtensionPage = "home.html"
	PageImportKey ExtensionPage = "home.html#new-account/import"
)

// Identity is the wallet extension's resolved runtime identifier.
type Identity struct {
	// ID is the extension's opaque runtime identifier.
	ID string

	// Unverified marks an identity taken from the hard-coded fallback
	// rather than observed live.
	Unverified bool
}

// URL builds the addressable URL for one of the extension's internal pages.
func (id Identity) URL(page ExtensionPage) string {
	return fmt.Sprintf("%s://%s/%s", browser.ExtensionScheme, id.ID, page)
}

// Owns reports whether a surface URL belongs to this extension. An
// unverified identity can only check the scheme: the fallback ID may not
// match a legitimately different wallet build.
func (id Identity) Owns(rawURL string) bool {
	if !browser.IsExtensionURL(rawURL) {
		return false
	}
	if id.Unverified {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Host == id.ID
}

// resolveStrategy attempts one way of detecting the extension identifier.
type resolveStrategy func() (string, bool)

// Resolver determines the installed wallet extension's runtime identifier.
// Resolution happens once per session; the caller caches the result.
type Resolver struct {
	// WorkerWait bounds the service-worker observation strategy.
	WorkerWait time.Duration

	// PollInterval is the service-worker polling cadence.
	PollInterval time.Duration

	// Fallback overrides FallbackExtensionID when set.
	Fallback string

	log   *logging.Logger
	sleep func(time.Duration)

	// strategies overrides the live detection chain; tests inject their
	// own. When nil, Resolve builds the default chain from the session.
	strategies []resolveStrategy
}

// NewResolver creates a resolver with default bounds.
func NewResolver(log *logging.Logger) *Resolver {
	return &Resolver{
		WorkerWait:   5 * time.Second,
		PollInterval: 250 * time.Millisecond,
		log:          log,
		sleep:        time.Sleep,
	}
}

// Resolve tries each detection strategy in order and stops at the first
// success. When all fail it returns the last-known identifier flagged
// unverified — an explicit degraded mode, logged loudly.
func (r *Resolver) Resolve(session *browser.Session) Identity {
	strategies := r.strategies
	if strategies == nil {
		strategies = []resolveStrategy{
			func() (string, bool) { return r.fromServiceWorkers(session) },
			func() (string, bool) { return r.fromOpenSurfaces(session) },
			func() (string, bool) { return r.fromExtensionsPage(session) },
		}
	}

	for _, strategy := range strategies {
		if id, ok := strategy(); ok {
			r.log.Infof("resolved extension id %s", id)
			return Identity{ID: id}
		}
	}

	fallback := r.Fallback
	if fallback == "" {
		fallback = FallbackExtensionID
	}
	r.log.Warnf("all extension detection strategies failed; using unverified fallback id %s", fallback)
	return Identity{ID: fallback, Unverified: true}
}

// fromServiceWorkers observes the extension's background worker registration
// within a bounded wait.
func (r *Resolver) fromServiceWorkers(session *browser.Session) (string, bool) {
	deadline := time.Now().Add(r.WorkerWait)
	for {
		for _, worker := range session.Context.ServiceWorkers() {
			if id, ok := extensionIDFromURL(worker.URL()); ok {
				return id, true
			}
		}
		if time.Now().After(deadline) {
			return "", false
		}
		r.sleep(r.PollInterval)
	}
}

// fromOpenSurfaces scans currently open surfaces for one whose URL scheme
// marks it as belonging to an extension. This is the path that preserves a
// previously resolved identity across reattachment.
func (r *Resolver) fromOpenSurfaces(session *browser.Session) (string, bool) {
	for _, page := range session.Context.Pages() {
		if id, ok := extensionIDFromURL(page.URL()); ok {
			return id, true
		}
	}
	return "", false
}

// fromExtensionsPage opens the internal extensions listing and scrapes the
// identifier from its rendered list.
func (r *Resolver) fromExtensionsPage(session *browser.Session) (string, bool) {
	page, err := session.Context.NewPage()
	if err != nil {
		r.log.Warnf("failed to open extensions page: %v", err)
		return "", false
	}
	defer page.Close()

	if _, err := page.Goto("chrome://extensions"); err != nil {
		r.log.Warnf("failed to navigate to extensions list: %v", err)
		return "", false
	}

	// The listing renders inside nested shadow roots; walk them in-page.
	result, err := page.Evaluate(`(() => {
		const manager = document.querySelector('extensions-manager');
		if (!manager || !manager.shadowRoot) return [];
		const list = manager.shadowRoot.querySelector('extensions-item-list');
		if (!list || !list.shadowRoot) return [];
		return Array.from(list.shadowRoot.querySelectorAll('extensions-item'))
			.map(item => item.id);
	})()`)
	if err != nil {
		r.log.Warnf("failed to scrape extensions list: %v", err)
		return "", false
	}

	ids, ok := result.([]interface{})
	if !ok {
		return "", false
	}
	for _, raw := range ids {
		if id, ok := raw.(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// extensionIDFromURL extracts the identifier from an extension-scheme URL.
func extensionIDFromURL(rawURL string) (string, bool) {
	if !browser.IsExtensionURL(rawURL) {
		return "", false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	return parsed.Host, true
}
