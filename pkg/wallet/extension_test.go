package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityURLTemplate(t *testing.T) {
	id := Identity{ID: "abc123"}

	tests := []struct {
		page     ExtensionPage
		expected string
	}{
		{PagePopup, "chrome-extension://abc123/popup.html"},
		{PageHome, "chrome-extension://abc123/home.html"},
		{PageImportKey, "chrome-extension://abc123/home.html#new-account/import"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, id.URL(tt.page))
	}
}

func TestIdentityOwns(t *testing.T) {
	verified := Identity{ID: "abc123"}
	unverified := Identity{ID: "abc123", Unverified: true}

	tests := []struct {
		name     string
		identity Identity
		url      string
		owns     bool
	}{
		{"verified own page", verified, "chrome-extension://abc123/popup.html", true},
		{"verified other extension", verified, "chrome-extension://zzz999/popup.html", false},
		{"verified web page", verified, "https://example.com/popup.html", false},
		{"unverified any extension", unverified, "chrome-extension://zzz999/popup.html", true},
		{"unverified web page", unverified, "https://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.owns, tt.identity.Owns(tt.url))
		})
	}
}

func TestExtensionIDFromURL(t *testing.T) {
	id, ok := extensionIDFromURL("chrome-extension://abc123/home.html")
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)

	_, ok = extensionIDFromURL("https://example.com")
	assert.False(t, ok)

	_, ok = extensionIDFromURL("chrome-extension://")
	assert.False(t, ok)
}

func TestResolveFirstStrategyWins(t *testing.T) {
	resolver := NewResolver(testLogger())
	second := false
	resolver.strategies = []resolveStrategy{
		func() (string, bool) { return "from-worker", true },
		func() (string, bool) { second = true; return "from-pages", true },
	}

	identity := resolver.Resolve(nil)

	assert.Equal(t, "from-worker", identity.ID)
	assert.False(t, identity.Unverified)
	assert.False(t, second, "resolution stops at the first success")
}

func TestResolveFallsThroughStrategies(t *testing.T) {
	resolver := NewResolver(testLogger())
	resolver.strategies = []resolveStrategy{
		func() (string, bool) { return "", false },
		func() (string, bool) { return "from-pages", true },
	}

	identity := resolver.Resolve(nil)
	assert.Equal(t, "from-pages", identity.ID)
	assert.False(t, identity.Unverified)
}

func TestResolveAllStrategiesFailUsesFlaggedFallback(t *testing.T) {
	resolver := NewResolver(testLogger())
	resolver.strategies = []resolveStrategy{
		func() (string, bool) { return "", false },
	}

	identity := resolver.Resolve(nil)

	assert.Equal(t, FallbackExtensionID, identity.ID)
	assert.True(t, identity.Unverified, "fallback must be an explicit degraded mode")
}

func TestResolveReattachedSessionFromOpenSurfaces(t *testing.T) {
	resolver := NewResolver(testLogger())
	resolver.WorkerWait = 0
	session := attachedSession(
		"https://app.example.com/swap",
		"chrome-extension://abc123/home.html",
	)

	identity := resolver.Resolve(session)

	assert.Equal(t, "abc123", identity.ID, "an open extension surface re-establishes the identity")
	assert.False(t, identity.Unverified)
}

func TestResolveReattachedSessionWithoutExtensionSurfaceFallsBack(t *testing.T) {
	resolver := NewResolver(testLogger())
	resolver.WorkerWait = 0
	session := attachedSession("https://app.example.com/swap", "about:blank")

	identity := resolver.Resolve(session)

	assert.Equal(t, FallbackExtensionID, identity.ID)
	assert.True(t, identity.Unverified, "without a live observation the identity must stay flagged")
}

func TestResolveCustomFallback(t *testing.T) {
	resolver := NewResolver(testLogger())
	resolver.Fallback = "custom-last-known"
	resolver.strategies = []resolveStrategy{
		func() (string, bool) { return "", false },
	}

	identity := resolver.Resolve(nil)
	assert.Equal(t, "custom-last-known", identity.ID)
	assert.True(t, identity.Unverified)
}
