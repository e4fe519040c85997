package browser

import "strings"

// ExtensionScheme is the URL scheme marking a surface as belonging to a
// browser extension.
const ExtensionScheme = "chrome-extension"

// IsExtensionURL reports whether a URL belongs to an extension surface.
func IsExtensionURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, ExtensionScheme+"://")
}
