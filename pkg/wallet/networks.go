package wallet

import "sort"

// networkCatalog maps human-readable network names to the hex chain
// identifiers passed verbatim to the provider's network-switch call.
var networkCatalog = map[string]string{
	"mainnet":   "0x1",
	"ethereum":  "0x1",
	"sepolia":   "0xaa36a7",
	"polygon":   "0x89",
	"bsc":       "0x38",
	"arbitrum":  "0xa4b1",
	"optimism":  "0xa",
	"base":      "0x2105",
	"avalanche": "0xa86a",
}

// ChainID looks up the chain identifier for a network name.
func ChainID(network string) (string, bool) {
	id, ok := networkCatalog[network]
	return id, ok
}

// NetworkNames returns the recognized network names, sorted.
func NetworkNames() []string {
	names := make([]string, 0, len(networkCatalog))
	for name := range networkCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
