package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainID(t *testing.T) {
	tests := []struct {
		network string
		chainID string
		known   bool
	}{
		{"mainnet", "0x1", true},
		{"ethereum", "0x1", true},
		{"sepolia", "0xaa36a7", true},
		{"polygon", "0x89", true},
		{"bsc", "0x38", true},
		{"dogenet", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			id, ok := ChainID(tt.network)
			assert.Equal(t, tt.known, ok)
			assert.Equal(t, tt.chainID, id)
		})
	}
}

func TestNetworkNamesSorted(t *testing.T) {
	names := NetworkNames()
	assert.NotEmpty(t, names)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "sepolia")
}
