package wallet

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Thin request/response wrappers issuing a single provider call in the
// primary page's execution context. No retry, no state machine: the settled
// value or error message is returned verbatim.

// SwitchNetwork asks the injected provider to switch to the given chain.
// The wallet may answer with a confirmation popup; arming the popup listener
// before calling this is the caller's job.
func SwitchNetwork(page playwright.Page, chainID string) error {
	script := fmt.Sprintf(
		`window.ethereum.request({method: 'wallet_switchEthereumChain', params: [{chainId: %q}]})`,
		chainID,
	)
	if _, err := page.Evaluate(script); err != nil {
		return fmt.Errorf("network switch failed: %w", err)
	}
	return nil
}

// RequestAddress asks the provider for the active account address.
func RequestAddress(page playwright.Page) (string, error) {
	result, err := page.Evaluate(
		`window.ethereum.request({method: 'eth_requestAccounts'}).then(accounts => accounts[0] || '')`,
	)
	if err != nil {
		return "", fmt.Errorf("address query failed: %w", err)
	}

	address, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("address query returned unexpected type %T", result)
	}
	return address, nil
}
