package wallet

import (
	"github.com/entrhq/walletflow/pkg/browser"
)

// ApproveIntents returns the ordered locator candidates for the affirmative
// control on a wallet confirmation screen. The same logical button is
// labelled differently across wallet versions and languages; stable
// data-testid selectors come first, accessible names next, raw text matches
// last. Order matters: the driver clicks the first usable match.
func ApproveIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `button[data-testid="confirm-footer-button"]`},
		{Strategy: browser.StrategyCSS, Value: `button[data-testid="page-container-footer-next"]`},
		{Strategy: browser.StrategyCSS, Value: `button[data-testid="confirmation-submit-button"]`},
		{Strategy: browser.StrategyRole, Value: "Connect"},
		{Strategy: browser.StrategyRole, Value: "Next"},
		{Strategy: browser.StrategyRole, Value: "Confirm"},
		{Strategy: browser.StrategyRole, Value: "Approve"},
		{Strategy: browser.StrategyRole, Value: "Sign"},
		{Strategy: browser.StrategyRole, Value: "Allow"},
		{Strategy: browser.StrategyRole, Value: "Switch network"},
		{Strategy: browser.StrategyText, Value: "确认"},
		{Strategy: browser.StrategyText, Value: "连接"},
		{Strategy: browser.StrategyText, Value: "签名"},
		{Strategy: browser.StrategyText, Value: "Подтвердить"},
		{Strategy: browser.StrategyText, Value: "Подключить"},
		{Strategy: browser.StrategyCSS, Value: "button.btn-primary"},
	}
}

// Onboarding intent lists. These drive the wallet's own import screens, so
// they carry the same multilingual fallbacks as the approval list.

func agreeTermsIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `input[data-testid="onboarding-terms-checkbox"]`},
		{Strategy: browser.StrategyCSS, Value: `#onboarding__terms-checkbox`},
	}
}

func importExistingIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `button[data-testid="onboarding-import-wallet"]`},
		{Strategy: browser.StrategyRole, Value: "Import an existing wallet"},
		{Strategy: browser.StrategyText, Value: "导入现有钱包"},
	}
}

func secretFieldIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `input[data-testid="import-srp__srp-word-0"]`},
		{Strategy: browser.StrategyCSS, Value: `textarea`},
	}
}

func privateKeyFieldIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `input#private-key-box`},
		{Strategy: browser.StrategyCSS, Value: `input[data-testid="private-key-input"]`},
	}
}

func importKeyConfirmIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `button[data-testid="import-account-confirm-button"]`},
		{Strategy: browser.StrategyRole, Value: "Import"},
		{Strategy: browser.StrategyText, Value: "导入"},
	}
}

func confirmSecretIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `button[data-testid="import-srp-confirm"]`},
		{Strategy: browser.StrategyRole, Value: "Confirm Secret Recovery Phrase"},
		{Strategy: browser.StrategyRole, Value: "Import"},
	}
}

func newPasswordIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `input[data-testid="create-password-new"]`},
		{Strategy: browser.StrategyCSS, Value: `input[autocomplete="new-password"]`},
	}
}

func confirmPasswordIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `input[data-testid="create-password-confirm"]`},
	}
}

func passwordTermsIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `input[data-testid="create-password-terms"]`},
	}
}

func submitPasswordIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `button[data-testid="create-password-import"]`},
		{Strategy: browser.StrategyRole, Value: "Import my wallet"},
		{Strategy: browser.StrategyRole, Value: "Create a new wallet"},
	}
}

func unlockPasswordIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `input[data-testid="unlock-password"]`},
		{Strategy: browser.StrategyCSS, Value: `input#password`},
	}
}

func unlockSubmitIntents() []browser.Intent {
	return []browser.Intent{
		{Strategy: browser.StrategyCSS, Value: `button[data-testid="unlock-submit"]`},
		{Strategy: browser.StrategyRole, Value: "Unlock"},
		{Strategy: browser.StrategyText, Value: "解锁"},
	}
}
