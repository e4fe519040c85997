package wallet

import (
	"fmt"
	"time"

	"github.com/entrhq/walletflow/pkg/browser"
	"github.com/entrhq/walletflow/pkg/logging"
)

// OnboardResult reports how far the onboarding or unlock flow got. Missing
// controls are reported per-step; only a missing import secret is a
// structural error.
type OnboardResult struct {
	Success     bool
	FailedStep  string
	StepsPassed int
}

// Onboarder drives the wallet extension's own setup screens: the
// import-existing-wallet flow on first run, and the unlock screen on later
// runs. All clicks and fills go through the action driver, so slow renders
// and relabelled buttons are absorbed by the usual retry discipline.
type Onboarder struct {
	// SettleDelay is the fixed wait between onboarding screens.
	SettleDelay time.Duration

	driver *browser.Driver
	store  *CredentialStore
	log    *logging.Logger
	sleep  func(time.Duration)
}

// NewOnboarder creates an onboarder over the given driver and secrets store.
func NewOnboarder(driver *browser.Driver, store *CredentialStore, log *logging.Logger) *Onboarder {
	return &Onboarder{
		SettleDelay: time.Second,
		driver:      driver,
		store:       store,
		log:         log,
		sleep:       time.Sleep,
	}
}

// ImportWallet walks the import-existing flow on the wallet's onboarding
// surface: accept terms, choose import, enter the secret, set the generated
// password. The secret comes from the credentials sidecar and is never
// logged.
func (o *Onboarder) ImportWallet(surface browser.Surface) (OnboardResult, error) {
	creds, err := o.store.Load()
	if err != nil {
		return OnboardResult{}, err
	}
	if creds.ImportSecret == "" {
		return OnboardResult{}, fmt.Errorf("import_secret missing from %s", o.store.Path())
	}

	password, err := o.store.EnsurePassword()
	if err != nil {
		return OnboardResult{}, err
	}

	result := OnboardResult{}
	steps := []struct {
		name string
		run  func() browser.ActionResult
	}{
		{"accept-terms", func() browser.ActionResult {
			return o.driver.PerformAction(surface, agreeTermsIntents())
		}},
		{"choose-import", func() browser.ActionResult {
			return o.driver.PerformAction(surface, importExistingIntents())
		}},
		{"enter-secret", func() browser.ActionResult {
			return o.driver.PerformFill(surface, secretFieldIntents(), creds.ImportSecret)
		}},
		{"confirm-secret", func() browser.ActionResult {
			return o.driver.PerformAction(surface, confirmSecretIntents())
		}},
		{"new-password", func() browser.ActionResult {
			return o.driver.PerformFill(surface, newPasswordIntents(), password)
		}},
		{"confirm-password", func() browser.ActionResult {
			return o.driver.PerformFill(surface, confirmPasswordIntents(), password)
		}},
		{"password-terms", func() browser.ActionResult {
			return o.driver.PerformAction(surface, passwordTermsIntents())
		}},
		{"submit", func() browser.ActionResult {
			return o.driver.PerformAction(surface, submitPasswordIntents())
		}},
	}

	for i, step := range steps {
		if i > 0 {
			o.sleep(o.SettleDelay)
		}
		action := step.run()
		if !action.Success {
			o.log.Warnf("onboarding step %s found no control", step.name)
			result.FailedStep = step.name
			return result, nil
		}
		result.StepsPassed++
	}

	result.Success = true
	o.log.Infof("wallet import flow completed (%d steps)", result.StepsPassed)
	return result, nil
}

// ImportByKey imports an additional account from a raw private key on the
// wallet's import-account screen. The key comes from the credentials sidecar
// and is never logged.
func (o *Onboarder) ImportByKey(surface browser.Surface) (OnboardResult, error) {
	creds, err := o.store.Load()
	if err != nil {
		return OnboardResult{}, err
	}
	if creds.ImportSecret == "" {
		return OnboardResult{}, fmt.Errorf("import_secret missing from %s", o.store.Path())
	}

	result := OnboardResult{}

	if action := o.driver.PerformFill(surface, privateKeyFieldIntents(), creds.ImportSecret); !action.Success {
		o.log.Warnf("import-by-key found no key field")
		result.FailedStep = "enter-key"
		return result, nil
	}
	result.StepsPassed++
	o.sleep(o.SettleDelay)

	if action := o.driver.PerformAction(surface, importKeyConfirmIntents()); !action.Success {
		o.log.Warnf("import-by-key found no confirm control")
		result.FailedStep = "submit"
		return result, nil
	}
	result.StepsPassed++

	result.Success = true
	o.log.Infof("account import by key completed")
	return result, nil
}

// Unlock fills the stored password into the wallet's unlock screen.
func (o *Onboarder) Unlock(surface browser.Surface) (OnboardResult, error) {
	creds, err := o.store.Load()
	if err != nil {
		return OnboardResult{}, err
	}
	if creds.UnlockPassword == "" {
		return OnboardResult{}, fmt.Errorf("unlock_password missing from %s", o.store.Path())
	}

	result := OnboardResult{}

	if action := o.driver.PerformFill(surface, unlockPasswordIntents(), creds.UnlockPassword); !action.Success {
		result.FailedStep = "fill-password"
		return result, nil
	}
	result.StepsPassed++

	if action := o.driver.PerformAction(surface, unlockSubmitIntents()); !action.Success {
		result.FailedStep = "submit"
		return result, nil
	}
	result.StepsPassed++

	result.Success = true
	return result, nil
}
