package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/walletflow/pkg/browser"
	"github.com/entrhq/walletflow/pkg/config"
	"github.com/entrhq/walletflow/pkg/logging"
	"github.com/entrhq/walletflow/pkg/report"
	"github.com/entrhq/walletflow/pkg/wallet"
)

// providerGrace is how long a provider request gets to settle on its own
// before a confirmation popup is assumed and the approval flow takes over.
const providerGrace = 2 * time.Second

// app carries the wired components for a single command invocation.
type app struct {
	opts     config.Options
	log      *logging.Logger
	reporter *report.Reporter
	manager  *browser.Manager
}

func (a *app) launchConfig() browser.LaunchConfig {
	return browser.LaunchConfig{
		Headed:        a.opts.Headed,
		UserDataDir:   a.opts.UserDataDir,
		ExtensionPath: a.opts.ExtensionPath,
		BrowserPath:   a.opts.BrowserPath,
		DebugPort:     a.opts.DebugPort,
		TimeoutMs:     a.opts.TimeoutMs,
	}
}

func (a *app) session() (*browser.Session, error) {
	return a.manager.EnsureSession(a.launchConfig())
}

func (a *app) timeout() time.Duration {
	return time.Duration(a.opts.TimeoutMs) * time.Millisecond
}

// flow builds an approval flow over the session's listener, resolving the
// extension identity live.
func (a *app) flow(session *browser.Session) *wallet.ApprovalFlow {
	identity := wallet.NewResolver(a.log).Resolve(session)
	driver := browser.NewDriver(a.log)

	var primary browser.Surface
	if page := session.PrimaryPage(); page != nil {
		primary = browser.WrapPage(page)
	}

	flow := wallet.NewApprovalFlow(session.Listener, driver, identity, primary, a.log)
	flow.ScreenshotDir = a.opts.ScreenshotDir
	return flow
}

func (a *app) cmdNavigate(url string) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	if _, err := session.PrimaryPage().Goto(url); err != nil {
		return a.reporter.Emit(report.Failure(
			fmt.Sprintf("navigation failed: %v", err), "", report.Record{"url": url}))
	}
	return a.reporter.Emit(report.Success(report.Record{"url": session.PrimaryPage().URL()}))
}

func (a *app) cmdClick(label string) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	intents := []browser.Intent{
		{Strategy: browser.StrategyRole, Value: label},
		{Strategy: browser.StrategyText, Value: label},
	}

	driver := browser.NewDriver(a.log)
	action := driver.PerformAction(browser.WrapPage(session.PrimaryPage()), intents)
	if !action.Success {
		return a.reporter.Emit(report.Failure(
			fmt.Sprintf("no clickable control labelled %q", label),
			"check the label text or use navigate to reach the right page",
			report.Record{"retries": action.Retries}))
	}
	return a.reporter.Emit(report.Success(report.Record{"clicked": label}))
}

func (a *app) cmdArm() error {
	session, err := a.session()
	if err != nil {
		return err
	}

	session.Listener.Arm()
	return a.reporter.Emit(report.Success(report.Record{
		"armed":         true,
		"open_surfaces": session.Listener.OpenSurfaceCount(),
	}))
}

func (a *app) cmdApprove() error {
	session, err := a.session()
	if err != nil {
		return err
	}

	result := a.flow(session).Approve(a.timeout())
	return a.reporter.Emit(approvalRecord(result, nil))
}

func (a *app) cmdAddress() error {
	session, err := a.session()
	if err != nil {
		return err
	}
	page := session.PrimaryPage()

	// Arm before issuing the request: a connect popup may be triggered.
	session.Listener.Arm()

	type answer struct {
		address string
		err     error
	}
	settled := make(chan answer, 1)
	go func() {
		address, err := wallet.RequestAddress(page)
		settled <- answer{address, err}
	}()

	// A previously connected origin answers without any popup.
	select {
	case ans := <-settled:
		session.Listener.Disarm()
		if ans.err != nil {
			return a.reporter.Emit(report.Failure(ans.err.Error(), "", nil))
		}
		return a.reporter.Emit(report.Success(report.Record{"address": ans.address}))
	case <-time.After(providerGrace):
	}

	approval := a.flow(session).Approve(a.timeout())

	select {
	case ans := <-settled:
		if ans.err != nil {
			return a.reporter.Emit(report.Failure(ans.err.Error(), "", approvalFields(approval)))
		}
		fields := approvalFields(approval)
		fields["address"] = ans.address
		return a.reporter.Emit(report.Success(fields))
	case <-time.After(a.timeout()):
		return a.reporter.Emit(report.Failure(
			"address request did not settle",
			"the wallet may still be showing a confirmation",
			approvalFields(approval)))
	}
}

func (a *app) cmdSwitchNetwork(name string) error {
	chainID, ok := wallet.ChainID(name)
	if !ok {
		return a.reporter.Emit(report.Failure(
			fmt.Sprintf("unrecognized network %q", name),
			fmt.Sprintf("known networks: %s", strings.Join(wallet.NetworkNames(), ", ")),
			nil))
	}

	session, err := a.session()
	if err != nil {
		return err
	}
	page := session.PrimaryPage()

	session.Listener.Arm()

	settled := make(chan error, 1)
	go func() {
		settled <- wallet.SwitchNetwork(page, chainID)
	}()

	// An already-approved network switches without a confirmation popup.
	select {
	case switchErr := <-settled:
		session.Listener.Disarm()
		if switchErr != nil {
			return a.reporter.Emit(report.Failure(switchErr.Error(), "", report.Record{"network": name}))
		}
		return a.reporter.Emit(report.Success(report.Record{"network": name, "chain_id": chainID}))
	case <-time.After(providerGrace):
	}

	approval := a.flow(session).Approve(a.timeout())
	fields := approvalFields(approval)
	fields["network"] = name
	fields["chain_id"] = chainID

	select {
	case switchErr := <-settled:
		if switchErr != nil {
			return a.reporter.Emit(report.Failure(switchErr.Error(), "", fields))
		}
		return a.reporter.Emit(report.Success(fields))
	case <-time.After(a.timeout()):
		return a.reporter.Emit(report.Failure(
			"network switch did not settle",
			"the wallet may still be showing a confirmation",
			fields))
	}
}

func (a *app) cmdNetworks() error {
	return a.reporter.Emit(report.Success(report.Record{"networks": wallet.NetworkNames()}))
}

func (a *app) cmdSetup() error {
	onboarder, surface, err := a.walletSurface(wallet.PageHome)
	if err != nil {
		return err
	}

	result, err := onboarder.ImportWallet(surface)
	if err != nil {
		return err
	}
	if !result.Success {
		return a.reporter.Emit(report.Failure(
			fmt.Sprintf("import flow stalled at step %q", result.FailedStep),
			"the wallet may already be imported; try unlock instead",
			report.Record{"steps_passed": result.StepsPassed}))
	}
	return a.reporter.Emit(report.Success(report.Record{"steps_passed": result.StepsPassed}))
}

func (a *app) cmdImportKey() error {
	onboarder, surface, err := a.walletSurface(wallet.PageImportKey)
	if err != nil {
		return err
	}

	result, err := onboarder.ImportByKey(surface)
	if err != nil {
		return err
	}
	if !result.Success {
		return a.reporter.Emit(report.Failure(
			fmt.Sprintf("key import stalled at step %q", result.FailedStep),
			"the wallet must be set up and unlocked before importing a key",
			report.Record{"steps_passed": result.StepsPassed}))
	}
	return a.reporter.Emit(report.Success(report.Record{"steps_passed": result.StepsPassed}))
}

func (a *app) cmdUnlock() error {
	onboarder, surface, err := a.walletSurface(wallet.PagePopup)
	if err != nil {
		return err
	}

	result, err := onboarder.Unlock(surface)
	if err != nil {
		return err
	}
	if !result.Success {
		return a.reporter.Emit(report.Failure(
			fmt.Sprintf("unlock stalled at step %q", result.FailedStep),
			"the wallet may be freshly installed; try setup instead",
			report.Record{"steps_passed": result.StepsPassed}))
	}
	return a.reporter.Emit(report.Success(report.Record{"steps_passed": result.StepsPassed}))
}

// walletSurface navigates the primary page to one of the extension's own
// pages and wires an onboarder over it.
func (a *app) walletSurface(target wallet.ExtensionPage) (*wallet.Onboarder, browser.Surface, error) {
	session, err := a.session()
	if err != nil {
		return nil, nil, err
	}

	identity := wallet.NewResolver(a.log).Resolve(session)
	page := session.PrimaryPage()
	if _, err := page.Goto(identity.URL(target)); err != nil {
		return nil, nil, fmt.Errorf("failed to open wallet page: %w", err)
	}

	store, err := wallet.NewCredentialStore("")
	if err != nil {
		return nil, nil, err
	}

	onboarder := wallet.NewOnboarder(browser.NewDriver(a.log), store, a.log)
	return onboarder, browser.WrapPage(page), nil
}

func (a *app) cmdScreenshot(path string) error {
	session, err := a.session()
	if err != nil {
		return err
	}

	if path == "" {
		dir := a.opts.ScreenshotDir
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
		path = filepath.Join(dir, fmt.Sprintf("walletflow-%d.png", time.Now().UnixMilli()))
	}

	surface := browser.WrapPage(session.PrimaryPage())
	if err := surface.Screenshot(path); err != nil {
		return a.reporter.Emit(report.Failure(err.Error(), "", nil))
	}
	return a.reporter.Emit(report.Success(report.Record{"path": path}))
}

func (a *app) cmdTeardown() error {
	// Attach to the recorded browser only; launching one just to close it
	// would defeat the point.
	_, ok, err := a.manager.AttachExisting(a.launchConfig())
	if err != nil {
		return err
	}
	if !ok {
		return a.reporter.Emit(report.Info("no running session to tear down"))
	}

	if err := a.manager.Teardown(a.opts.KeepOpen); err != nil {
		return err
	}
	return a.reporter.Emit(report.Success(report.Record{
		"closed":    !a.opts.KeepOpen,
		"keep_open": a.opts.KeepOpen,
	}))
}

// approvalFields flattens an approval result into record fields.
func approvalFields(result wallet.ApprovalResult) report.Record {
	fields := report.Record{
		"approved":       result.Approved,
		"popup_closed":   result.PopupClosed,
		"state":          string(result.State),
		"steps_approved": result.StepsApproved,
	}
	if result.URL != "" {
		fields["popup_url"] = result.URL
	}
	if len(result.Screenshots) > 0 {
		fields["screenshots"] = result.Screenshots
	}
	return fields
}

// approvalRecord builds the final record for an approval outcome, merging in
// any extra fields.
func approvalRecord(result wallet.ApprovalResult, extra report.Record) report.Record {
	fields := approvalFields(result)
	for k, v := range extra {
		fields[k] = v
	}
	if result.Success {
		return report.Success(fields)
	}
	fields["open_surfaces"] = result.OpenSurfaces
	return report.Failure(result.Error, result.Hint, fields)
}
