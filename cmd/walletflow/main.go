// Package main provides the walletflow command-line harness. Each invocation
// performs one operation against the managed browser session and emits
// exactly one JSON result record on stdout; all diagnostics go to the run
// log, never to stdout.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/entrhq/walletflow/pkg/browser"
	"github.com/entrhq/walletflow/pkg/config"
	"github.com/entrhq/walletflow/pkg/logging"
	"github.com/entrhq/walletflow/pkg/report"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration layered over the config file.
type CLIConfig struct {
	ConfigFile    string
	Headed        bool
	TimeoutMs     int
	KeepOpen      bool
	Network       string
	UserDataDir   string
	ExtensionPath string
	BrowserPath   string
	DebugPort     int
	ScreenshotDir string
	ShowVersion   bool
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("walletflow v%s\n", version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, args); err != nil {
		fmt.Fprintf(os.Stderr, "walletflow: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.BoolVar(&cfg.Headed, "headed", false, "Run the browser with a visible window")
	flag.IntVar(&cfg.TimeoutMs, "timeout-ms", 0, "Popup wait and locator timeout in milliseconds")
	flag.BoolVar(&cfg.KeepOpen, "keep-open", false, "Leave the browser running on teardown for later reattachment")
	flag.StringVar(&cfg.Network, "network", "", "Target network name (see the networks command)")
	flag.StringVar(&cfg.UserDataDir, "user-data-dir", "", "Persistent browser profile directory")
	flag.StringVar(&cfg.ExtensionPath, "extension", "", "Unpacked wallet extension directory")
	flag.StringVar(&cfg.BrowserPath, "browser", "", "Chromium executable to launch (default: discover)")
	flag.IntVar(&cfg.DebugPort, "port", 0, "Local debugging port for launch and reattachment")
	flag.StringVar(&cfg.ScreenshotDir, "screenshot-dir", "", "Directory for diagnostic screenshots")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "walletflow - wallet extension automation harness\n\n")
		fmt.Fprintf(os.Stderr, "Usage: walletflow [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  navigate <url>         Open a URL in the primary page\n")
		fmt.Fprintf(os.Stderr, "  click <label>          Click a control on the primary page by label\n")
		fmt.Fprintf(os.Stderr, "  arm                    Arm the popup listener before a trigger action\n")
		fmt.Fprintf(os.Stderr, "  approve                Wait for the wallet popup and approve it\n")
		fmt.Fprintf(os.Stderr, "  address                Request the active account address\n")
		fmt.Fprintf(os.Stderr, "  switch-network <name>  Switch the wallet to a named network\n")
		fmt.Fprintf(os.Stderr, "  networks               List recognized network names\n")
		fmt.Fprintf(os.Stderr, "  setup                  Import a wallet from the credentials sidecar\n")
		fmt.Fprintf(os.Stderr, "  import-key             Import an account from the stored private key\n")
		fmt.Fprintf(os.Stderr, "  unlock                 Unlock the wallet with the stored password\n")
		fmt.Fprintf(os.Stderr, "  screenshot [path]      Capture the primary page\n")
		fmt.Fprintf(os.Stderr, "  teardown               Close the session (honors -keep-open)\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Connect a dapp: arm, trigger, approve\n")
		fmt.Fprintf(os.Stderr, "  walletflow navigate https://app.example.com\n")
		fmt.Fprintf(os.Stderr, "  walletflow arm\n")
		fmt.Fprintf(os.Stderr, "  walletflow click \"Connect Wallet\"\n")
		fmt.Fprintf(os.Stderr, "  walletflow approve\n\n")
		fmt.Fprintf(os.Stderr, "  # First-run wallet import from ~/.walletflow/credentials.json\n")
		fmt.Fprintf(os.Stderr, "  walletflow -extension ./metamask setup\n\n")
	}

	flag.Parse()
	return cfg
}

// run wires the session manager and dispatches one command. Errors returned
// here are structural (unknown command, bad arguments, session creation
// failure); expected automation flakiness is reported in the result record
// with exit code 0.
func run(cfg *CLIConfig, args []string) error {
	opts, err := loadOptions(cfg)
	if err != nil {
		return err
	}

	log, _ := logging.NewLogger("cli")
	defer log.Close()

	pointer, err := browser.NewPointerStore("")
	if err != nil {
		return err
	}

	a := &app{
		opts:     opts,
		log:      log,
		reporter: report.NewReporter(os.Stdout),
		manager:  browser.NewManager(pointer, log),
	}

	command, rest := args[0], args[1:]
	log.Infof("command: %s %v", command, rest)

	switch command {
	case "navigate":
		if len(rest) != 1 {
			return fmt.Errorf("navigate requires exactly one URL argument")
		}
		return a.cmdNavigate(rest[0])
	case "click":
		if len(rest) != 1 {
			return fmt.Errorf("click requires exactly one label argument")
		}
		return a.cmdClick(rest[0])
	case "arm":
		return a.cmdArm()
	case "approve":
		return a.cmdApprove()
	case "address":
		return a.cmdAddress()
	case "switch-network":
		name := a.opts.Network
		if len(rest) > 0 {
			name = rest[0]
		}
		if name == "" {
			return fmt.Errorf("switch-network requires a network name argument or -network")
		}
		return a.cmdSwitchNetwork(name)
	case "networks":
		return a.cmdNetworks()
	case "setup":
		return a.cmdSetup()
	case "import-key":
		return a.cmdImportKey()
	case "unlock":
		return a.cmdUnlock()
	case "screenshot":
		path := ""
		if len(rest) > 0 {
			path = rest[0]
		}
		return a.cmdScreenshot(path)
	case "teardown":
		return a.cmdTeardown()
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// loadOptions reads the config file and layers explicitly set flags over it.
func loadOptions(cfg *CLIConfig) (config.Options, error) {
	path := cfg.ConfigFile
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return config.Options{}, err
		}
		path = defaultPath
	}

	opts, err := config.Load(path)
	if err != nil {
		return opts, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "headed":
			opts.Headed = cfg.Headed
		case "timeout-ms":
			opts.TimeoutMs = cfg.TimeoutMs
		case "keep-open":
			opts.KeepOpen = cfg.KeepOpen
		case "network":
			opts.Network = cfg.Network
		case "user-data-dir":
			opts.UserDataDir = cfg.UserDataDir
		case "extension":
			opts.ExtensionPath = cfg.ExtensionPath
		case "browser":
			opts.BrowserPath = cfg.BrowserPath
		case "port":
			opts.DebugPort = cfg.DebugPort
		case "screenshot-dir":
			opts.ScreenshotDir = cfg.ScreenshotDir
		}
	})

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
