package main

import (
	"fmt"
	"io"
	"time"

	"github.com/celestia-astro/astroprobe/apitests"
	"github.com/celestia-astro/astroprobe/config"
	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/report"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// reachabilityPath is polled before the tests start.
const reachabilityPath = "/api"

func newRunCmd(configFile *string) *cobra.Command {
	var p runParams
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the test suites against a deployment",
		Example: `  astroprobe run --url https://preview.example.com
  astroprobe run --url https://preview.example.com --capability writes --run "^client portal/"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, *configFile)
			if err != nil {
				return err
			}
			p.configFile = cfg.File
			return runSuites(cmd, cfg, p)
		},
	}
	f := cmd.Flags()
	f.String("url", "", "base URL of the deployment under test")
	f.Var(&p.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	f.Var(&p.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	f.StringSlice("capability", nil, "enable tests that need a capability (stripe, writes, email)")
	f.Int("parallel", 1, "number of suites to run at once")
	f.Duration("delay", time.Second, "pause between consecutive tests")
	f.Duration("timeout", 10*time.Second, "timeout for each request")
	f.String("webhook-secret", "", "webhook signing secret of the deployment")
	f.String("output", "", "write results to this file (.json or .yaml, optionally .zst)")
	f.BoolVar(&p.debug, "debug", false, "show request logs for failed tests")
	f.BoolVar(&p.debugAll, "debug-all", false, "show request logs for all tests")
	return cmd
}

type runParams struct {
	filters    framework.RegexFilters
	debug      bool
	debugAll   bool
	configFile string
}

func runSuites(cmd *cobra.Command, cfg config.Config, p runParams) error {
	if err := cfg.ValidateForRun(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	logger := newLogger(cmd)

	mainDebugLogger := framework.NullLogger()
	if p.debugAll {
		mainDebugLogger = log.NewWithOptions(out, log.Options{Prefix: "debug", ReportTimestamp: true})
	}
	target := framework.NewTargetService(cfg.BaseURL, cfg.RequestTimeout, mainDebugLogger)
	if err := target.WaitUntilReachable(reachabilityPath, cfg.StartupTimeout, out); err != nil {
		return fmt.Errorf("target is not reachable: %w", err)
	}

	fmt.Fprintln(out)
	framework.PrintFilterDescription(out, p.filters, apitests.MissingCapabilities(cfg))
	fmt.Fprintln(out, "Running test suite")

	newTestLogger := func(w io.Writer) framework.TestLogger {
		return &ConsoleTestLogger{
			Out:                  w,
			DebugOutputOnFailure: p.debug || p.debugAll,
			DebugOutputOnSuccess: p.debugAll,
		}
	}
	params := apitests.RunParams{
		Target: target,
		Config: cfg,
		Filter: p.filters.AsFilter,
	}
	var results framework.Results
	if cfg.Parallel > 1 {
		results = apitests.RunTestSuiteParallel(params, cfg.Parallel, newTestLogger, out)
	} else {
		params.TestLogger = newTestLogger(out)
		results = apitests.RunTestSuite(params)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSummary(results))
	if !results.OK() {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To run only the failed tests again:")
		fmt.Fprintf(out, "  %s\n", rerunCommand(cmd.Root().Name(), cfg, p.configFile, results.Failures))
	}

	if cfg.Output != "" {
		if err := report.WriteFile(cfg.Output, report.FromResults(target.BaseURL(), results)); err != nil {
			return fmt.Errorf("could not write results: %w", err)
		}
		logger.Info("Wrote results", "file", cfg.Output)
	}

	if !results.OK() {
		return errSilentFailure
	}
	return nil
}
