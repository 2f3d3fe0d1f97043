package apitests

import (
	"bytes"
	"io"
	"sync"

	"github.com/celestia-astro/astroprobe/framework"
)

type suite struct {
	name string
	run  func(*T)
}

// suites are the top-level test groups in the order they are reported.
var suites = []suite{
	{"API health", DoHealthTests},
	{"database connection", DoDatabaseTests},
	{"legacy checkout", DoLegacyCheckoutTests},
	{"service catalog", DoServiceCatalogTests},
	{"booking sessions", DoBookingSessionTests},
	{"payments checkout", DoPaymentsCheckoutTests},
	{"stripe webhooks", DoWebhookTests},
	{"email service", DoEmailTests},
	{"calendar events", DoCalendarTests},
	{"authentication setup", DoAuthSetupTests},
	{"credentials sign-in", DoSignInTests},
	{"registration", DoRegistrationTests},
	{"client portal", DoClientPortalTests},
	{"admin portal", DoAdminPortalTests},
	{"error handling", DoErrorHandlingTests},
}

// SuiteNames returns the names of the top-level groups in run order.
func SuiteNames() []string {
	ret := make([]string, 0, len(suites))
	for _, s := range suites {
		ret = append(ret, s.name)
	}
	return ret
}

// RunTestSuite runs every suite against the target, one after another.
func RunTestSuite(params RunParams) framework.Results {
	params.Config = normalizeConfig(params.Config)
	env := newEnvironment(params)
	return framework.Run(frameworkParams(params, params.TestLogger), func(c *framework.Context) {
		t := &T{context: c, env: env}
		for _, s := range suites {
			t.group(s.name, s.run)
		}
	})
}

// RunTestSuiteParallel runs up to parallelism suites at once. Each suite reports to its own
// test logger, created by newTestLogger for a private buffer; the buffers are copied to out
// in suite order, so the console output reads the same as a sequential run.
func RunTestSuiteParallel(
	params RunParams,
	parallelism int,
	newTestLogger func(io.Writer) framework.TestLogger,
	out io.Writer,
) framework.Results {
	if parallelism < 1 {
		parallelism = 1
	}
	params.Config = normalizeConfig(params.Config)
	env := newEnvironment(params)

	queue := framework.NewOutputSortingQueue(len(suites))
	copied := make(chan struct{})
	go func() {
		for chunk := range queue.C {
			_, _ = out.Write(chunk)
		}
		close(copied)
	}()

	results := make([]framework.Results, len(suites))
	slots := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for i, s := range suites {
		wg.Add(1)
		slots <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-slots }()
			var buf bytes.Buffer
			results[i] = framework.Run(frameworkParams(params, newTestLogger(&buf)), func(c *framework.Context) {
				(&T{context: c, env: env}).group(s.name, s.run)
			})
			queue.Accept(i+1, buf.Bytes())
		}()
	}
	wg.Wait()
	queue.Close()
	<-copied

	var merged framework.Results
	for _, r := range results {
		merged = merged.Merge(r)
	}
	return merged
}
