package apitests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/celestia-astro/astroprobe/config"
	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/require"
)

const (
	CapabilityStripe            = "stripe"
	CapabilityWrites            = "writes"
	CapabilityEmail             = "email"
	CapabilityWebhookSecret     = "webhook-secret"
	CapabilityClientCredentials = "client-credentials"
	CapabilityAdminCredentials  = "admin-credentials"
)

// AllCapabilities are the capabilities that some test requires. The last three are
// enabled automatically when the corresponding secrets are configured.
var AllCapabilities = []string{
	CapabilityStripe,
	CapabilityWrites,
	CapabilityEmail,
	CapabilityWebhookSecret,
	CapabilityClientCredentials,
	CapabilityAdminCredentials,
}

// excerptLength is how much of an unexpected response body is quoted in a failure.
const excerptLength = 200

// Capabilities is the set of capabilities enabled for a test run.
type Capabilities []string

func (c Capabilities) Has(name string) bool {
	for _, n := range c {
		if n == name {
			return true
		}
	}
	return false
}

// EnabledCapabilities returns the capabilities listed in the configuration plus the ones
// implied by configured credentials.
func EnabledCapabilities(cfg config.Config) Capabilities {
	var ret Capabilities
	add := func(name string) {
		if !ret.Has(name) {
			ret = append(ret, name)
		}
	}
	for _, c := range cfg.Capabilities {
		add(strings.TrimSpace(c))
	}
	if cfg.WebhookSecret != "" {
		add(CapabilityWebhookSecret)
	}
	if cfg.Client.Configured() {
		add(CapabilityClientCredentials)
	}
	if cfg.Admin.Configured() {
		add(CapabilityAdminCredentials)
	}
	return ret
}

// MissingCapabilities returns the known capabilities that are not enabled.
func MissingCapabilities(cfg config.Config) []string {
	enabled := EnabledCapabilities(cfg)
	var ret []string
	for _, c := range AllCapabilities {
		if !enabled.Has(c) {
			ret = append(ret, c)
		}
	}
	return ret
}

type environment struct {
	target       *framework.TargetService
	config       config.Config
	capabilities Capabilities
}

// T represents a test or subtest in the API test suite.
//
// It implements the same basic functionality as Go's testing.T, but in an environment that is
// outside of the Go test runner. Those features are provided by the lower-level framework
// package. T adds access to the deployment under test: every request made through a session
// from Anonymous or SignIn is written to the test's debug output.
//
// To make test assertions, you can use the assert and require packages, passing the *T as if it
// were a *testing.T. The request helpers in this package also fail the test immediately when the
// target cannot be reached, so that tests do not need to check transport errors.
type T struct {
	context *framework.Context
	env     *environment
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately exit. The methods in
// the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest. This is equivalent to the Run method of testing.T.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		action(&T{context: c, env: t.env})
	})
}

func (t *T) group(name string, action func(*T)) {
	t.context.Group(name, func(c *framework.Context) {
		action(&T{context: c, env: t.env})
	})
}

// Debug logs some debug output for the test. The output will be passed to the test logger at
// the end of the test.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

// Detailf sets the one-line summary that is shown next to the test's status.
func (t *T) Detailf(format string, args ...interface{}) {
	t.context.Detailf(format, args...)
}

// Defer schedules a function to run when the test ends.
func (t *T) Defer(fn func()) {
	t.context.Defer(fn)
}

func (t *T) Capabilities() Capabilities {
	return t.env.capabilities
}

func (t *T) Config() config.Config {
	return t.env.config
}

func (t *T) Target() *framework.TargetService {
	return t.env.target
}

// RequireCapability skips this test if the specified capability was not enabled for the run.
func (t *T) RequireCapability(capability string) {
	if !t.env.capabilities.Has(capability) {
		t.context.SkipWithReason(fmt.Sprintf("capability %q is not enabled", capability))
	}
}

// Anonymous starts a session with no signed-in user.
func (t *T) Anonymous() *framework.Session {
	return t.env.target.NewSession(t.context.DebugLogger())
}

// SignIn starts a session signed in with the configured credentials for the role. The test is
// skipped if no credentials are configured for the role, and fails if sign-in is rejected.
func (t *T) SignIn(role string) *framework.Session {
	var account config.Account
	switch role {
	case servicedef.RoleAdmin:
		t.RequireCapability(CapabilityAdminCredentials)
		account = t.env.config.Admin
	default:
		t.RequireCapability(CapabilityClientCredentials)
		account = t.env.config.Client
	}
	session, outcome := t.signInWith(account.Email, account.Password)
	if !outcome.Accepted {
		t.Detailf("Sign-in as %s rejected: %s", role, outcome.Reason)
		require.Fail(t, "sign-in was rejected", "role %s, email %s: %s", role, account.Email, outcome.Reason)
	}
	return session
}

// signInWith performs the credentials sign-in flow on a new session and reports whether the
// target accepted it. It fails the test only if the flow could not be completed at all.
func (t *T) signInWith(email, password string) (*framework.Session, SignInOutcome) {
	session := t.Anonymous()
	csrf := t.Do(session, framework.Request{Path: "/api/auth/csrf"})
	t.RequireStatus(csrf, 200)
	token := csrf.JSON.GetByKey("csrfToken").StringValue()
	if token == "" {
		t.failUnexpected(csrf, "no csrfToken in response")
	}
	resp := t.Do(session, framework.Request{
		Method:   "POST",
		Path:     "/api/auth/callback/credentials",
		FormBody: signInForm(email, password, token, t.env.target.URL("/")),
	})
	return session, ClassifySignIn(resp)
}

// Do sends a request on the session. If the request cannot be made, the test fails and
// exits immediately.
func (t *T) Do(session *framework.Session, r framework.Request) *framework.Response {
	resp, err := session.Do(context.Background(), r)
	if err != nil {
		t.Detailf("Request failed: %s", err)
		require.NoError(t, err, "%s %s", methodOf(r), r.Path)
	}
	return resp
}

// slow returns the request with the timeout used for calls that go to a payment or email
// provider.
func (t *T) slow(r framework.Request) framework.Request {
	r.Timeout = t.env.config.SlowRequestTimeout
	return r
}

func methodOf(r framework.Request) string {
	if r.Method == "" {
		return "GET"
	}
	return r.Method
}

// RunParams controls a run of the whole suite.
type RunParams struct {
	Target     *framework.TargetService
	Config     config.Config
	Filter     framework.Filter
	TestLogger framework.TestLogger
}

func newEnvironment(params RunParams) *environment {
	return &environment{
		target:       params.Target,
		config:       params.Config,
		capabilities: EnabledCapabilities(params.Config),
	}
}

func frameworkParams(params RunParams, testLogger framework.TestLogger) framework.RunParams {
	return framework.RunParams{
		Filter:            params.Filter,
		TestLogger:        testLogger,
		DelayBetweenTests: params.Config.DelayBetweenTests,
	}
}

// normalizeConfig fills in values that a hand-built Config may leave at zero.
func normalizeConfig(cfg config.Config) config.Config {
	if cfg.SlowRequestTimeout <= 0 {
		cfg.SlowRequestTimeout = 15 * time.Second
	}
	return cfg
}
