// Package apitests contains the tests that are run against a deployment of the booking API.
//
// Tests are grouped into suites that are run in a fixed order. Each test makes its own
// requests through a session from T.Anonymous or T.SignIn, so tests do not depend on each
// other; tests that change data or call payment and email providers require a capability
// that must be enabled explicitly.
package apitests
