// Package framework contains the low-level test harness infrastructure that the API tests
// are built on. It knows nothing about the application being tested.
//
// The general model is:
//
// 1. The harness talks to a target service over HTTP. A TargetService knows the base URL
// and the default timeout; each test opens its own Session, which keeps cookies the way a
// browser would and never follows redirects.
//
// 2. There is a general notion of a test context which is similar to Go's *testing.T,
// allowing pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results. Tests can be selected or excluded with regex filters.
//
// 3. Progress is reported through a TestLogger, and each test's debug output is captured
// so that it can be shown only for failures.
//
// The domain-specific code that knows what is being tested provides the requests and the
// assertions on top of the test context.
package framework
