package apitests

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/celestia-astro/astroprobe/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// RequireStatus fails the test immediately unless the response has one of the expected
// status codes. The failure detail quotes the start of the body.
func (t *T) RequireStatus(resp *framework.Response, expected ...int) {
	for _, s := range expected {
		if resp.StatusCode == s {
			return
		}
	}
	t.Detailf("HTTP %d: %s", resp.StatusCode, resp.Excerpt(excerptLength))
	require.Fail(t, "unexpected status", "expected %s, got %d", describeStatuses(expected), resp.StatusCode)
}

// RequireJSON fails the test immediately unless the response body is a JSON value of the
// specified type, and returns the value.
func (t *T) RequireJSON(resp *framework.Response, valueType ldvalue.ValueType) ldvalue.Value {
	if !resp.IsJSON {
		t.failUnexpected(resp, "response is not JSON")
	}
	if resp.JSON.Type() != valueType {
		t.failUnexpected(resp, fmt.Sprintf("expected a JSON %s, got %s", valueType, resp.JSON.Type()))
	}
	return resp.JSON
}

// RequireObject is shorthand for RequireJSON with the object type.
func (t *T) RequireObject(resp *framework.Response) ldvalue.Value {
	return t.RequireJSON(resp, ldvalue.ObjectType)
}

// RequireArray is shorthand for RequireJSON with the array type.
func (t *T) RequireArray(resp *framework.Response) ldvalue.Value {
	return t.RequireJSON(resp, ldvalue.ArrayType)
}

// RequireProperties fails the test immediately unless the object has every named property
// with a non-null value.
func (t *T) RequireProperties(resp *framework.Response, obj ldvalue.Value, names ...string) {
	var missing []string
	for _, n := range names {
		if obj.GetByKey(n).IsNull() {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		t.failUnexpected(resp, "missing "+strings.Join(missing, ", "))
	}
}

// AssertErrorMessage checks that an error response explains itself with a non-empty
// "error" or "message" property.
func (t *T) AssertErrorMessage(resp *framework.Response) bool {
	if resp.IsJSON {
		for _, key := range []string{"error", "message"} {
			if resp.JSON.GetByKey(key).StringValue() != "" {
				return true
			}
		}
	}
	return assert.Fail(t, "error response has no message", "body: %s", resp.Excerpt(excerptLength))
}

func (t *T) failUnexpected(resp *framework.Response, problem string) {
	t.Detailf("Unexpected response: %s", resp.Excerpt(excerptLength))
	require.Fail(t, "unexpected response", problem)
}

func describeStatuses(codes []int) string {
	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		parts = append(parts, fmt.Sprint(c))
	}
	return "status " + strings.Join(parts, " or ")
}

// SignInOutcome is the interpretation of a credentials callback response.
type SignInOutcome struct {
	Accepted bool
	Reason   string
}

// ClassifySignIn decides whether a credentials callback accepted the sign-in. The callback
// answers either with a JSON object containing a url, or with a redirect; in both cases a
// rejection points at a URL with an "error" parameter. An explicit "error" property in a JSON
// body is also a rejection.
func ClassifySignIn(resp *framework.Response) SignInOutcome {
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Location()
		if location == "" {
			return SignInOutcome{Reason: fmt.Sprintf("HTTP %d with no Location", resp.StatusCode)}
		}
		if strings.Contains(location, "error") {
			return SignInOutcome{Reason: "redirected to " + location}
		}
		return SignInOutcome{Accepted: true, Reason: "redirected to " + location}
	case resp.StatusCode == 200 && resp.IsJSON:
		if e := resp.JSON.GetByKey("error"); !e.IsNull() {
			return SignInOutcome{Reason: "error: " + e.JSONString()}
		}
		u := resp.JSON.GetByKey("url").StringValue()
		if u == "" {
			return SignInOutcome{Reason: "no url in response"}
		}
		if strings.Contains(u, "error") {
			return SignInOutcome{Reason: "url " + u}
		}
		return SignInOutcome{Accepted: true, Reason: "url " + u}
	default:
		return SignInOutcome{Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Excerpt(excerptLength))}
	}
}

func signInForm(email, password, csrfToken, callbackURL string) url.Values {
	return url.Values{
		"email":       {email},
		"password":    {password},
		"csrfToken":   {csrfToken},
		"callbackUrl": {callbackURL},
		"json":        {"true"},
	}
}
