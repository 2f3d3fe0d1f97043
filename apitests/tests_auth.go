package apitests

import (
	"strings"

	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/assert"
)

func DoAuthSetupTests(t *T) {
	t.Run("providers", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{Path: "/api/auth/providers"})
		t.RequireStatus(resp, 200)
		providers := t.RequireObject(resp)
		t.RequireProperties(resp, providers, "google", "credentials")
		t.Detailf("Providers: %s", strings.Join(providers.Keys(), ", "))
	})

	t.Run("sign-in page", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{Path: "/api/auth/signin"})
		t.RequireStatus(resp, 200)
		t.Detailf("HTTP 200, %d bytes", len(resp.Body))
	})

	t.Run("CSRF token", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{Path: "/api/auth/csrf"})
		t.RequireStatus(resp, 200)
		obj := t.RequireObject(resp)
		t.RequireProperties(resp, obj, "csrfToken")
		t.Detailf("Token of length %d", len(obj.GetByKey("csrfToken").StringValue()))
	})
}

func DoSignInTests(t *T) {
	t.Run("client accepted", func(t *T) {
		t.SignIn(servicedef.RoleClient)
		t.Detailf("Signed in as %s", t.Config().Client.Email)
	})

	t.Run("admin accepted", func(t *T) {
		t.SignIn(servicedef.RoleAdmin)
		t.Detailf("Signed in as %s", t.Config().Admin.Email)
	})

	t.Run("wrong password rejected", func(t *T) {
		email := t.Config().Client.Email
		if email == "" {
			email = syntheticEmail()
		}
		_, outcome := t.signInWith(email, "astroprobe-wrong-password")
		t.Detailf("%s", outcome.Reason)
		assert.False(t, outcome.Accepted, "sign-in with a wrong password was accepted")
	})

	t.Run("session reports user", func(t *T) {
		session := t.SignIn(servicedef.RoleClient)
		resp := t.Do(session, framework.Request{Path: "/api/auth/session"})
		t.RequireStatus(resp, 200)
		user := t.RequireObject(resp).GetByKey("user")
		t.RequireProperties(resp, user, "email")
		assert.True(t, strings.EqualFold(t.Config().Client.Email, user.GetByKey("email").StringValue()),
			"session email %q does not match %q", user.GetByKey("email").StringValue(), t.Config().Client.Email)
		assert.NotEmpty(t, user.GetByKey("role").StringValue(), "session user has no role")
		t.Detailf("Session for %s (%s)", user.GetByKey("email").StringValue(), user.GetByKey("role").StringValue())
	})

	t.Run("anonymous session is empty", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{Path: "/api/auth/session"})
		t.RequireStatus(resp, 200)
		if resp.IsJSON {
			assert.True(t, resp.JSON.GetByKey("user").IsNull(), "anonymous session has a user")
		}
	})
}
