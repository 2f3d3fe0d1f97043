package apitests

import (
	"fmt"
	"strings"
	"time"

	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// sampleBirthInfo is sent with chart generation requests so that they do not depend on the
// account's stored birth information.
var sampleBirthInfo = servicedef.ChartRequestParams{
	BirthDate:  "1990-05-17",
	BirthTime:  "08:30",
	BirthPlace: "Chicago, IL",
}

func DoClientPortalTests(t *T) {
	t.Run("profile requires sign-in", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{Path: "/api/user/profile"})
		t.RequireStatus(resp, 401, 403)
		t.Detailf("HTTP %d", resp.StatusCode)
	})

	t.Run("profile", func(t *T) {
		resp := t.Do(t.SignIn(servicedef.RoleClient), framework.Request{Path: "/api/user/profile"})
		t.RequireStatus(resp, 200)
		profile := t.RequireObject(resp)
		email := profile.GetByKey("email").StringValue()
		assert.True(t, strings.EqualFold(t.Config().Client.Email, email),
			"profile email %q does not match %q", email, t.Config().Client.Email)
		t.Detailf("Profile of %s", email)
	})

	t.Run("birth chart", func(t *T) {
		resp := t.Do(t.SignIn(servicedef.RoleClient), framework.Request{Path: "/api/user/birth-chart"})
		t.RequireStatus(resp, 200)
		obj := t.RequireObject(resp)
		t.Detailf("Keys: %s", strings.Join(obj.Keys(), ", "))
	})

	t.Run("sessions", func(t *T) {
		resp := t.Do(t.SignIn(servicedef.RoleClient), framework.Request{Path: "/api/user/sessions"})
		t.RequireStatus(resp, 200)
		t.Detailf("Found %d sessions", t.RequireArray(resp).Count())
	})

	t.Run("notes", func(t *T) {
		resp := t.Do(t.SignIn(servicedef.RoleClient), framework.Request{Path: "/api/user/notes"})
		t.RequireStatus(resp, 200)
		notes := t.RequireObject(resp)
		assert.Equal(t, ldvalue.StringType, notes.GetByKey("personal").Type(), "personal notes are not a string")
		assert.Equal(t, ldvalue.ArrayType, notes.GetByKey("admin").Type(), "admin notes are not an array")
		t.Detailf("%d admin notes", notes.GetByKey("admin").Count())
	})

	t.Run("save notes", func(t *T) {
		t.RequireCapability(CapabilityWrites)
		session := t.SignIn(servicedef.RoleClient)
		text := fmt.Sprintf("astroprobe check at %s", time.Now().UTC().Format(time.RFC3339))
		resp := t.Do(session, framework.Request{
			Method:   "POST",
			Path:     "/api/user/notes",
			JSONBody: servicedef.SaveNotesParams{Notes: text},
		})
		t.RequireStatus(resp, 200)

		resp = t.Do(session, framework.Request{Path: "/api/user/notes"})
		t.RequireStatus(resp, 200)
		assert.Equal(t, text, t.RequireObject(resp).GetByKey("personal").StringValue())
		t.Detailf("Saved %d characters", len(text))
	})

	t.Run("generate birth chart", func(t *T) {
		resp := t.Do(t.SignIn(servicedef.RoleClient), t.slow(framework.Request{
			Method:   "POST",
			Path:     "/api/user/generate-birth-chart",
			JSONBody: sampleBirthInfo,
		}))
		t.RequireStatus(resp, 200)
		planets := requirePlanets(t, resp)
		t.Detailf("Chart with %d planets", planets.Count())
	})
}

func DoAdminPortalTests(t *T) {
	t.Run("stats forbidden to client", func(t *T) {
		resp := t.Do(t.SignIn(servicedef.RoleClient), framework.Request{Path: "/api/admin/stats"})
		t.RequireStatus(resp, 401, 403)
		t.Detailf("HTTP %d", resp.StatusCode)
	})

	t.Run("stats", func(t *T) {
		resp := t.Do(t.SignIn(servicedef.RoleAdmin), framework.Request{Path: "/api/admin/stats"})
		t.RequireStatus(resp, 200)
		stats := t.RequireObject(resp)
		t.Detailf("Stats: %s", stats.JSONString())
	})

	for _, list := range []string{"users", "sessions", "revenue"} {
		t.Run(list, func(t *T) {
			resp := t.Do(t.SignIn(servicedef.RoleAdmin), framework.Request{Path: "/api/admin/" + list})
			t.RequireStatus(resp, 200)
			t.Detailf("Found %d %s entries", t.RequireArray(resp).Count(), list)
		})
	}

	t.Run("generate chart for user", func(t *T) {
		session := t.SignIn(servicedef.RoleAdmin)
		userID := pickUserID(t, session)
		resp := t.Do(session, t.slow(framework.Request{
			Method:   "POST",
			Path:     "/api/admin/generate-chart/" + userID,
			JSONBody: sampleBirthInfo,
		}))
		t.RequireStatus(resp, 200)
		planets := requirePlanets(t, resp)
		t.Detailf("Chart for %s with %d planets", userID, planets.Count())
	})

	t.Run("publish note", func(t *T) {
		t.RequireCapability(CapabilityWrites)
		session := t.SignIn(servicedef.RoleAdmin)
		userID := pickUserID(t, session)
		resp := t.Do(session, framework.Request{
			Method: "POST",
			Path:   "/api/admin/publish-note",
			JSONBody: servicedef.PublishNoteParams{
				UserID:  userID,
				Title:   "astroprobe",
				Content: "Published by astroprobe to check the admin portal.",
			},
		})
		t.RequireStatus(resp, 200, 201)
		t.Detailf("Published note for %s", userID)
	})
}

// pickUserID chooses the user that admin operations are tried on: the configured client if it
// is in the user list, otherwise the first user.
func pickUserID(t *T, admin *framework.Session) string {
	resp := t.Do(admin, framework.Request{Path: "/api/admin/users"})
	t.RequireStatus(resp, 200)
	users := t.RequireArray(resp)
	if users.Count() == 0 {
		t.context.SkipWithReason("there are no users to operate on")
	}
	chosen := users.GetByIndex(0)
	for i := 0; i < users.Count(); i++ {
		u := users.GetByIndex(i)
		if email := u.GetByKey("email").StringValue(); email != "" && strings.EqualFold(email, t.Config().Client.Email) {
			chosen = u
			break
		}
	}
	id := chosen.GetByKey("id").StringValue()
	if id == "" {
		id = chosen.GetByKey("_id").StringValue()
	}
	require.NotEmpty(t, id, "user entry has no id: %s", chosen.JSONString())
	return id
}

func requirePlanets(t *T, resp *framework.Response) ldvalue.Value {
	planets := t.RequireObject(resp).GetByKey("planets")
	if planets.Type() != ldvalue.ArrayType || planets.Count() == 0 {
		t.failUnexpected(resp, "chart has no planets")
	}
	return planets
}
