package apitests

import (
	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func DoRegistrationTests(t *T) {
	t.Run("new account and duplicate", func(t *T) {
		t.RequireCapability(CapabilityWrites)
		params := servicedef.RegisterParams{
			Name:     "Astroprobe Check",
			Email:    syntheticEmail(),
			Password: uuid.NewString(),
		}
		register := func() *framework.Response {
			return t.Do(t.Anonymous(), framework.Request{
				Method:   "POST",
				Path:     "/api/register",
				JSONBody: params,
			})
		}

		resp := register()
		t.RequireStatus(resp, 200, 201)

		again := register()
		assert.True(t, again.StatusCode >= 400 && again.StatusCode < 500,
			"duplicate registration returned HTTP %d", again.StatusCode)
		t.AssertErrorMessage(again)
		t.Detailf("Registered %s; duplicate got HTTP %d", params.Email, again.StatusCode)
	})
}
