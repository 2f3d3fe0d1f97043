package apitests

import (
	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/assert"
)

func DoLegacyCheckoutTests(t *T) {
	t.Run("create checkout", func(t *T) {
		t.RequireCapability(CapabilityStripe)
		resp := t.Do(t.Anonymous(), t.slow(framework.Request{
			Method: "POST",
			Path:   "/api/create-checkout",
			JSONBody: servicedef.LegacyCheckoutParams{
				ServiceID:   "general-reading",
				UserID:      syntheticUserID(),
				ServiceName: "General Reading",
				Price:       65,
				Duration:    45,
			},
		}))
		t.RequireStatus(resp, 200)
		obj := t.RequireObject(resp)
		t.RequireProperties(resp, obj, "url", "sessionId")
		t.Detailf("Checkout session %s", obj.GetByKey("sessionId").StringValue())
		assert.Regexp(t, "^https?://", obj.GetByKey("url").StringValue())
	})
}
