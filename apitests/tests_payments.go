package apitests

import (
	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/assert"
)

func DoPaymentsCheckoutTests(t *T) {
	t.Run("unknown service rejected", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{
			Method:   "POST",
			Path:     "/api/payments/v1/checkout/session",
			JSONBody: servicedef.CheckoutSessionParams{ServiceKey: "no-such-service"},
		})
		t.RequireStatus(resp, 404)
		t.Detailf("HTTP 404: %s", resp.Excerpt(excerptLength))
	})

	t.Run("checkout session for service", func(t *T) {
		t.RequireCapability(CapabilityStripe)
		resp := t.Do(t.Anonymous(), t.slow(framework.Request{
			Method: "POST",
			Path:   "/api/payments/v1/checkout/session",
			JSONBody: servicedef.CheckoutSessionParams{
				ServiceKey: bookingServiceKey,
				SuccessURL: t.Target().URL("/booking/success"),
				CancelURL:  t.Target().URL("/booking/cancel"),
			},
		}))
		t.RequireStatus(resp, 200)
		obj := t.RequireObject(resp)
		t.RequireProperties(resp, obj, "url", "checkoutSessionId")
		assert.Regexp(t, "^https?://", obj.GetByKey("url").StringValue())
		t.Detailf("Checkout session %s", obj.GetByKey("checkoutSessionId").StringValue())
	})
}
