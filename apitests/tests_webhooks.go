package apitests

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	legacyWebhookPath = "/api/webhook/stripe"
	webhookPath       = "/api/stripe/webhook"
)

func DoWebhookTests(t *T) {
	t.Run("legacy route rejects unsigned event", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{
			Method:  "POST",
			Path:    legacyWebhookPath,
			RawBody: unmatchedCheckoutEvent(t),
		})
		t.RequireStatus(resp, 400)
		assert.Equal(t, servicedef.WebhookVerificationFailure, t.RequireObject(resp).GetByKey("error").StringValue())
		t.Detailf("HTTP 400: %s", resp.Excerpt(excerptLength))
	})

	t.Run("route rejects unsigned event", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{
			Method:  "POST",
			Path:    webhookPath,
			RawBody: unmatchedCheckoutEvent(t),
		})
		t.RequireStatus(resp, 400)
		assert.True(t, strings.HasPrefix(string(resp.Body), "Webhook Error"),
			"unexpected body: %s", resp.Excerpt(excerptLength))
		t.Detailf("HTTP 400: %s", resp.Excerpt(excerptLength))
	})

	t.Run("signed event accepted", func(t *T) {
		t.RequireCapability(CapabilityWebhookSecret)
		resp := postSignedEvent(t, webhookPath)
		t.RequireStatus(resp, 200)
		t.Detailf("HTTP 200: %s", resp.Excerpt(excerptLength))
	})

	t.Run("legacy route accepts signed event", func(t *T) {
		t.RequireCapability(CapabilityWebhookSecret)
		resp := postSignedEvent(t, legacyWebhookPath)
		t.RequireStatus(resp, 200)
		assert.True(t, t.RequireObject(resp).GetByKey("received").BoolValue())
		t.Detailf("HTTP 200: %s", resp.Excerpt(excerptLength))
	})
}

// unmatchedCheckoutEvent is a completed checkout that refers to no real session and has no customer
// address, so delivering it has no visible effect.
func unmatchedCheckoutEvent(t *T) []byte {
	event := servicedef.WebhookEvent{
		ID:   "evt_astroprobe_" + uuid.NewString(),
		Type: servicedef.EventCheckoutSessionCompleted,
		Data: servicedef.WebhookEventData{
			Object: servicedef.CheckoutSessionObject{
				ID:          "cs_test_astroprobe_" + uuid.NewString(),
				AmountTotal: 0,
				Metadata:    map[string]string{"source": "astroprobe"},
			},
		},
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func postSignedEvent(t *T, path string) *framework.Response {
	payload := unmatchedCheckoutEvent(t)
	headers := make(http.Header)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    t.Config().WebhookSecret,
		Timestamp: time.Now(),
	})
	headers.Set(servicedef.StripeSignatureHeader, signed.Header)
	headers.Set("Content-Type", "application/json")
	return t.Do(t.Anonymous(), framework.Request{
		Method:  "POST",
		Path:    path,
		Headers: headers,
		RawBody: payload,
	})
}
