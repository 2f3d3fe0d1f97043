package apitests

import (
	"time"

	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const bookingServiceKey = "general-reading"

func DoBookingSessionTests(t *T) {
	t.Run("missing fields rejected", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{
			Method:   "POST",
			Path:     "/api/sessions",
			JSONBody: servicedef.CreateSessionParams{Notes: "no service or time"},
		})
		t.RequireStatus(resp, 400)
		t.Detailf("HTTP 400: %s", resp.Excerpt(excerptLength))
	})

	t.Run("unknown service rejected", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{
			Method: "POST",
			Path:   "/api/sessions",
			JSONBody: servicedef.CreateSessionParams{
				ServiceKey:  "no-such-service",
				ScheduledAt: futureSlot().Format(time.RFC3339),
			},
		})
		t.RequireStatus(resp, 404)
		t.Detailf("HTTP 404: %s", resp.Excerpt(excerptLength))
	})

	t.Run("create session", func(t *T) {
		t.RequireCapability(CapabilityWrites)
		service := findService(t, bookingServiceKey)
		userID := syntheticUserID()
		session := createSession(t, userID, futureSlot())

		assert.NotEmpty(t, session.GetByKey("id").StringValue())
		assert.Equal(t, userID, session.GetByKey("userId").StringValue())
		assert.Equal(t, servicedef.SessionStatusPending, session.GetByKey("status").StringValue())
		assert.Equal(t, servicedef.PaymentStatusUnpaid, session.GetByKey("paymentStatus").StringValue())
		assert.Equal(t, service.GetByKey("price").Float64Value(), session.GetByKey("amount").Float64Value())
		assert.Equal(t, service.GetByKey("durationMins").IntValue(), session.GetByKey("durationMins").IntValue())
		t.Detailf("Created session %s", session.GetByKey("id").StringValue())
	})

	t.Run("sessions listed for user newest first", func(t *T) {
		t.RequireCapability(CapabilityWrites)
		userID := syntheticUserID()
		first := createSession(t, userID, futureSlot())
		second := createSession(t, userID, futureSlot().Add(time.Hour))

		resp := t.Do(t.Anonymous(), framework.Request{
			Path:  "/api/sessions",
			Query: map[string][]string{"userId": {userID}},
		})
		t.RequireStatus(resp, 200)
		list := t.RequireArray(resp)
		require.Equal(t, 2, list.Count(), "expected only the two sessions created for %s", userID)
		for i := 0; i < list.Count(); i++ {
			assert.Equal(t, userID, list.GetByIndex(i).GetByKey("userId").StringValue())
		}
		assert.Equal(t, second.GetByKey("id").StringValue(), list.GetByIndex(0).GetByKey("id").StringValue())
		assert.Equal(t, first.GetByKey("id").StringValue(), list.GetByIndex(1).GetByKey("id").StringValue())
		t.Detailf("Found %d sessions", list.Count())
	})
}

func createSession(t *T, userID string, at time.Time) ldvalue.Value {
	resp := t.Do(t.Anonymous(), framework.Request{
		Method: "POST",
		Path:   "/api/sessions",
		JSONBody: servicedef.CreateSessionParams{
			ServiceKey:  bookingServiceKey,
			ScheduledAt: at.Format(time.RFC3339),
			UserID:      userID,
			Notes:       "created by astroprobe",
		},
	})
	t.RequireStatus(resp, 201)
	obj := t.RequireObject(resp)
	t.RequireProperties(resp, obj, "id", "status", "paymentStatus", "amount", "durationMins")
	return obj
}
