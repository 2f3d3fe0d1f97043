package apitests

import (
	"time"

	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/assert"
)

func DoCalendarTests(t *T) {
	// Without an OAuth token the calendar client cannot insert anything, so this is safe
	// to run against any deployment.
	t.Run("event without access token is rejected", func(t *T) {
		start := futureSlot()
		resp := t.Do(t.Anonymous(), t.slow(framework.Request{
			Method: "POST",
			Path:   "/api/calendar/create-event",
			JSONBody: servicedef.CalendarEventParams{
				Summary:       "astroprobe calendar check",
				StartDateTime: start.Format(time.RFC3339),
				EndDateTime:   start.Add(time.Hour).Format(time.RFC3339),
			},
		}))
		t.RequireStatus(resp, 500)
		obj := t.RequireObject(resp)
		t.RequireProperties(resp, obj, "error", "details")
		assert.NotEmpty(t, obj.GetByKey("details").StringValue(), "details is empty")
		t.Detailf("HTTP 500: %s", obj.GetByKey("details").StringValue())
	})
}
