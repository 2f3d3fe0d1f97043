package apitests

import (
	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/assert"
)

func DoHealthTests(t *T) {
	t.Run("API root responds", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{Path: "/api"})
		t.RequireStatus(resp, 200)
		message := t.RequireObject(resp).GetByKey("message").StringValue()
		t.Detailf("HTTP 200: %s", message)
		assert.Equal(t, servicedef.HealthMessage, message)
	})
}
