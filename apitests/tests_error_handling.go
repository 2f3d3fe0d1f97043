package apitests

import (
	"github.com/celestia-astro/astroprobe/framework"
)

func DoErrorHandlingTests(t *T) {
	t.Run("invalid endpoint", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{
			Method:   "POST",
			Path:     "/api/invalid-endpoint",
			JSONBody: map[string]interface{}{},
		})
		t.RequireStatus(resp, 404)
		obj := t.RequireObject(resp)
		t.RequireProperties(resp, obj, "error")
		t.Detailf("HTTP 404: %s", obj.GetByKey("error").StringValue())
	})
}
