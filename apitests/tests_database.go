package apitests

import (
	"github.com/celestia-astro/astroprobe/framework"
)

func DoDatabaseTests(t *T) {
	t.Run("bookings query", func(t *T) {
		resp := t.Do(t.Anonymous(), framework.Request{
			Method:   "POST",
			Path:     "/api/bookings",
			JSONBody: map[string]interface{}{},
		})
		t.RequireStatus(resp, 200)
		bookings := t.RequireArray(resp)
		t.Detailf("Found %d bookings", bookings.Count())
	})

	for _, method := range []string{"PUT", "DELETE"} {
		t.Run("bookings query via "+method, func(t *T) {
			resp := t.Do(t.Anonymous(), framework.Request{
				Method:   method,
				Path:     "/api/bookings",
				JSONBody: map[string]interface{}{},
			})
			t.RequireStatus(resp, 200)
			bookings := t.RequireArray(resp)
			t.Detailf("Found %d bookings", bookings.Count())
		})
	}
}
