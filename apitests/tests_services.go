package apitests

import (
	"fmt"

	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func DoServiceCatalogTests(t *T) {
	t.Run("list services", func(t *T) {
		services := requireServices(t)
		t.Detailf("Found %d services", services.Count())
		assert.NotZero(t, services.Count(), "catalog is empty")
	})

	t.Run("services have required fields", func(t *T) {
		services := requireServices(t)
		for i := 0; i < services.Count(); i++ {
			s := services.GetByIndex(i)
			label := fmt.Sprintf("service %d (%s)", i, s.GetByKey("key").StringValue())
			for _, key := range []string{"id", "key", "name"} {
				assert.NotEmpty(t, s.GetByKey(key).StringValue(), "%s: missing %s", label, key)
			}
			assert.Equal(t, ldvalue.NumberType, s.GetByKey("price").Type(), "%s: price is not a number", label)
			assert.Equal(t, ldvalue.NumberType, s.GetByKey("durationMins").Type(), "%s: durationMins is not a number", label)
			assert.True(t, s.GetByKey("active").BoolValue(), "%s: not active", label)
		}
	})

	t.Run("seeded services present", func(t *T) {
		services := requireServices(t)
		found := make(map[string]bool)
		for i := 0; i < services.Count(); i++ {
			found[services.GetByIndex(i).GetByKey("key").StringValue()] = true
		}
		var missing []string
		for _, key := range servicedef.SeededServiceKeys {
			if !found[key] {
				missing = append(missing, key)
			}
		}
		assert.Empty(t, missing, "seeded services missing from catalog")
	})

	t.Run("create service", func(t *T) {
		t.RequireCapability(CapabilityWrites)
		key := syntheticKey()
		resp := t.Do(t.Anonymous(), framework.Request{
			Method: "POST",
			Path:   "/api/services",
			JSONBody: servicedef.CreateServiceParams{
				Key:          key,
				Name:         "Astroprobe check " + key,
				Description:  "Created by an automated check",
				Price:        1,
				DurationMins: 15,
			},
		})
		t.RequireStatus(resp, 201)
		obj := t.RequireObject(resp)
		t.RequireProperties(resp, obj, "id")
		assert.Equal(t, key, obj.GetByKey("key").StringValue())
		assert.True(t, obj.GetByKey("active").BoolValue(), "service was not created active")
		t.Detailf("HTTP 201: created %s", obj.GetByKey("id").StringValue())
	})
}

func requireServices(t *T) ldvalue.Value {
	resp := t.Do(t.Anonymous(), framework.Request{Path: "/api/services"})
	t.RequireStatus(resp, 200)
	return t.RequireArray(resp)
}

// findService returns the catalog entry with the given key, failing the test if it is absent.
func findService(t *T, key string) ldvalue.Value {
	services := requireServices(t)
	for i := 0; i < services.Count(); i++ {
		if s := services.GetByIndex(i); s.GetByKey("key").StringValue() == key {
			return s
		}
	}
	t.Detailf("Service %q not in catalog", key)
	require.Fail(t, "service not found", "no service with key %q", key)
	return ldvalue.Null()
}
