package mockapi

import (
	"testing"
	"time"

	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeChartAtJ2000(t *testing.T) {
	chart, err := computeChart("u1", servicedef.BirthInfo{BirthDate: "2000-01-01", BirthTime: "12:00"}, time.Now())
	require.NoError(t, err)
	require.Len(t, chart.Planets, 10)

	sun := chart.Planets[0]
	assert.Equal(t, "Sun", sun.Planet)
	assert.Equal(t, "Capricorn", sun.Sign)
	assert.InDelta(t, 280.46, sun.Longitude, 0.01)
	assert.InDelta(t, 10.46, sun.Degree, 0.01)
	assert.Equal(t, "u1", chart.UserID)
}

func TestComputeChartHousesAreInRange(t *testing.T) {
	for _, clock := range []string{"00:00", "05:59", "06:00", "13:30", "23:59"} {
		chart, err := computeChart("u", servicedef.BirthInfo{BirthDate: "1985-11-03", BirthTime: clock}, time.Now())
		require.NoError(t, err)
		for _, p := range chart.Planets {
			assert.GreaterOrEqual(t, p.House, 1, clock)
			assert.LessOrEqual(t, p.House, 12, clock)
			assert.GreaterOrEqual(t, p.Longitude, float64(0))
			assert.Less(t, p.Longitude, float64(360))
		}
	}
}

func TestComputeChartRequiresDate(t *testing.T) {
	_, err := computeChart("u", servicedef.BirthInfo{}, time.Now())
	assert.Equal(t, errBirthInfoRequired, err)

	_, err = computeChart("u", servicedef.BirthInfo{BirthDate: "17/05/1990"}, time.Now())
	assert.Error(t, err)
}
