package mockapi

import (
	"errors"
	"math"
	"time"

	"github.com/celestia-astro/astroprobe/servicedef"
)

var errBirthInfoRequired = errors.New("Birth date is required to generate a chart")

var zodiacSigns = [12]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// Mean longitude at J2000 and daily motion, in degrees.
var meanElements = []struct {
	planet string
	l0     float64
	rate   float64
}{
	{"Sun", 280.460, 0.9856474},
	{"Moon", 218.316, 13.176396},
	{"Mercury", 252.251, 4.0923344},
	{"Venus", 181.980, 1.6021302},
	{"Mars", 355.433, 0.5240207},
	{"Jupiter", 34.351, 0.0830853},
	{"Saturn", 50.077, 0.0334442},
	{"Uranus", 314.055, 0.0117259},
	{"Neptune", 304.349, 0.0059810},
	{"Pluto", 238.929, 0.0039757},
}

var j2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// computeChart places each body by its mean longitude at the moment of birth. Houses are
// whole-sign houses counted from an ascendant that advances one sign every two hours from
// the Sun's sign at 6:00.
func computeChart(userID string, info servicedef.BirthInfo, now time.Time) (servicedef.Chart, error) {
	if info.BirthDate == "" {
		return servicedef.Chart{}, errBirthInfoRequired
	}
	clock := info.BirthTime
	if clock == "" {
		clock = "12:00"
	}
	birth, err := time.Parse("2006-01-02 15:04", info.BirthDate+" "+clock)
	if err != nil {
		return servicedef.Chart{}, err
	}

	days := birth.Sub(j2000).Hours() / 24
	longitudes := make([]float64, len(meanElements))
	for i, e := range meanElements {
		longitudes[i] = normalizeDegrees(e.l0 + e.rate*days)
	}

	sunSign := int(longitudes[0] / 30)
	hoursFromSix := float64(birth.Hour()) + float64(birth.Minute())/60 - 6
	ascendant := (sunSign + int(math.Floor(hoursFromSix/2)) + 24) % 12

	chart := servicedef.Chart{UserID: userID, GeneratedAt: now.UTC()}
	for i, e := range meanElements {
		sign := int(longitudes[i] / 30)
		chart.Planets = append(chart.Planets, servicedef.PlanetPosition{
			Planet:    e.planet,
			Sign:      zodiacSigns[sign],
			Degree:    round2(math.Mod(longitudes[i], 30)),
			House:     (sign-ascendant+12)%12 + 1,
			Longitude: round2(longitudes[i]),
		})
	}
	return chart, nil
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
