package apitests

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// syntheticUserID returns a user ID that no real account has, so that records created by a test
// can be found again and told apart from real data.
func syntheticUserID() string {
	return "astroprobe-" + uuid.NewString()
}

// syntheticKey returns a catalog key that no seeded service uses.
func syntheticKey() string {
	return "astroprobe-svc-" + uuid.NewString()
}

// syntheticEmail returns a unique address in a reserved domain.
func syntheticEmail() string {
	return "astroprobe+" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16] + "@example.com"
}

// futureSlot returns an appointment time a week from now, on the hour.
func futureSlot() time.Time {
	return time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Hour)
}
