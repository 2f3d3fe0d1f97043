package mockapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/google/uuid"
)

// The calendar client reports this when it is asked to act without any credentials.
var errNoCalendarCredentials = errors.New("No access, refresh token, API key or refresh handler callback is set.")

// createCalendarEvent stands in for inserting a Google Calendar event with a Meet
// conference. Any non-empty access token is accepted.
func (a *API) createCalendarEvent(w http.ResponseWriter, req *http.Request) {
	var params servicedef.CalendarEventParams
	if err := readJSON(req, &params); err != nil {
		writeInternalError(w, err)
		return
	}
	if params.AccessToken == "" {
		writeInternalError(w, errNoCalendarCredentials)
		return
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:26]
	meetLink := "https://meet.google.com/" + id[0:3] + "-" + id[3:7] + "-" + id[7:10]
	writeJSON(w, http.StatusOK, servicedef.CalendarEvent{
		ID:       id,
		Summary:  params.Summary,
		Start:    servicedef.CalendarEventTime{DateTime: params.StartDateTime, TimeZone: servicedef.DefaultCalendarTimeZone},
		End:      servicedef.CalendarEventTime{DateTime: params.EndDateTime, TimeZone: servicedef.DefaultCalendarTimeZone},
		MeetLink: &meetLink,
		HTMLLink: "https://www.google.com/calendar/event?eid=" + id,
	})
}
