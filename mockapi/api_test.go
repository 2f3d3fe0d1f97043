package mockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"golang.org/x/crypto/bcrypt"
)

const (
	clientEmail    = "client@example.com"
	clientPassword = "client-pass"
	adminEmail     = "admin@example.com"
	adminPassword  = "admin-pass"
	webhookSecret  = "whsec_mock"
)

type fixture struct {
	api    *API
	target *framework.TargetService
}

func withMockAPI(t *testing.T, action func(f fixture)) {
	api, err := New(Options{
		WebhookSecret: webhookSecret,
		BcryptCost:    bcrypt.MinCost,
		Users: []UserSeed{
			{Email: clientEmail, Name: "Client", Password: clientPassword,
				BirthInfo: &servicedef.BirthInfo{BirthDate: "1990-05-17", BirthTime: "08:30", BirthPlace: "Chicago"}},
			{Email: adminEmail, Name: "Admin", Password: adminPassword, Role: servicedef.RoleAdmin},
		},
	})
	require.NoError(t, err)
	httphelpers.WithServer(api, func(server *httptest.Server) {
		action(fixture{api: api, target: framework.NewTargetService(server.URL, 5*time.Second, nil)})
	})
}

func do(t *testing.T, s *framework.Session, r framework.Request) *framework.Response {
	resp, err := s.Do(context.Background(), r)
	require.NoError(t, err)
	return resp
}

func signIn(t *testing.T, f fixture, email, password string) (*framework.Session, *framework.Response) {
	s := f.target.NewSession(nil)
	csrf := do(t, s, framework.Request{Path: "/api/auth/csrf"})
	token := csrf.JSON.GetByKey("csrfToken").StringValue()
	require.NotEmpty(t, token)
	resp := do(t, s, framework.Request{
		Method: "POST",
		Path:   "/api/auth/callback/credentials",
		FormBody: url.Values{
			"email":       {email},
			"password":    {password},
			"csrfToken":   {token},
			"callbackUrl": {f.target.URL("/portal")},
			"json":        {"true"},
		},
	})
	return s, resp
}

func TestHealthAndFallback(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s := f.target.NewSession(nil)
		resp := do(t, s, framework.Request{Path: "/api"})
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, servicedef.HealthMessage, resp.JSON.GetByKey("message").StringValue())

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/invalid-endpoint", JSONBody: map[string]string{"test": "data"}})
		assert.Equal(t, 404, resp.StatusCode)
		assert.Equal(t, servicedef.InvalidEndpointError, resp.JSON.GetByKey("error").StringValue())
	})
}

func TestServicesCatalog(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		resp := do(t, f.target.NewSession(nil), framework.Request{Path: "/api/services"})
		require.Equal(t, 200, resp.StatusCode)
		var services []servicedef.Service
		require.NoError(t, json.Unmarshal(resp.Body, &services))
		var keys []string
		for _, s := range services {
			keys = append(keys, s.Key)
			assert.True(t, s.Active)
			assert.Greater(t, s.Price, float64(0))
		}
		assert.Equal(t, servicedef.SeededServiceKeys, keys)
	})
}

func TestSessionsValidationAndOrdering(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s := f.target.NewSession(nil)
		resp := do(t, s, framework.Request{Method: "POST", Path: "/api/sessions", JSONBody: servicedef.CreateSessionParams{}})
		assert.Equal(t, 400, resp.StatusCode)

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/sessions", JSONBody: servicedef.CreateSessionParams{
			ServiceKey: "no-such-service", ScheduledAt: "2030-01-01T10:00:00Z"}})
		assert.Equal(t, 404, resp.StatusCode)

		var ids []string
		for _, key := range []string{"birth-chart", "follow-up"} {
			resp = do(t, s, framework.Request{Method: "POST", Path: "/api/sessions", JSONBody: servicedef.CreateSessionParams{
				ServiceKey: key, ScheduledAt: "2030-01-01T10:00:00Z", UserID: "sample-user"}})
			require.Equal(t, 201, resp.StatusCode)
			assert.Equal(t, servicedef.SessionStatusPending, resp.JSON.GetByKey("status").StringValue())
			assert.Equal(t, servicedef.PaymentStatusUnpaid, resp.JSON.GetByKey("paymentStatus").StringValue())
			ids = append(ids, resp.JSON.GetByKey("id").StringValue())
		}
		do(t, s, framework.Request{Method: "POST", Path: "/api/sessions", JSONBody: servicedef.CreateSessionParams{
			ServiceKey: "follow-up", ScheduledAt: "2030-01-01T10:00:00Z", UserID: "someone-else"}})

		resp = do(t, s, framework.Request{Path: "/api/sessions", Query: url.Values{"userId": {"sample-user"}}})
		require.Equal(t, 200, resp.StatusCode)
		require.Equal(t, 2, resp.JSON.Count())
		assert.Equal(t, ids[1], resp.JSON.GetByIndex(0).GetByKey("id").StringValue())
		assert.Equal(t, ids[0], resp.JSON.GetByIndex(1).GetByKey("id").StringValue())
	})
}

func TestCheckoutAndWebhooks(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s := f.target.NewSession(nil)
		resp := do(t, s, framework.Request{Method: "POST", Path: "/api/payments/v1/checkout/session",
			JSONBody: servicedef.CheckoutSessionParams{ServiceKey: "nope"}})
		assert.Equal(t, 404, resp.StatusCode)

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/sessions", JSONBody: servicedef.CreateSessionParams{
			ServiceKey: "personal-tarot", ScheduledAt: "2030-01-01T10:00:00Z", UserID: clientEmail}})
		sessionID := resp.JSON.GetByKey("id").StringValue()

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/payments/v1/checkout/session",
			JSONBody: servicedef.CheckoutSessionParams{ServiceKey: "personal-tarot", SessionID: sessionID, UserEmail: clientEmail}})
		require.Equal(t, 200, resp.StatusCode)
		checkoutID := resp.JSON.GetByKey("checkoutSessionId").StringValue()
		assert.True(t, strings.HasPrefix(checkoutID, "cs_test_"))
		assert.NotEmpty(t, resp.JSON.GetByKey("url").StringValue())

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/webhook/stripe", RawBody: []byte(`{}`)})
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, servicedef.WebhookVerificationFailure, resp.JSON.GetByKey("error").StringValue())

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/stripe/webhook", RawBody: []byte(`{}`)})
		assert.Equal(t, 400, resp.StatusCode)
		assert.Contains(t, string(resp.Body), "Webhook Error")

		event := servicedef.WebhookEvent{
			ID:   "evt_1",
			Type: servicedef.EventCheckoutSessionCompleted,
			Data: servicedef.WebhookEventData{Object: servicedef.CheckoutSessionObject{
				ID:            checkoutID,
				CustomerEmail: clientEmail,
				AmountTotal:   8500,
				Metadata:      map[string]string{"sessionId": sessionID, "serviceName": "Personal Tarot Reading"},
			}},
		}
		payload, _ := json.Marshal(event)
		stale := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload: payload, Secret: webhookSecret, Timestamp: time.Now().Add(-time.Hour)})
		resp = do(t, s, framework.Request{
			Method:  "POST",
			Path:    "/api/stripe/webhook",
			RawBody: payload,
			Headers: http.Header{servicedef.StripeSignatureHeader: {stale.Header}},
		})
		assert.Equal(t, 400, resp.StatusCode)
		assert.Empty(t, f.api.SentEmails())

		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})
		resp = do(t, s, framework.Request{
			Method:  "POST",
			Path:    "/api/stripe/webhook",
			RawBody: payload,
			Headers: http.Header{servicedef.StripeSignatureHeader: {signed.Header}},
		})
		require.Equal(t, 200, resp.StatusCode)

		resp = do(t, s, framework.Request{Path: "/api/sessions", Query: url.Values{"userId": {clientEmail}}})
		assert.Equal(t, servicedef.PaymentStatusPaid, resp.JSON.GetByIndex(0).GetByKey("paymentStatus").StringValue())
		assert.Equal(t, servicedef.SessionStatusBooked, resp.JSON.GetByIndex(0).GetByKey("status").StringValue())
		require.Len(t, f.api.SentEmails(), 1)
		assert.Equal(t, clientEmail, f.api.SentEmails()[0].To)
	})
}

func TestLegacyCheckoutAndBookings(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s := f.target.NewSession(nil)
		resp := do(t, s, framework.Request{Method: "POST", Path: "/api/bookings", JSONBody: map[string]string{}})
		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 0, resp.JSON.Count())

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/create-checkout", JSONBody: servicedef.LegacyCheckoutParams{
			ServiceID: "personal_tarot", UserID: "test@example.com", ServiceName: "Personal Tarot Reading", Price: 85, Duration: 60}})
		require.Equal(t, 200, resp.StatusCode)
		assert.NotEmpty(t, resp.JSON.GetByKey("sessionId").StringValue())

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/bookings", JSONBody: map[string]string{}})
		assert.Equal(t, 1, resp.JSON.Count())
	})
}

func TestSendEmail(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s := f.target.NewSession(nil)
		resp := do(t, s, framework.Request{Method: "POST", Path: "/api/send-email",
			JSONBody: servicedef.SendEmailParams{To: "x@example.com", Subject: "hi", HTML: "<p>hi</p>"}})
		require.Equal(t, 200, resp.StatusCode)
		assert.True(t, resp.JSON.GetByKey("success").BoolValue())
		assert.NotEmpty(t, resp.JSON.GetByKey("messageId").StringValue())

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/send-email", JSONBody: servicedef.SendEmailParams{}})
		assert.Equal(t, 500, resp.StatusCode)
	})
}

func TestCredentialsSignIn(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s, resp := signIn(t, f, clientEmail, clientPassword)
		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, f.target.URL("/portal"), resp.JSON.GetByKey("url").StringValue())

		resp = do(t, s, framework.Request{Path: "/api/auth/session"})
		assert.Equal(t, clientEmail, resp.JSON.GetByKey("user").GetByKey("email").StringValue())
		assert.Equal(t, servicedef.RoleClient, resp.JSON.GetByKey("user").GetByKey("role").StringValue())

		_, resp = signIn(t, f, clientEmail, "wrong")
		assert.Contains(t, resp.JSON.GetByKey("url").StringValue(), "error=CredentialsSignin")

		_, resp = signIn(t, f, "nobody@example.com", "wrong")
		assert.Contains(t, resp.JSON.GetByKey("url").StringValue(), "error=")
	})
}

func TestSignInWithoutCSRFIsRejectedWithRedirect(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		resp := do(t, f.target.NewSession(nil), framework.Request{
			Method:   "POST",
			Path:     "/api/auth/callback/credentials",
			FormBody: url.Values{"email": {clientEmail}, "password": {clientPassword}, "csrfToken": {"test-csrf-token"}},
		})
		assert.Equal(t, 302, resp.StatusCode)
		assert.Contains(t, resp.Location(), "error=MissingCSRF")
	})
}

func TestAnonymousSessionIsEmpty(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		resp := do(t, f.target.NewSession(nil), framework.Request{Path: "/api/auth/session"})
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 0, resp.JSON.Count())

		resp = do(t, f.target.NewSession(nil), framework.Request{Path: "/api/auth/providers"})
		assert.Equal(t, []string{"credentials", "google"}, sortedKeys(resp))
	})
}

func TestRegister(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s := f.target.NewSession(nil)
		params := servicedef.RegisterParams{Name: "New", Email: "new@example.com", Password: "secret123"}
		resp := do(t, s, framework.Request{Method: "POST", Path: "/api/register", JSONBody: params})
		assert.Equal(t, 201, resp.StatusCode)

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/register", JSONBody: params})
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, "User already exists", resp.JSON.GetByKey("error").StringValue())

		_, resp = signIn(t, f, "new@example.com", "secret123")
		assert.NotContains(t, resp.JSON.GetByKey("url").StringValue(), "error")
	})
}

func TestClientPortal(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		resp := do(t, f.target.NewSession(nil), framework.Request{Path: "/api/user/profile"})
		assert.Equal(t, 401, resp.StatusCode)

		s, _ := signIn(t, f, clientEmail, clientPassword)
		resp = do(t, s, framework.Request{Path: "/api/user/profile"})
		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, clientEmail, resp.JSON.GetByKey("email").StringValue())

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/user/notes", JSONBody: servicedef.SaveNotesParams{Notes: "mine"}})
		assert.Equal(t, 200, resp.StatusCode)
		resp = do(t, s, framework.Request{Path: "/api/user/notes"})
		assert.Equal(t, "mine", resp.JSON.GetByKey("personal").StringValue())
		assert.Equal(t, 0, resp.JSON.GetByKey("admin").Count())

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/user/generate-birth-chart"})
		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 10, resp.JSON.GetByKey("planets").Count())

		resp = do(t, s, framework.Request{Path: "/api/user/birth-chart"})
		assert.Equal(t, 10, resp.JSON.GetByKey("chart").GetByKey("planets").Count())

		resp = do(t, s, framework.Request{Path: "/api/admin/stats"})
		assert.Equal(t, 403, resp.StatusCode)
	})
}

func TestAdminPortal(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s, _ := signIn(t, f, adminEmail, adminPassword)
		resp := do(t, s, framework.Request{Path: "/api/admin/stats"})
		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, float64(2), resp.JSON.GetByKey("totalUsers").Float64Value())

		resp = do(t, s, framework.Request{Path: "/api/admin/users"})
		assert.Equal(t, 2, resp.JSON.Count())
		resp = do(t, s, framework.Request{Path: "/api/admin/revenue"})
		assert.Equal(t, 0, resp.JSON.Count())
		assert.True(t, resp.IsJSON)

		clientID, ok := f.api.UserID(clientEmail)
		require.True(t, ok)
		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/admin/generate-chart/" + clientID})
		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, clientID, resp.JSON.GetByKey("userId").StringValue())

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/admin/generate-chart/000000000000000000000000"})
		assert.Equal(t, 404, resp.StatusCode)

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/admin/publish-note",
			JSONBody: servicedef.PublishNoteParams{UserID: clientID, Title: "Reading", Content: "Mercury is direct"}})
		require.Equal(t, 200, resp.StatusCode)

		client, _ := signIn(t, f, clientEmail, clientPassword)
		resp = do(t, client, framework.Request{Path: "/api/user/notes"})
		require.Equal(t, 1, resp.JSON.GetByKey("admin").Count())
		assert.Equal(t, "Mercury is direct", resp.JSON.GetByKey("admin").GetByIndex(0).GetByKey("content").StringValue())
	})
}

func sortedKeys(resp *framework.Response) []string {
	keys := resp.JSON.Keys()
	sort.Strings(keys)
	return keys
}

func TestCreateService(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s := f.target.NewSession(nil)
		resp := do(t, s, framework.Request{Method: "POST", Path: "/api/services", JSONBody: servicedef.CreateServiceParams{
			Key: "moon-reading", Name: "Moon Reading", Price: 40, DurationMins: 30}})
		require.Equal(t, 201, resp.StatusCode)
		assert.Len(t, resp.JSON.GetByKey("id").StringValue(), 24)
		assert.True(t, resp.JSON.GetByKey("active").BoolValue())
		assert.NotEmpty(t, resp.JSON.GetByKey("createdAt").StringValue())

		inactive := false
		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/services", JSONBody: servicedef.CreateServiceParams{
			Key: "retired", Name: "Retired", Price: 10, DurationMins: 15, Active: &inactive}})
		require.Equal(t, 201, resp.StatusCode)
		assert.False(t, resp.JSON.GetByKey("active").BoolValue())

		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/services", RawBody: []byte("{")})
		assert.Equal(t, 500, resp.StatusCode)

		resp = do(t, s, framework.Request{Path: "/api/services"})
		var keys []string
		for i := 0; i < resp.JSON.Count(); i++ {
			keys = append(keys, resp.JSON.GetByIndex(i).GetByKey("key").StringValue())
		}
		assert.Contains(t, keys, "moon-reading")
		assert.NotContains(t, keys, "retired")
	})
}

func TestCalendarCreateEvent(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s := f.target.NewSession(nil)
		params := servicedef.CalendarEventParams{
			Summary:       "Birth Chart Analysis",
			StartDateTime: "2030-01-01T10:00:00-06:00",
			EndDateTime:   "2030-01-01T11:30:00-06:00",
			Attendees:     []string{clientEmail},
		}
		resp := do(t, s, framework.Request{Method: "POST", Path: "/api/calendar/create-event", JSONBody: params})
		require.Equal(t, 500, resp.StatusCode)
		assert.Equal(t, "Internal server error", resp.JSON.GetByKey("error").StringValue())
		assert.NotEmpty(t, resp.JSON.GetByKey("details").StringValue())

		params.AccessToken = "ya29.token"
		resp = do(t, s, framework.Request{Method: "POST", Path: "/api/calendar/create-event", JSONBody: params})
		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, params.Summary, resp.JSON.GetByKey("summary").StringValue())
		assert.Equal(t, servicedef.DefaultCalendarTimeZone, resp.JSON.GetByKey("start").GetByKey("timeZone").StringValue())
		assert.True(t, strings.HasPrefix(resp.JSON.GetByKey("meetLink").StringValue(), "https://meet.google.com/"))
	})
}

func TestPutAndDeleteAreHandledLikePost(t *testing.T) {
	withMockAPI(t, func(f fixture) {
		s := f.target.NewSession(nil)
		for _, method := range []string{"PUT", "DELETE"} {
			resp := do(t, s, framework.Request{Method: method, Path: "/api/bookings", JSONBody: map[string]string{}})
			require.Equal(t, 200, resp.StatusCode, method)
			assert.Equal(t, 0, resp.JSON.Count(), method)

			resp = do(t, s, framework.Request{Method: method, Path: "/api/invalid-endpoint", JSONBody: map[string]string{}})
			assert.Equal(t, 404, resp.StatusCode, method)
			assert.Equal(t, servicedef.InvalidEndpointError, resp.JSON.GetByKey("error").StringValue(), method)

			resp = do(t, s, framework.Request{Method: method, Path: "/api/services", JSONBody: map[string]string{}})
			assert.Equal(t, 405, resp.StatusCode, method)
		}
	})
}
