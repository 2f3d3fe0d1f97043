// Package servicedef contains the request and response shapes of the booking API, shared by
// the tests and by the mock implementation of the API.
package servicedef

import "time"

const (
	SessionStatusPending = "PENDING"
	SessionStatusBooked  = "BOOKED"

	PaymentStatusUnpaid = "UNPAID"
	PaymentStatusPaid   = "PAID"

	RoleClient = "client"
	RoleAdmin  = "admin"

	EventCheckoutSessionCompleted = "checkout.session.completed"

	HealthMessage              = "API is working"
	WebhookVerificationFailure = "Webhook signature verification failed"
	InvalidEndpointError       = "Invalid endpoint"

	// StripeSignatureHeader carries the signature of a webhook delivery.
	StripeSignatureHeader = "Stripe-Signature"

	DefaultCalendarTimeZone = "America/Chicago"
)

// SeededServiceKeys are the catalog entries that every deployment is seeded with.
var SeededServiceKeys = []string{
	"general-reading",
	"personal-tarot",
	"birth-chart",
	"chart-tarot-combo",
	"follow-up",
}

// LegacyCheckoutParams is the body of POST /api/create-checkout.
type LegacyCheckoutParams struct {
	ServiceID   string  `json:"serviceId"`
	UserID      string  `json:"userId"`
	ServiceName string  `json:"serviceName"`
	Price       float64 `json:"price"`
	Duration    int     `json:"duration"`
}

type LegacyCheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// Service is one entry of the service catalog returned by GET /api/services.
type Service struct {
	ID           string  `json:"id"`
	Key          string  `json:"key"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price"`
	DurationMins int     `json:"durationMins"`
	Active       bool    `json:"active"`
	SortOrder    int     `json:"sortOrder,omitempty"`
}

// CreateServiceParams is the body of POST /api/services. A nil Active means the service is
// created active.
type CreateServiceParams struct {
	Key          string  `json:"key,omitempty"`
	Name         string  `json:"name,omitempty"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price,omitempty"`
	DurationMins int     `json:"durationMins,omitempty"`
	Active       *bool   `json:"active,omitempty"`
	SortOrder    int     `json:"sortOrder,omitempty"`
}

// CreatedService is the response of POST /api/services.
type CreatedService struct {
	Service
	CreatedAt time.Time `json:"createdAt"`
}

// CalendarEventParams is the body of POST /api/calendar/create-event. AccessToken is the
// organizer's Google OAuth token.
type CalendarEventParams struct {
	Summary       string   `json:"summary,omitempty"`
	Description   string   `json:"description,omitempty"`
	StartDateTime string   `json:"startDateTime,omitempty"`
	EndDateTime   string   `json:"endDateTime,omitempty"`
	Attendees     []string `json:"attendees,omitempty"`
	AccessToken   string   `json:"accessToken,omitempty"`
}

type CalendarEventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// CalendarEvent is the response of POST /api/calendar/create-event. MeetLink is null when
// the calendar did not attach a video conference.
type CalendarEvent struct {
	ID       string            `json:"id"`
	Summary  string            `json:"summary"`
	Start    CalendarEventTime `json:"start"`
	End      CalendarEventTime `json:"end"`
	MeetLink *string           `json:"meetLink"`
	HTMLLink string            `json:"htmlLink"`
}

// CreateSessionParams is the body of POST /api/sessions.
type CreateSessionParams struct {
	ServiceKey  string `json:"serviceKey,omitempty"`
	ScheduledAt string `json:"scheduledAt,omitempty"`
	Notes       string `json:"notes,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

// Session is a booked consultation.
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ReaderID      string    `json:"readerId,omitempty"`
	ServiceKey    string    `json:"serviceKey"`
	ServiceName   string    `json:"serviceName"`
	ScheduledAt   time.Time `json:"scheduledAt"`
	DurationMins  int       `json:"durationMins"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CheckoutSessionParams is the body of POST /api/payments/v1/checkout/session.
type CheckoutSessionParams struct {
	ServiceKey string `json:"serviceKey"`
	SessionID  string `json:"sessionId,omitempty"`
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
	UserEmail  string `json:"userEmail,omitempty"`
}

type CheckoutSessionResponse struct {
	URL               string `json:"url"`
	CheckoutSessionID string `json:"checkoutSessionId"`
}

// WebhookEvent is the subset of a Stripe event that the webhook routes look at.
type WebhookEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	Object CheckoutSessionObject `json:"object"`
}

type CheckoutSessionObject struct {
	ID            string            `json:"id"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	AmountTotal   int               `json:"amount_total"`
	PaymentIntent string            `json:"payment_intent,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// SendEmailParams is the body of POST /api/send-email. Type selects a template, in which
// case Subject and HTML are ignored.
type SendEmailParams struct {
	To      string                 `json:"to"`
	Subject string                 `json:"subject,omitempty"`
	HTML    string                 `json:"html,omitempty"`
	Type    string                 `json:"type,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

type SendEmailResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

// RegisterParams is the body of POST /api/register.
type RegisterParams struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	BirthInfo *BirthInfo `json:"birthInfo,omitempty"`
}

type BirthInfo struct {
	BirthDate  string `json:"birthDate,omitempty"`
	BirthTime  string `json:"birthTime,omitempty"`
	BirthPlace string `json:"birthPlace,omitempty"`
}

// Profile is returned by GET /api/user/profile.
type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	BirthInfo *BirthInfo `json:"birthInfo,omitempty"`
}

// Notes is returned by GET /api/user/notes: the client's own notes plus the notes an
// admin has published for them.
type Notes struct {
	Personal string      `json:"personal"`
	Admin    []AdminNote `json:"admin"`
}

type AdminNote struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// SaveNotesParams is the body of POST /api/user/notes.
type SaveNotesParams struct {
	Notes string `json:"notes"`
}

// PublishNoteParams is the body of POST /api/admin/publish-note.
type PublishNoteParams struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ChartRequestParams is the optional body of the chart generation endpoints.
type ChartRequestParams struct {
	BirthDate  string `json:"birthDate,omitempty"`
	BirthTime  string `json:"birthTime,omitempty"`
	BirthPlace string `json:"birthPlace,omitempty"`
}

// Chart is a generated natal chart.
type Chart struct {
	UserID      string           `json:"userId"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Planets     []PlanetPosition `json:"planets"`
}

type PlanetPosition struct {
	Planet    string  `json:"planet"`
	Sign      string  `json:"sign"`
	Degree    float64 `json:"degree"`
	House     int     `json:"house"`
	Longitude float64 `json:"longitude"`
}

// AdminStats is returned by GET /api/admin/stats.
type AdminStats struct {
	TotalUsers     int     `json:"totalUsers"`
	TotalSessions  int     `json:"totalSessions"`
	PendingSession int     `json:"pendingSessions"`
	TotalRevenue   float64 `json:"totalRevenue"`
}

// RevenueEntry is one element of GET /api/admin/revenue.
type RevenueEntry struct {
	Month    string  `json:"month"`
	Amount   float64 `json:"amount"`
	Sessions int     `json:"sessions"`
}

// Providers is the response of GET /api/auth/providers, keyed by provider ID.
type Providers map[string]Provider

type Provider struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SignInURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}

type CSRFResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// AuthSession is the response of GET /api/auth/session. It is an empty object if there
// is no signed-in user.
type AuthSession struct {
	User    *SessionUser `json:"user,omitempty"`
	Expires string       `json:"expires,omitempty"`
}

type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// SignInResponse is the JSON form of the credentials callback response.
type SignInResponse struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// ErrorResponse is the generic JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
