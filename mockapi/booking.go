package mockapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var objectIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

var errNoWebhookSecret = errors.New("no webhook secret configured")

func seededServices() []servicedef.Service {
	type seed struct {
		key, name, description string
		price                  float64
		mins                   int
	}
	seeds := []seed{
		{"general-reading", "General or Purpose Reading", "Guidance on a life question or purpose", 65, 45},
		{"personal-tarot", "Personal Tarot Reading", "An in-depth tarot spread for your situation", 85, 60},
		{"birth-chart", "Birth Chart Analysis", "A full reading of your natal chart", 120, 90},
		{"chart-tarot-combo", "Birth Chart + Tarot Combo", "Natal chart analysis followed by a tarot reading", 165, 120},
		{"follow-up", "Follow Up Session", "A short session following a previous reading", 45, 30},
	}
	ret := make([]servicedef.Service, 0, len(seeds))
	for i, s := range seeds {
		ret = append(ret, servicedef.Service{
			ID:           primitive.NewObjectID().Hex(),
			Key:          s.key,
			Name:         s.name,
			Description:  s.description,
			Price:        s.price,
			DurationMins: s.mins,
			Active:       true,
			SortOrder:    i + 1,
		})
	}
	return ret
}

func (a *API) findService(key string) (servicedef.Service, bool) {
	for _, s := range a.services {
		if s.Key == key && s.Active {
			return s, true
		}
	}
	return servicedef.Service{}, false
}

func (a *API) createService(w http.ResponseWriter, req *http.Request) {
	var params servicedef.CreateServiceParams
	if err := readJSON(req, &params); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create service")
		return
	}
	created := servicedef.CreatedService{
		Service: servicedef.Service{
			ID:           primitive.NewObjectID().Hex(),
			Key:          params.Key,
			Name:         params.Name,
			Description:  params.Description,
			Price:        params.Price,
			DurationMins: params.DurationMins,
			Active:       params.Active == nil || *params.Active,
			SortOrder:    params.SortOrder,
		},
		CreatedAt: a.opts.Now(),
	}
	a.lock.Lock()
	a.services = append(a.services, created.Service)
	a.lock.Unlock()
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listServices(w http.ResponseWriter, _ *http.Request) {
	a.lock.Lock()
	ret := make([]servicedef.Service, 0, len(a.services))
	for _, s := range a.services {
		if s.Active {
			ret = append(ret, s)
		}
	}
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) createSession(w http.ResponseWriter, req *http.Request) {
	var params servicedef.CreateSessionParams
	if err := readJSON(req, &params); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	if params.ServiceKey == "" || params.ScheduledAt == "" {
		writeText(w, http.StatusBadRequest, "Missing required fields: serviceKey and scheduledAt")
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, params.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	a.lock.Lock()
	defer a.lock.Unlock()
	service, ok := a.findService(params.ServiceKey)
	if !ok {
		writeText(w, http.StatusNotFound, "Service not found")
		return
	}
	userID := params.UserID
	if userID == "" {
		if u := a.sessionUserLocked(req); u != nil {
			userID = u.email
		}
	}
	now := a.opts.Now()
	s := servicedef.Session{
		ID:            primitive.NewObjectID().Hex(),
		UserID:        userID,
		ReaderID:      readerEmail,
		ServiceKey:    service.Key,
		ServiceName:   service.Name,
		ScheduledAt:   scheduledAt.UTC(),
		DurationMins:  service.DurationMins,
		Amount:        service.Price,
		Status:        servicedef.SessionStatusPending,
		PaymentStatus: servicedef.PaymentStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if params.Notes != "" {
		notes := params.Notes
		s.Notes = &notes
	}
	a.sessions = append(a.sessions, s)
	writeJSON(w, http.StatusCreated, s)
}

func (a *API) listSessions(w http.ResponseWriter, req *http.Request) {
	userID := req.URL.Query().Get("userId")
	status := req.URL.Query().Get("status")
	a.lock.Lock()
	ret := a.sessionsMatchingLocked(func(s servicedef.Session) bool {
		return (userID == "" || s.UserID == userID) && (status == "" || s.Status == status)
	})
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, ret)
}

// sessionsMatchingLocked returns matching sessions, newest first. Sessions created at the
// same instant are ordered by reverse insertion.
func (a *API) sessionsMatchingLocked(match func(servicedef.Session) bool) []servicedef.Session {
	ret := make([]servicedef.Session, 0)
	for i := len(a.sessions) - 1; i >= 0; i-- {
		if match(a.sessions[i]) {
			ret = append(ret, a.sessions[i])
		}
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].CreatedAt.After(ret[j].CreatedAt) })
	return ret
}

func (a *API) checkoutSession(w http.ResponseWriter, req *http.Request) {
	var params servicedef.CheckoutSessionParams
	if err := readJSON(req, &params); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
		return
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	service, ok := a.findService(params.ServiceKey)
	if !ok {
		writeText(w, http.StatusNotFound, "Service not found")
		return
	}
	id := newCheckoutSessionID()
	a.payments = append(a.payments, &payment{
		sessionID:         params.SessionID,
		serviceKey:        service.Key,
		checkoutSessionID: id,
		amount:            service.Price,
		status:            servicedef.PaymentStatusUnpaid,
		userEmail:         params.UserEmail,
	})
	writeJSON(w, http.StatusOK, servicedef.CheckoutSessionResponse{
		URL:               checkoutURL(id),
		CheckoutSessionID: id,
	})
}

func (a *API) legacyCheckout(w http.ResponseWriter, req *http.Request) {
	var params servicedef.LegacyCheckoutParams
	if err := readJSON(req, &params); err != nil {
		writeInternalError(w, err)
		return
	}
	if params.ServiceName == "" || params.Price <= 0 {
		writeInternalError(w, fmt.Errorf("serviceName and a positive price are required"))
		return
	}
	id := newCheckoutSessionID()
	a.lock.Lock()
	a.bookings = append(a.bookings, map[string]interface{}{
		"id":              id,
		"serviceId":       params.ServiceID,
		"serviceName":     params.ServiceName,
		"userId":          params.UserID,
		"price":           params.Price,
		"duration":        params.Duration,
		"status":          "pending",
		"createdAt":       a.opts.Now(),
		"stripeSessionId": id,
	})
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, servicedef.LegacyCheckoutResponse{URL: checkoutURL(id), SessionID: id})
}

func (a *API) listBookings(w http.ResponseWriter, req *http.Request) {
	var ignored map[string]interface{}
	if err := readJSON(req, &ignored); err != nil {
		writeInternalError(w, err)
		return
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	ret := make([]map[string]interface{}, 0, len(a.bookings))
	ret = append(ret, a.bookings...)
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) verifyWebhook(req *http.Request) (servicedef.WebhookEvent, error) {
	var event servicedef.WebhookEvent
	payload, err := io.ReadAll(req.Body)
	if err != nil {
		return event, err
	}
	if a.opts.WebhookSecret == "" {
		return event, errNoWebhookSecret
	}
	err = webhook.ValidatePayloadWithTolerance(payload, req.Header.Get(servicedef.StripeSignatureHeader),
		a.opts.WebhookSecret, webhook.DefaultTolerance)
	if err != nil {
		return event, err
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("invalid payload: %w", err)
	}
	return event, nil
}

func (a *API) legacyWebhook(w http.ResponseWriter, req *http.Request) {
	event, err := a.verifyWebhook(req)
	if err != nil {
		a.opts.Logger.Printf("[mockapi] webhook verification failed: %s", err)
		writeError(w, http.StatusBadRequest, servicedef.WebhookVerificationFailure)
		return
	}
	if event.Type == servicedef.EventCheckoutSessionCompleted {
		obj := event.Data.Object
		a.lock.Lock()
		for _, b := range a.bookings {
			if b["stripeSessionId"] == obj.ID {
				b["status"] = "paid"
				b["updatedAt"] = a.opts.Now()
			}
		}
		a.queueConfirmationLocked(obj)
		a.lock.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (a *API) stripeWebhook(w http.ResponseWriter, req *http.Request) {
	event, err := a.verifyWebhook(req)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Webhook Error: "+err.Error())
		return
	}
	if event.Type == servicedef.EventCheckoutSessionCompleted {
		obj := event.Data.Object
		now := a.opts.Now()
		a.lock.Lock()
		if sessionID := obj.Metadata["sessionId"]; objectIDPattern.MatchString(sessionID) {
			for i := range a.sessions {
				if a.sessions[i].ID == sessionID {
					a.sessions[i].PaymentStatus = servicedef.PaymentStatusPaid
					a.sessions[i].Status = servicedef.SessionStatusBooked
					a.sessions[i].UpdatedAt = now
				}
			}
		}
		for _, p := range a.payments {
			if p.checkoutSessionID == obj.ID {
				p.status = servicedef.PaymentStatusPaid
			}
		}
		a.queueConfirmationLocked(obj)
		a.lock.Unlock()
	}
	writeText(w, http.StatusOK, "ok")
}

func (a *API) queueConfirmationLocked(obj servicedef.CheckoutSessionObject) {
	if obj.CustomerEmail == "" {
		return
	}
	bookingID := obj.ID
	if len(bookingID) >= 16 {
		bookingID = strings.ToUpper(bookingID[8:16])
	}
	a.outbox = append(a.outbox, servicedef.SendEmailParams{
		To:   obj.CustomerEmail,
		Type: "booking_confirmation",
		Data: map[string]interface{}{
			"bookingId":   bookingID,
			"serviceName": obj.Metadata["serviceName"],
			"amount":      fmt.Sprintf("%.2f", float64(obj.AmountTotal)/100),
		},
	})
}

func (a *API) sendEmail(w http.ResponseWriter, req *http.Request) {
	var params servicedef.SendEmailParams
	if err := readJSON(req, &params); err != nil {
		writeInternalError(w, err)
		return
	}
	if params.To == "" {
		writeInternalError(w, fmt.Errorf("no recipients defined"))
		return
	}
	if params.Type == "" && params.Subject == "" {
		writeInternalError(w, fmt.Errorf("subject or template type is required"))
		return
	}
	a.lock.Lock()
	a.outbox = append(a.outbox, params)
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, servicedef.SendEmailResponse{
		Success:   true,
		MessageID: "<" + uuid.NewString() + "@mockapi>",
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, servicedef.ErrorResponse{
		Error:   "Internal server error",
		Details: err.Error(),
	})
}

func newCheckoutSessionID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return "cs_test_" + hex.EncodeToString(b)
}

func checkoutURL(id string) string {
	return "https://checkout.stripe.com/c/pay/" + id
}
