// Package mockapi is an in-memory implementation of the booking API. It serves the same
// routes and response shapes as a real deployment, so the test suites can be exercised
// without one.
package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionCookieName = "authjs.session-token"
	csrfCookieName    = "authjs.csrf-token"
	readerEmail       = "reader@celestia.example"
	authSessionMaxAge = 24 * time.Hour
)

// UserSeed is an account that exists when the API starts.
type UserSeed struct {
	Email     string
	Name      string
	Password  string
	Role      string
	BirthInfo *servicedef.BirthInfo
}

// Options configures an API instance. All fields are optional.
type Options struct {
	Users []UserSeed

	// WebhookSecret is the secret that webhook signatures are checked against. If empty,
	// every webhook request fails verification.
	WebhookSecret string

	// BaseURL is used to build absolute redirect and checkout URLs. If empty, the Host
	// header of each request is used.
	BaseURL string

	// BcryptCost is the cost for hashing seeded and registered passwords.
	BcryptCost int

	Logger framework.Logger
	Now    func() time.Time
}

type user struct {
	id        string
	email     string
	name      string
	role      string
	hash      []byte
	birthInfo *servicedef.BirthInfo
	chart     *servicedef.Chart
	notes     string
	adminNote []servicedef.AdminNote
	createdAt time.Time
}

type authSession struct {
	email   string
	expires time.Time
}

type payment struct {
	sessionID         string
	serviceKey        string
	checkoutSessionID string
	amount            float64
	status            string
	userEmail         string
}

// API is an http.Handler for the whole /api tree.
type API struct {
	opts Options
	mux  *http.ServeMux

	lock         sync.Mutex
	services     []servicedef.Service
	sessions     []servicedef.Session
	bookings     []map[string]interface{}
	payments     []*payment
	users        map[string]*user
	authSessions map[string]authSession
	csrfTokens   map[string]bool
	outbox       []servicedef.SendEmailParams
}

// New creates an API with the seeded service catalog and the specified accounts.
func New(opts Options) (*API, error) {
	if opts.Logger == nil {
		opts.Logger = framework.NullLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	a := &API{
		opts:         opts,
		mux:          http.NewServeMux(),
		services:     seededServices(),
		users:        make(map[string]*user),
		authSessions: make(map[string]authSession),
		csrfTokens:   make(map[string]bool),
	}
	for _, u := range opts.Users {
		if _, err := a.addUser(u); err != nil {
			return nil, fmt.Errorf("mockapi: seeding %s: %w", u.Email, err)
		}
	}
	a.setupRoutes()
	return a, nil
}

func (a *API) setupRoutes() {
	a.mux.HandleFunc("GET /api", a.health)
	a.mux.HandleFunc("/api/", a.fallback)

	a.mux.HandleFunc("POST /api/bookings", a.listBookings)
	a.mux.HandleFunc("POST /api/create-checkout", a.legacyCheckout)
	a.mux.HandleFunc("POST /api/webhook/stripe", a.legacyWebhook)
	a.mux.HandleFunc("POST /api/stripe/webhook", a.stripeWebhook)
	a.mux.HandleFunc("POST /api/send-email", a.sendEmail)
	a.mux.HandleFunc("POST /api/calendar/create-event", a.createCalendarEvent)

	a.mux.HandleFunc("GET /api/services", a.listServices)
	a.mux.HandleFunc("POST /api/services", a.createService)
	a.mux.HandleFunc("POST /api/sessions", a.createSession)
	a.mux.HandleFunc("GET /api/sessions", a.listSessions)
	a.mux.HandleFunc("POST /api/payments/v1/checkout/session", a.checkoutSession)

	a.mux.HandleFunc("GET /api/auth/providers", a.providers)
	a.mux.HandleFunc("GET /api/auth/signin", a.signInPage)
	a.mux.HandleFunc("GET /api/auth/csrf", a.csrf)
	a.mux.HandleFunc("POST /api/auth/callback/credentials", a.credentialsCallback)
	a.mux.HandleFunc("GET /api/auth/session", a.authSession)
	a.mux.HandleFunc("POST /api/auth/signout", a.signOut)
	a.mux.HandleFunc("GET /api/auth/error", a.authError)
	a.mux.HandleFunc("POST /api/register", a.register)

	a.mux.HandleFunc("GET /api/user/profile", a.withUser(a.profile))
	a.mux.HandleFunc("GET /api/user/birth-chart", a.withUser(a.birthChart))
	a.mux.HandleFunc("GET /api/user/sessions", a.withUser(a.userSessions))
	a.mux.HandleFunc("GET /api/user/notes", a.withUser(a.userNotes))
	a.mux.HandleFunc("POST /api/user/notes", a.withUser(a.saveNotes))
	a.mux.HandleFunc("POST /api/user/generate-birth-chart", a.withUser(a.generateBirthChart))

	a.mux.HandleFunc("GET /api/admin/stats", a.withAdmin(a.adminStats))
	a.mux.HandleFunc("GET /api/admin/users", a.withAdmin(a.adminUsers))
	a.mux.HandleFunc("GET /api/admin/sessions", a.withAdmin(a.adminSessions))
	a.mux.HandleFunc("GET /api/admin/revenue", a.withAdmin(a.adminRevenue))
	a.mux.HandleFunc("POST /api/admin/generate-chart/{userId}", a.withAdmin(a.adminGenerateChart))
	a.mux.HandleFunc("POST /api/admin/publish-note", a.withAdmin(a.publishNote))
}

// ServeHTTP implements the http.Handler interface.
func (a *API) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := a.opts.Now()
	wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	a.mux.ServeHTTP(wrapped, req)
	a.opts.Logger.Printf("[mockapi] %s %s status=%d duration=%v",
		req.Method, req.URL.Path, wrapped.status, a.opts.Now().Sub(start))
}

// SentEmails returns every message accepted by the send-email endpoint or generated by
// a completed payment.
func (a *API) SentEmails() []servicedef.SendEmailParams {
	a.lock.Lock()
	defer a.lock.Unlock()
	return append([]servicedef.SendEmailParams(nil), a.outbox...)
}

// UserID returns the ID of a seeded or registered user.
func (a *API) UserID(email string) (string, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if u, ok := a.users[normalizeEmail(email)]; ok {
		return u.id, true
	}
	return "", false
}

func (a *API) addUser(seed UserSeed) (*user, error) {
	if seed.Email == "" || seed.Password == "" {
		return nil, errors.New("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), a.opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	role := seed.Role
	if role == "" {
		role = servicedef.RoleClient
	}
	u := &user{
		id:        primitive.NewObjectID().Hex(),
		email:     normalizeEmail(seed.Email),
		name:      seed.Name,
		role:      role,
		hash:      hash,
		birthInfo: seed.BirthInfo,
		createdAt: a.opts.Now(),
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	if _, exists := a.users[u.email]; exists {
		return nil, errUserExists
	}
	a.users[u.email] = u
	return u, nil
}

var errUserExists = errors.New("User already exists")

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": servicedef.HealthMessage})
}

// Paths under these prefixes have handlers of their own and do not go through the
// catch-all, so they do not accept PUT or DELETE.
var dedicatedRoutePrefixes = []string{
	"/api/admin/", "/api/auth/", "/api/payments/", "/api/register", "/api/services",
	"/api/sessions", "/api/stripe/", "/api/user/",
}

// Any GET under /api that has no route of its own answers like the root. On catch-all
// paths PUT and DELETE are handled exactly like POST; anything else gets a JSON 404.
func (a *API) fallback(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		a.health(w, req)
		return
	case http.MethodPut, http.MethodDelete:
		for _, prefix := range dedicatedRoutePrefixes {
			if strings.HasPrefix(req.URL.Path, prefix) {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
		}
		asPost := req.Clone(req.Context())
		asPost.Method = http.MethodPost
		a.mux.ServeHTTP(w, asPost)
		return
	}
	writeJSON(w, http.StatusNotFound, servicedef.ErrorResponse{Error: servicedef.InvalidEndpointError})
}

func (a *API) baseURL(req *http.Request) string {
	if a.opts.BaseURL != "" {
		return strings.TrimSuffix(a.opts.BaseURL, "/")
	}
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + req.Host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, servicedef.ErrorResponse{Error: message})
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}

// readJSON decodes the request body into v. An empty body leaves v unchanged.
func readJSON(req *http.Request, v interface{}) error {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
