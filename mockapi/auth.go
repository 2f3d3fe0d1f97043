package mockapi

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func (a *API) providers(w http.ResponseWriter, req *http.Request) {
	base := a.baseURL(req)
	provider := func(id, name, kind string) servicedef.Provider {
		return servicedef.Provider{
			ID:          id,
			Name:        name,
			Type:        kind,
			SignInURL:   base + "/api/auth/signin/" + id,
			CallbackURL: base + "/api/auth/callback/" + id,
		}
	}
	writeJSON(w, http.StatusOK, servicedef.Providers{
		"google":      provider("google", "Google", "oidc"),
		"credentials": provider("credentials", "credentials", "credentials"),
	})
}

func (a *API) signInPage(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>Sign In</title></head><body>`+
		`<form action="%s/api/auth/callback/credentials" method="POST">`+
		`<input name="email" type="email"><input name="password" type="password">`+
		`<button type="submit">Sign in with credentials</button></form>`+
		`<a href="%s/api/auth/signin/google">Sign in with Google</a></body></html>`,
		html.EscapeString(a.baseURL(req)), html.EscapeString(a.baseURL(req)))
}

func (a *API) authError(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<!DOCTYPE html><html><body><h1>Sign in failed</h1><p>%s</p></body></html>`,
		html.EscapeString(req.URL.Query().Get("error")))
}

func (a *API) csrf(w http.ResponseWriter, _ *http.Request) {
	token := uuid.NewString()
	a.lock.Lock()
	a.csrfTokens[token] = true
	a.lock.Unlock()
	http.SetCookie(w, &http.Cookie{Name: csrfCookieName, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, servicedef.CSRFResponse{CSRFToken: token})
}

// credentialsCallback follows the NextAuth credentials flow: the CSRF token from the form
// must match the one issued in the cookie, and the outcome is reported either as JSON
// ({"url": ...}) when json=true, or as a redirect. Failures point at the error page.
func (a *API) credentialsCallback(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	base := a.baseURL(req)
	asJSON := req.PostForm.Get("json") == "true"
	respond := func(target string) {
		if asJSON {
			writeJSON(w, http.StatusOK, servicedef.SignInResponse{URL: target})
			return
		}
		w.Header().Set("Location", target)
		w.WriteHeader(http.StatusFound)
	}
	fail := func(code string) {
		respond(base + "/api/auth/error?" + url.Values{"error": {code}, "provider": {"credentials"}}.Encode())
	}

	token := req.PostForm.Get("csrfToken")
	cookie, err := req.Cookie(csrfCookieName)
	a.lock.Lock()
	validCSRF := token != "" && a.csrfTokens[token] && err == nil && cookie.Value == token
	a.lock.Unlock()
	if !validCSRF {
		fail("MissingCSRF")
		return
	}

	email := normalizeEmail(req.PostForm.Get("email"))
	password := req.PostForm.Get("password")
	if email == "" || password == "" {
		fail("CredentialsSignin")
		return
	}
	a.lock.Lock()
	u := a.users[email]
	a.lock.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		fail("CredentialsSignin")
		return
	}

	sessionToken := uuid.NewString()
	expires := a.opts.Now().Add(authSessionMaxAge)
	a.lock.Lock()
	a.authSessions[sessionToken] = authSession{email: u.email, expires: expires}
	a.lock.Unlock()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
	})

	callback := req.PostForm.Get("callbackUrl")
	if callback == "" {
		callback = base + "/"
	}
	respond(callback)
}

func (a *API) authSession(w http.ResponseWriter, req *http.Request) {
	a.lock.Lock()
	u := a.sessionUserLocked(req)
	var expires time.Time
	if c, err := req.Cookie(sessionCookieName); err == nil {
		expires = a.authSessions[c.Value].expires
	}
	a.lock.Unlock()
	if u == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, servicedef.AuthSession{
		User: &servicedef.SessionUser{
			ID:    u.id,
			Email: u.email,
			Name:  u.name,
			Role:  u.role,
		},
		Expires: expires.UTC().Format(time.RFC3339),
	})
}

func (a *API) signOut(w http.ResponseWriter, req *http.Request) {
	if c, err := req.Cookie(sessionCookieName); err == nil {
		a.lock.Lock()
		delete(a.authSessions, c.Value)
		a.lock.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, servicedef.SignInResponse{URL: a.baseURL(req)})
}

func (a *API) register(w http.ResponseWriter, req *http.Request) {
	var params servicedef.RegisterParams
	if err := readJSON(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if params.Name == "" || params.Email == "" || params.Password == "" {
		writeError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if len(params.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	u, err := a.addUser(UserSeed{
		Email:     params.Email,
		Name:      params.Name,
		Password:  params.Password,
		Role:      servicedef.RoleClient,
		BirthInfo: params.BirthInfo,
	})
	if err == errUserExists {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "User created successfully",
		"userId":  u.id,
	})
}

func (a *API) sessionUserLocked(req *http.Request) *user {
	c, err := req.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	s, ok := a.authSessions[c.Value]
	if !ok || a.opts.Now().After(s.expires) {
		return nil
	}
	return a.users[s.email]
}

type userHandler func(w http.ResponseWriter, req *http.Request, u *user)

func (a *API) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		a.lock.Lock()
		u := a.sessionUserLocked(req)
		a.lock.Unlock()
		if u == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h(w, req, u)
	}
}

func (a *API) withAdmin(h userHandler) http.HandlerFunc {
	return a.withUser(func(w http.ResponseWriter, req *http.Request, u *user) {
		if u.role != servicedef.RoleAdmin {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		h(w, req, u)
	})
}
