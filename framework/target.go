package framework

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	reachabilityPollInterval = time.Millisecond * 100
	debugBodyLimit           = 2000
)

// TargetService identifies the deployment under test. All requests are made relative to
// its base URL.
type TargetService struct {
	baseURL string
	timeout time.Duration
	logger  Logger
}

// Session is a sequence of requests to the target that share cookies, the way a browser
// would. Redirects are never followed, so that tests can inspect them.
type Session struct {
	target *TargetService
	client *http.Client
	logger Logger
}

// Request describes one HTTP request to the target. At most one of JSONBody, FormBody,
// and RawBody should be set.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Headers  http.Header
	JSONBody interface{}
	FormBody url.Values
	RawBody  []byte

	// Timeout overrides the target's default request timeout if nonzero.
	Timeout time.Duration
}

// Response is a fully read HTTP response. If the body was valid JSON, IsJSON is true and
// JSON contains the parsed value; otherwise JSON is a null value.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	IsJSON     bool
	JSON       ldvalue.Value
}

// NewTargetService creates a TargetService. The base URL is the root of the deployment,
// without the /api suffix.
func NewTargetService(baseURL string, requestTimeout time.Duration, debugLogger Logger) *TargetService {
	if debugLogger == nil {
		debugLogger = NullLogger()
	}
	return &TargetService{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: requestTimeout,
		logger:  debugLogger,
	}
}

// BaseURL returns the root of the deployment with any trailing slash removed.
func (t *TargetService) BaseURL() string {
	return t.baseURL
}

// URL returns the absolute URL of a path on the target.
func (t *TargetService) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.baseURL + path
}

// WaitUntilReachable polls the specified path until the target responds with any HTTP
// status, printing a dot for each attempt. Only transport errors are retried; the status
// code is not checked here because that is the job of the tests.
func (t *TargetService) WaitUntilReachable(path string, timeout time.Duration, output io.Writer) error {
	if output == nil {
		output = io.Discard
	}
	url := t.URL(path)
	fmt.Fprintf(output, "Connecting to target at %s", url)

	client := &http.Client{Timeout: t.timeout}
	deadline := time.Now().Add(timeout)
	for {
		fmt.Fprintf(output, ".")
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			fmt.Fprintln(output)
			fmt.Fprintf(output, "Target responded with status %d\n", resp.StatusCode)
			t.logger.Printf("Target %s is reachable (status %d)", url, resp.StatusCode)
			return nil
		}
		if !time.Now().Before(deadline) {
			fmt.Fprintln(output)
			return fmt.Errorf("timed out, result of last query was: %w", err)
		}
		time.Sleep(reachabilityPollInterval)
	}
}

// NewSession starts a new cookie-sharing session. Requests are logged to the specified
// logger, which is normally the debug logger of the current test.
func (t *TargetService) NewSession(logger Logger) *Session {
	if logger == nil {
		logger = t.logger
	}
	jar, _ := cookiejar.New(nil) // only fails if given invalid options
	return &Session{
		target: t,
		logger: logger,
		client: &http.Client{
			Jar:     jar,
			Timeout: t.timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Cookies returns the cookies the session would send to the target.
func (s *Session) Cookies() []*http.Cookie {
	u, err := url.Parse(s.target.baseURL)
	if err != nil {
		return nil
	}
	return s.client.Jar.Cookies(u)
}

// Do sends a request and reads the entire response. It returns an error only if the
// request could not be made or the response could not be read; any HTTP status is a
// successful result at this level.
func (s *Session) Do(ctx context.Context, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	target := s.target.URL(r.Path)
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.JSONBody != nil:
		data, err := json.Marshal(r.JSONBody)
		if err != nil {
			return nil, fmt.Errorf("could not encode request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
		s.logger.Printf(">> %s %s %s", method, target, string(data))
	case r.FormBody != nil:
		encoded := r.FormBody.Encode()
		body = strings.NewReader(encoded)
		contentType = "application/x-www-form-urlencoded"
		s.logger.Printf(">> %s %s (form) %s", method, target, redactForm(r.FormBody))
	case r.RawBody != nil:
		body = bytes.NewReader(r.RawBody)
		s.logger.Printf(">> %s %s %s", method, target, truncate(string(r.RawBody), debugBodyLimit))
	default:
		s.logger.Printf(">> %s %s", method, target)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vv := range r.Headers {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}

	client := s.client
	if r.Timeout > 0 {
		c := *s.client
		c.Timeout = r.Timeout
		client = &c
	}
	resp, err := client.Do(req)
	if err != nil {
		s.logger.Printf("<< request failed: %s", err)
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	s.logger.Printf("<< HTTP %d %s", resp.StatusCode, truncate(string(data), debugBodyLimit))

	ret := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		JSON:       ldvalue.Null(),
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && json.Valid(trimmed) {
		ret.IsJSON = true
		ret.JSON = ldvalue.Parse(trimmed)
	}
	return ret, nil
}

// Excerpt returns at most the first n characters of the body, for use in failure details.
func (r *Response) Excerpt(n int) string {
	return truncate(string(r.Body), n)
}

// Location returns the redirect target, if any.
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func redactForm(values url.Values) string {
	copied := url.Values{}
	for k, vv := range values {
		if strings.EqualFold(k, "password") {
			copied[k] = []string{"***"}
		} else {
			copied[k] = vv
		}
	}
	return copied.Encode()
}
