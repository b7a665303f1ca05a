package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dghubble/sling"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.botgc.co.uk/"
	UserAgent      = "botgc-results/1.0 (github.com/pfrederiksen/botgc-results)"
	Timeout        = 30 * time.Second

	defaultMaxRetries = 3
	defaultRetryWait  = 500 * time.Millisecond
	defaultInterval   = 250 * time.Millisecond
)

// Fetcher performs a session-aware GET of a portal page. A non-2xx status
// is not an error: callers get the body and status for diagnostics and
// decide. err is reserved for failures where no response was obtained.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (body []byte, status int, err error)
}

// Credentials identify the member the session logs in as.
type Credentials struct {
	MemberID string
	PIN      string
}

type loginForm struct {
	Task     string `url:"task"`
	TopMenu  string `url:"topmenu"`
	MemberID string `url:"memberid"`
	PIN      string `url:"pin"`
	CacheMID string `url:"cachemid"`
	Submit   string `url:"Submit"`
}

// Session is an authenticated connection to the members' portal.
//
// The portal ties server-side state to one cookie, so requests on a
// Session are serialized: concurrent callers are safe but queue behind
// each other. The first Fetch logs in if Login has not been called.
type Session struct {
	baseURL    string
	creds      Credentials
	client     *http.Client
	base       *sling.Sling
	limiter    *rate.Limiter
	maxRetries uint64
	retryWait  time.Duration
	log        *logger.Logger

	mu       sync.Mutex
	loggedIn bool
}

// Option configures a Session
type Option func(*Session)

// WithHTTPClient replaces the default client. A cookie jar is added to a
// copy of the client when it has none.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		cp := *c
		s.client = &cp
	}
}

// WithRateLimit paces requests to the portal.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *Session) {
		s.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithRetries sets how many times a request failing with a network error
// or a 5xx status is retried, and the initial wait between attempts.
func WithRetries(maxRetries uint64, initialWait time.Duration) Option {
	return func(s *Session) {
		s.maxRetries = maxRetries
		s.retryWait = initialWait
	}
}

// WithLogger sets the logger used for retry and login messages.
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// NewSession creates a session against baseURL. Nothing is sent until
// Login or Fetch is called.
func NewSession(baseURL string, creds Credentials, opts ...Option) (*Session, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	s := &Session{
		baseURL:    baseURL,
		creds:      creds,
		client:     &http.Client{Timeout: Timeout},
		limiter:    rate.NewLimiter(rate.Every(defaultInterval), 1),
		maxRetries: defaultMaxRetries,
		retryWait:  defaultRetryWait,
		log:        logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		s.client.Jar = jar
	}

	s.log = s.log.With(logger.Fields{"component": "portal"})
	s.base = sling.New().Client(s.client).Base(baseURL).
		Set("User-Agent", UserAgent).
		Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		Set("Accept-Language", "en-GB,en;q=0.9").
		Set("Cache-Control", "no-cache")

	return s, nil
}

// BaseURL returns the portal root the session resolves paths against.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Login posts the member credentials. It is called implicitly by the
// first Fetch.
func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login(ctx)
}

func (s *Session) login(ctx context.Context) error {
	if s.creds.MemberID == "" || s.creds.PIN == "" {
		return errors.New("portal: member id and pin are required")
	}

	form := loginForm{
		Task:     "login",
		TopMenu:  "1",
		MemberID: s.creds.MemberID,
		PIN:      s.creds.PIN,
		CacheMID: "1",
		Submit:   "Login",
	}
	loginURL := s.baseURL + "login.php"

	body, status, err := s.do(ctx, func() (*http.Request, error) {
		return s.base.New().Post("login.php").
			Set("Origin", strings.TrimSuffix(s.baseURL, "/")).
			Set("Referer", loginURL).
			BodyForm(form).
			Request()
	})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		s.log.Error("Login failed", logger.Fields{"status": status}, nil)
		return &TransportError{URL: loginURL, StatusCode: status, Body: truncate(body)}
	}
	// A rejected PIN re-renders the login form with a 200.
	if bytes.Contains(body, []byte(`name="pin"`)) {
		return &TransportError{URL: loginURL, StatusCode: status, Err: errors.New("login rejected")}
	}

	s.loggedIn = true
	s.log.Info("Logged in", logger.Fields{"member_id": s.creds.MemberID})
	return nil
}

// Fetch GETs path (relative to the base URL, or absolute) on the
// authenticated session.
func (s *Session) Fetch(ctx context.Context, path string) ([]byte, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loggedIn {
		if err := s.login(ctx); err != nil {
			return nil, 0, fmt.Errorf("logging in: %w", err)
		}
	}

	return s.do(ctx, func() (*http.Request, error) {
		return s.base.New().Get(path).Request()
	})
}

// do sends the request built by build, retrying network errors and 5xx
// responses with exponential backoff. The final response is returned
// whatever its status.
func (s *Session) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, int, error) {
	var (
		body   []byte
		status int
		target string
	)

	op := func() error {
		body, status = nil, 0
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := build()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		target = req.URL.String()

		resp, err := s.client.Do(req.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		body, status = data, resp.StatusCode
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("server error: status %d", status)
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.retryWait
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, s.maxRetries), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		s.log.Warn("Retrying portal request", logger.Fields{
			"url":   target,
			"error": err.Error(),
			"wait":  wait.String(),
		})
	})
	if err != nil {
		if status != 0 && ctx.Err() == nil {
			// Retries exhausted on a 5xx: hand the response back.
			return body, status, nil
		}
		return nil, 0, &TransportError{URL: target, Err: err}
	}

	return body, status, nil
}
