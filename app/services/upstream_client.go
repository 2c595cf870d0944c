package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/numbay/numbay/utils"
)

// Upstream endpoint paths, relative to the agent panel base URL
const (
	upstreamLoginPath    = "/agent/login"
	upstreamProbePath    = "/agent/MySMSNumbers"
	upstreamRangesPath   = "/agent/res/aj_smsranges.php"
	upstreamNumbersPath  = "/agent/res/aj_smsnumbers.php"
	upstreamMessagesPath = "/agent/res/aj_smsmessages.php"
)

// browserUserAgent avoids the panel's bot filter
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

var (
	// ErrUpstreamAuth means login was rejected (bad credentials or captcha)
	ErrUpstreamAuth = errors.New("upstream authentication failed")
	// ErrUpstreamUnavailable wraps transport and decode failures. Callers
	// treat these as transient: they never mutate hold or ledger state.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// UpstreamRange is one row of the panel's range listing
type UpstreamRange struct {
	Name  string
	Count int64
}

// UpstreamNumber is one dialable number inside a range
type UpstreamNumber struct {
	Number string
}

// UpstreamMessage is one received SMS
type UpstreamMessage struct {
	Number     string
	Sender     string
	Text       string
	ReceivedAt string
}

// UpstreamService is the read-only view of the SMS panel the flows consume
type UpstreamService interface {
	FetchRanges(ctx context.Context, page, max int) ([]UpstreamRange, error)
	FetchNumbers(ctx context.Context, rangeName string, start, length int) ([]UpstreamNumber, error)
	FetchMessages(ctx context.Context, number string, since time.Time) ([]UpstreamMessage, error)
}

// UpstreamClient talks to the SMS panel through an authenticated session.
// The session cookie jar is persisted through a CookieStore so restarts
// don't burn a fresh login.
type UpstreamClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	store      CookieStore
	logger     *log.Logger

	mu            sync.Mutex
	authenticated bool
}

// NewUpstreamClient builds a panel client. baseURL is the panel root, e.g.
// http://host/ints.
func NewUpstreamClient(baseURL, username, password string, store CookieStore, logger *log.Logger) (*UpstreamClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = NewMemoryCookieStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &UpstreamClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: utils.UpstreamRequestTimeout,
		},
		store:  store,
		logger: logger,
	}, nil
}

// FetchRanges retrieves one page of the panel's range listing
func (c *UpstreamClient) FetchRanges(ctx context.Context, page, max int) ([]UpstreamRange, error) {
	payload, err := c.fetchRows(ctx, upstreamRangesPath, url.Values{
		"page": {strconv.Itoa(page)},
		"max":  {strconv.Itoa(max)},
	})
	if err != nil {
		return nil, err
	}

	ranges := make([]UpstreamRange, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		name := rowField(row, 0, "range", "name")
		if name == "" {
			continue
		}
		count, _ := strconv.ParseInt(rowField(row, 1, "count", "total"), 10, 64)
		ranges = append(ranges, UpstreamRange{Name: name, Count: count})
	}
	return ranges, nil
}

// FetchNumbers retrieves a window of numbers inside a range, DataTables style
func (c *UpstreamClient) FetchNumbers(ctx context.Context, rangeName string, start, length int) ([]UpstreamNumber, error) {
	payload, err := c.fetchRows(ctx, upstreamNumbersPath, url.Values{
		"range":  {rangeName},
		"start":  {strconv.Itoa(start)},
		"length": {strconv.Itoa(length)},
	})
	if err != nil {
		return nil, err
	}

	numbers := make([]UpstreamNumber, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		number := rowField(row, 0, "number", "num", "msisdn")
		if number == "" {
			continue
		}
		numbers = append(numbers, UpstreamNumber{Number: number})
	}
	return numbers, nil
}

// FetchMessages retrieves messages received on a number since the given time
func (c *UpstreamClient) FetchMessages(ctx context.Context, number string, since time.Time) ([]UpstreamMessage, error) {
	payload, err := c.fetchRows(ctx, upstreamMessagesPath, url.Values{
		"number": {number},
		"since":  {since.UTC().Format("2006-01-02 15:04:05")},
	})
	if err != nil {
		return nil, err
	}

	messages := make([]UpstreamMessage, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		text := rowField(row, 2, "message", "sms", "text")
		if text == "" {
			continue
		}
		messages = append(messages, UpstreamMessage{
			Number:     number,
			Sender:     rowField(row, 1, "sender", "from", "cli"),
			Text:       text,
			ReceivedAt: rowField(row, 3, "date", "received_at", "time"),
		})
	}
	return messages, nil
}

// fetchRows performs one authenticated AJAX request and decodes the payload
func (c *UpstreamClient) fetchRows(ctx context.Context, path string, params url.Values) (*RowsPayload, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*;q=0.01")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.baseURL+upstreamProbePath)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.invalidateSession()
		return nil, fmt.Errorf("%w: status %d from %s", ErrUpstreamUnavailable, resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	payload, err := ParseRowsPayload(body)
	if err != nil {
		// An HTML login page instead of JSON means the session expired
		// under us; drop it so the next call re-authenticates.
		c.invalidateSession()
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return payload, nil
}

// ensureAuthenticated reuses persisted cookies when they still work and
// logs in from scratch otherwise.
func (c *UpstreamClient) ensureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authenticated {
		return nil
	}

	if cookies, err := c.store.Load(ctx); err == nil && len(cookies) > 0 {
		if u, err := url.Parse(c.baseURL); err == nil {
			c.httpClient.Jar.SetCookies(u, cookies)
		}
		if c.probeSession(ctx) {
			c.logger.Println("upstream session restored from stored cookies")
			c.authenticated = true
			return nil
		}
	}

	if err := c.login(ctx); err != nil {
		return err
	}
	c.authenticated = true

	if u, err := url.Parse(c.baseURL); err == nil {
		if err := c.store.Save(ctx, c.httpClient.Jar.Cookies(u)); err != nil {
			c.logger.Println("failed to persist upstream cookies:", err)
		}
	}
	return nil
}

// probeSession hits a protected page and reports whether the session held.
// A bounce to the login page means it did not.
func (c *UpstreamClient) probeSession(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+upstreamProbePath, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	return !strings.Contains(strings.ToLower(resp.Request.URL.String()), "login")
}

// login fetches the login page, fills the form (hidden fields, credentials,
// solved captcha) and submits it.
func (c *UpstreamClient) login(ctx context.Context) error {
	loginURL := c.baseURL + upstreamLoginPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: login page status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	form, err := parseLoginForm(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}

	payload := url.Values{}
	for name, value := range form.HiddenFields {
		payload.Set(name, value)
	}
	payload.Set(form.UsernameField, c.username)
	payload.Set(form.PasswordField, c.password)
	if form.CaptchaField != "" {
		answer := SolveMathCaptcha(form.CaptchaText)
		c.logger.Println("login captcha solved:", answer)
		payload.Set(form.CaptchaField, answer)
	}

	action := resolveAction(loginURL, form.Action)
	postReq, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(payload.Encode()))
	if err != nil {
		return err
	}
	postReq.Header.Set("User-Agent", browserUserAgent)
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	postResp, err := c.httpClient.Do(postReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer postResp.Body.Close()

	if postResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: login status %d", ErrUpstreamAuth, postResp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(postResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if loginFailed(string(body), postResp.Request.URL.String()) {
		return ErrUpstreamAuth
	}

	c.logger.Println("upstream login successful")
	return nil
}

// loginFailed looks for the panel's failure markers in the post-login page
func loginFailed(body, finalURL string) bool {
	if strings.Contains(strings.ToLower(finalURL), "login") {
		return true
	}
	lower := strings.ToLower(body)
	for _, marker := range []string{"invalid", "incorrect", "failed"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (c *UpstreamClient) invalidateSession() {
	c.mu.Lock()
	c.authenticated = false
	c.mu.Unlock()
}

// resolveAction makes the form action absolute against the login URL
func resolveAction(loginURL, action string) string {
	if action == "" {
		return loginURL
	}
	base, err := url.Parse(loginURL)
	if err != nil {
		return loginURL
	}
	ref, err := url.Parse(action)
	if err != nil {
		return loginURL
	}
	return base.ResolveReference(ref).String()
}
