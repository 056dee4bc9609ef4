package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/Mn3m0syn3/ao3downloader/internal/config"
	"github.com/Mn3m0syn3/ao3downloader/internal/scrape"
)

// loginPath is the archive's session endpoint, relative to the base URL.
const loginPath = "/users/login"

// defaultUserAgent identifies the downloader to the archive. A stable,
// descriptive agent lets operators attribute the traffic.
const defaultUserAgent = "ao3downloader/2.0 (+https://github.com/Mn3m0syn3/ao3downloader)"

// Client issues HTTP GETs against the archive with the politeness rules
// the archive's rate limiter expects.
//
// Rate limiting is handled in two layers: a 429 response triggers a
// fixed cooldown sleep followed by a retry of the same URL, repeated
// until the limiter releases; and every request to the target content
// domain is followed by a short delay to stay under the limit
// proactively. Third-party asset hosts get neither treatment.
type Client struct {
	// httpClient carries the session cookie jar. Never nil.
	httpClient *http.Client

	// baseURL is the archive root; login and host checks derive from it.
	baseURL string

	// delay is the proactive per-request politeness delay.
	delay time.Duration

	// cooldown is the wait after a 429 before retrying.
	cooldown time.Duration

	// userAgent is sent on every request.
	userAgent string

	// sleep is time.Sleep unless a test injects a recorder.
	sleep func(time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithDelay sets the politeness delay applied after each target-domain
// request.
func WithDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithCooldown sets the wait before retrying a rate-limited request.
func WithCooldown(d time.Duration) Option {
	return func(c *Client) { c.cooldown = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithBaseURL points the client at a different archive root. Tests use
// this to target an httptest server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithSleeper replaces the sleep function, letting tests observe
// cooldowns without waiting them out.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// New creates a Client with a fresh cookie jar and the given options.
func New(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		httpClient: &http.Client{Jar: jar},
		baseURL:    config.BaseURL,
		delay:      config.DefaultSleep,
		cooldown:   config.DefaultCooldown,
		userAgent:  defaultUserAgent,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the archive root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetBytes fetches a URL and returns the response body. Non-success
// statuses other than 429 are not errors here; the body is returned
// as-is for the caller to classify.
func (c *Client) GetBytes(ctx context.Context, link string) ([]byte, error) {
	resp, err := c.get(ctx, link)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read side only

	return io.ReadAll(resp.Body)
}

// GetPage fetches a URL and parses the body as an archive page. The
// body is parsed regardless of status: the archive renders its
// not-found and restricted notices as regular pages, and the scrape
// package recognizes them by content.
func (c *Client) GetPage(ctx context.Context, link string) (*scrape.Page, error) {
	body, err := c.GetBytes(ctx, link)
	if err != nil {
		return nil, err
	}
	return scrape.Parse(bytes.NewReader(body), c.baseURL)
}

// get performs one logical GET, absorbing rate-limit responses. This is
// the only infinite-retry path in the system: the archive's limiter
// always releases eventually, so a 429 is never surfaced to callers.
func (c *Client) get(ctx context.Context, link string) (*http.Response, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close() //nolint:errcheck // discarding throttled response
			slog.Info("rate limited, waiting to retry", "url", link, "cooldown", c.cooldown)
			if err := c.pause(ctx, c.cooldown); err != nil {
				return nil, err
			}
			slog.Info("resuming after rate limit", "url", link)
			continue
		}

		if c.isTargetHost(link) && c.delay > 0 {
			if err := c.pause(ctx, c.delay); err != nil {
				resp.Body.Close() //nolint:errcheck // context already gone
				return nil, err
			}
		}
		return resp, nil
	}
}

// pause sleeps through the injected sleeper while still honoring
// context cancellation for the long cooldown case.
func (c *Client) pause(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleep(d)
	return ctx.Err()
}

// isTargetHost reports whether a URL belongs to the content domain the
// politeness delay protects. Embedded images on third-party hosts are
// fetched without delay.
func (c *Client) isTargetHost(link string) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, base.Host)
}

// Login establishes an authenticated session: fetch the login form,
// lift its authenticity token, and post the credentials. A rejected
// login or unusable form yields ErrAuthentication.
func (c *Client) Login(ctx context.Context, username, password string) error {
	loginURL := c.baseURL + loginPath

	page, err := c.GetPage(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("fetching login page: %w", err)
	}

	token, ok := page.LoginToken()
	if !ok {
		return fmt.Errorf("%w: login form has no authenticity token", ErrAuthentication)
	}

	form := url.Values{
		"user[login]":        {username},
		"user[password]":     {password},
		"user[remember_me]":  {"1"},
		"authenticity_token": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // read side only

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	result, err := scrape.Parse(bytes.NewReader(body), c.baseURL)
	if err != nil {
		return err
	}
	if result.IsFailedLogin() {
		return ErrAuthentication
	}
	return nil
}
