package kratos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/k9ert/rbac-poc/internal/config"
)

var (
	// ErrSessionRejected means the provider explicitly refused the cookie:
	// there is no valid session behind it.
	ErrSessionRejected = errors.New("session rejected by identity provider")
	// ErrProviderUnavailable covers transport failures, timeouts and 5xx
	// responses. Callers map it to 503, never to a login prompt.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrFlowGone means the flow id was not found, forbidden or expired.
	// The login bridge recovers by restarting the flow.
	ErrFlowGone = errors.New("login flow expired or invalid")
)

const maxResponseBytes = 1 << 20

// Client wraps the identity provider's public self-service endpoints. It
// forwards the caller's raw cookie header unmodified and never follows the
// provider's redirects: the browser must perform those round trips so the
// provider can set flow cookies on them.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

func NewClient(cfg *config.Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.KratosPublicURL, "/"),
		http: &http.Client{
			Timeout: cfg.ProviderTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

func (c *Client) get(ctx context.Context, path, cookieHeader string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return resp, body, nil
}

// CheckSession asks the provider whose session the cookie belongs to.
// Every protected request goes through here; nothing is cached, so a
// revoked session is rejected on the very next request.
func (c *Client) CheckSession(ctx context.Context, cookieHeader string) (Session, error) {
	resp, body, err := c.get(ctx, "/sessions/whoami", cookieHeader)
	if err != nil {
		return Session{}, err
	}
	switch {
	case resp.StatusCode >= 500:
		return Session{}, fmt.Errorf("%w: whoami returned %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Session{}, ErrSessionRejected
	}
	var sess Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return Session{}, fmt.Errorf("%w: decode whoami: %v", ErrProviderUnavailable, err)
	}
	sess.Raw = body
	return sess, nil
}

// BeginLoginFlow creates a fresh browser login flow and returns the
// redirect target for the browser to follow. The gateway must not follow
// it itself.
func (c *Client) BeginLoginFlow(ctx context.Context) (string, error) {
	return c.beginBrowserFlow(ctx, "/self-service/login/browser", "")
}

// BeginLogoutFlow creates a logout flow for the session behind the cookie
// and returns the redirect target. Logout needs no form step.
func (c *Client) BeginLogoutFlow(ctx context.Context, cookieHeader string) (string, error) {
	return c.beginBrowserFlow(ctx, "/self-service/logout/browser", cookieHeader)
}

func (c *Client) beginBrowserFlow(ctx context.Context, path, cookieHeader string) (string, error) {
	resp, _, err := c.get(ctx, path, cookieHeader)
	if err != nil {
		return "", err
	}
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", fmt.Errorf("%w: redirect from %s without location", ErrProviderUnavailable, path)
		}
		return loc, nil
	case resp.StatusCode == http.StatusOK:
		// Some provider configurations answer 200 here; sending the
		// browser to the endpoint itself yields the same flow cookies.
		return c.baseURL + path, nil
	default:
		return "", fmt.Errorf("%w: %s returned %d", ErrProviderUnavailable, path, resp.StatusCode)
	}
}

// FetchLoginFlow retrieves the flow descriptor for a flow the browser is
// in the middle of. 404, 403 and 410 all mean the flow is gone and the
// cycle must restart.
func (c *Client) FetchLoginFlow(ctx context.Context, flowID, cookieHeader string) (LoginFlow, error) {
	path := "/self-service/login/flows?id=" + url.QueryEscape(flowID)
	resp, body, err := c.get(ctx, path, cookieHeader)
	if err != nil {
		return LoginFlow{}, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden, http.StatusGone:
		return LoginFlow{}, ErrFlowGone
	default:
		return LoginFlow{}, fmt.Errorf("%w: login flow fetch returned %d", ErrProviderUnavailable, resp.StatusCode)
	}
	var flow LoginFlow
	if err := json.Unmarshal(body, &flow); err != nil {
		return LoginFlow{}, fmt.Errorf("%w: decode login flow: %v", ErrProviderUnavailable, err)
	}
	return flow, nil
}
