package hostclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/sitewatch/internal/domain"
	"github.com/user/sitewatch/pkg/utils"
)

// ErrUnexpectedStatus is returned for non-2xx responses that carry no usable JSON body.
var ErrUnexpectedStatus = errors.New("unexpected response status")

const maxBodyBytes = 4 << 20

// Client talks to the hosting backend on behalf of the site list page.
type Client struct {
	baseURL       *url.URL
	sessionCookie string
	httpClient    *http.Client
}

// New creates a Client for baseURL. sessionCookie, when set, is forwarded verbatim
// as the Cookie header; authentication itself belongs to the backend.
func New(baseURL, sessionCookie string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}
	return &Client{
		baseURL:       u,
		sessionCookie: sessionCookie,
		httpClient:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL.JoinPath(escaped...).String()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.sessionCookie != "" {
		req.Header.Set("Cookie", c.sessionCookie)
	}
	return req, nil
}

// do sends req and decodes a JSON body into out. The backend answers errors with
// JSON too, so a decodable body is returned even for 4xx/5xx.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode/100 != 2 {
			return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// SiteStatus queries GET /api/site/{id}/status.
func (c *Client) SiteStatus(ctx context.Context, siteID string) (*domain.StatusResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("api", "site", siteID, "status"), nil)
	if err != nil {
		return nil, err
	}
	var out domain.StatusResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("querying status of %s: %w", siteID, err)
	}
	if out.Data != nil && out.Data.OSSURL != "" {
		if abs, err := utils.ToAbsoluteURL(c.baseURL, out.Data.OSSURL); err == nil {
			out.Data.OSSURL = abs
		}
	}
	return &out, nil
}

// ToggleVisibility calls POST /toggle_site_visibility/{id}.
func (c *Client) ToggleVisibility(ctx context.Context, siteID string) (*domain.ToggleResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("toggle_site_visibility", siteID), strings.NewReader("{}"))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var out domain.ToggleResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("toggling visibility of %s: %w", siteID, err)
	}
	return &out, nil
}

// RenameSite calls POST /rename_site/{id} with the new_name form field.
func (c *Client) RenameSite(ctx context.Context, siteID, newName string) (*domain.RenameResponse, error) {
	form := url.Values{"new_name": {newName}}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("rename_site", siteID), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var out domain.RenameResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("renaming %s: %w", siteID, err)
	}
	return &out, nil
}

// DeleteSite calls POST /delete_site/{id}.
func (c *Client) DeleteSite(ctx context.Context, siteID string) (*domain.DeleteResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("delete_site", siteID), nil)
	if err != nil {
		return nil, err
	}
	var out domain.DeleteResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("deleting %s: %w", siteID, err)
	}
	return &out, nil
}

// FetchPage downloads the site list page the table is built from.
func (c *Client) FetchPage(ctx context.Context) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching site list page: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching site list page: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return resp.Body, nil
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("health"), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
