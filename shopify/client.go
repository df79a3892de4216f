package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/cartcash/internal/errors"
	"github.com/jrsteele09/cartcash/internal/logging"
	"github.com/jrsteele09/cartcash/internal/metrics"
)

// Client is an Admin API handle bound to one revision of a tenant's credential.
type Client struct {
	tenantID    string
	shopDomain  string
	baseURL     string
	accessToken string
	httpClient  *http.Client
	metrics     *metrics.Metrics
}

func (c *Client) TenantID() string   { return c.tenantID }
func (c *Client) ShopDomain() string { return c.shopDomain }
func (c *Client) BaseURL() string    { return c.baseURL }

func (c *Client) String() string {
	return fmt.Sprintf("shopify.Client{tenant=%q base=%q token=%s}", c.tenantID, c.baseURL, logging.Redact(c.accessToken))
}

// Get issues a GET against the Admin API and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := endpointLabel(path)
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrapf(err, "[shopify.Client.Get] build request")
	}
	setHeaders(req, c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ProviderCall(endpoint, metrics.OutcomeFailure)
		return unavailable(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		c.metrics.ProviderCall(endpoint, metrics.OutcomeFailure)
		return err
	}
	c.metrics.ProviderCall(endpoint, metrics.OutcomeSuccess)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(errors.ErrProviderStatus, "[shopify.Client.Get] decode %s: %v", endpoint, err)
	}
	return nil
}

func setHeaders(req *http.Request, accessToken string) {
	req.Header.Set(AccessTokenHeader, accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// checkStatus maps non-2xx responses to the error taxonomy. Response bodies are
// not echoed: they can contain the request's token.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return errors.Wrapf(errors.ErrInvalidCredentials, "authentication failed, please check your Shopify access token")
	case http.StatusForbidden:
		return errors.Wrapf(errors.ErrForbidden, "please check the app has the required admin API permissions (read_orders scope)")
	default:
		return errors.Wrapf(errors.ErrProviderStatus, "shopify returned status %d", resp.StatusCode)
	}
}

// unavailable wraps a transport failure (timeout, DNS, refused connection).
func unavailable(err error) error {
	return fmt.Errorf("%w: %s", errors.ErrProviderUnavailable, transportReason(err))
}

func transportReason(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "request timed out"
		}
		return urlErr.Err.Error()
	}
	return err.Error()
}

// endpointLabel turns "/checkouts/123.json" into "checkouts" for metrics.
func endpointLabel(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return strings.TrimSuffix(path, ".json")
}
