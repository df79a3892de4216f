package shopify

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/cartcash/internal/errors"
	"github.com/jrsteele09/cartcash/internal/metrics"
)

// ShopInfo is the subset of shop.json used after a successful probe.
type ShopInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Currency string `json:"currency"`
}

// Prober checks a candidate token with one read-only request.
type Prober struct {
	HTTPClient *http.Client
	Origin     OriginFunc
	Metrics    *metrics.Metrics
}

// ProbeShop GETs /admin/api/{version}/shop.json with the candidate token. Any
// non-2xx status is reported as ErrInvalidCredentials; transport failures and
// timeouts as ErrProviderUnavailable.
func (p Prober) ProbeShop(ctx context.Context, shopDomain, apiVersion, accessToken string) (*ShopInfo, error) {
	origin := p.Origin
	if origin == nil {
		origin = DefaultOrigin
	}
	httpClient := p.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL(origin, shopDomain, apiVersion)+"/shop.json", nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[shopify.ProbeShop] build request")
	}
	setHeaders(req, accessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		p.Metrics.ProviderCall("shop", metrics.OutcomeFailure)
		return nil, unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.Metrics.ProviderCall("shop", metrics.OutcomeFailure)
		_ = checkStatus(resp)
		return nil, errors.Wrapf(errors.ErrInvalidCredentials, "shop probe returned status %d", resp.StatusCode)
	}
	p.Metrics.ProviderCall("shop", metrics.OutcomeSuccess)

	var body struct {
		Shop ShopInfo `json:"shop"`
	}
	// A 2xx with an unexpected body still proves the token works.
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return &body.Shop, nil
}
