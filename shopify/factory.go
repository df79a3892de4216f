package shopify

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/cartcash/credentials"
	"github.com/jrsteele09/cartcash/internal/config"
	"github.com/jrsteele09/cartcash/internal/errors"
	"github.com/jrsteele09/cartcash/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const defaultIdleTTL = time.Hour

// ClientFactory lazily builds and caches one Client per tenant from the
// credential store. A cached client is reused only while the store still holds
// the exact credential revision it was built from.
type ClientFactory struct {
	store      *credentials.Store
	clients    *gocache.Cache
	builds     singleflight.Group
	httpClient *http.Client
	origin     OriginFunc
	metrics    *metrics.Metrics
}

type cachedClient struct {
	revision uint64
	client   *Client
}

// FactoryOption configures a ClientFactory.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	httpClient *http.Client
	origin     OriginFunc
	metrics    *metrics.Metrics
	idleTTL    time.Duration
}

// WithHTTPClient sets the transport shared by every client. The default has the
// provider timeout from config.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(o *factoryOptions) { o.httpClient = c }
}

// WithOrigin redirects API calls, used to point clients at a test server.
func WithOrigin(origin OriginFunc) FactoryOption {
	return func(o *factoryOptions) { o.origin = origin }
}

func WithMetrics(m *metrics.Metrics) FactoryOption {
	return func(o *factoryOptions) { o.metrics = m }
}

// WithIdleTTL evicts clients that have not been rebuilt for d.
func WithIdleTTL(d time.Duration) FactoryOption {
	return func(o *factoryOptions) { o.idleTTL = d }
}

// NewHTTPClient returns the client used for every call to Shopify.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = config.DefaultProviderTimeout
	}
	return &http.Client{Timeout: timeout}
}

func NewClientFactory(store *credentials.Store, options ...FactoryOption) *ClientFactory {
	o := factoryOptions{
		origin:  DefaultOrigin,
		idleTTL: defaultIdleTTL,
	}
	for _, opt := range options {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = NewHTTPClient(config.DefaultProviderTimeout)
	}

	f := &ClientFactory{
		store:      store,
		clients:    gocache.New(o.idleTTL, o.idleTTL),
		httpClient: o.httpClient,
		origin:     o.origin,
		metrics:    o.metrics,
	}
	store.Subscribe(f.Evict)
	return f
}

// Client returns the tenant's Admin API client, building it on first use.
func (f *ClientFactory) Client(tenantID string) (*Client, error) {
	key := cacheKey(tenantID)
	credential, revision, ok := f.store.Revision(tenantID)
	if !ok {
		f.clients.Delete(key)
		return nil, errors.Wrapf(errors.ErrNotAuthenticated, "shopify configuration not set for tenant %q, please authenticate first", tenantID)
	}

	if v, found := f.clients.Get(key); found {
		if cached := v.(*cachedClient); cached.revision == revision {
			return cached.client, nil
		}
	}

	v, _, _ := f.builds.Do(key+"@"+strconv.FormatUint(revision, 10), func() (any, error) {
		client := &Client{
			tenantID:    tenantID,
			shopDomain:  NormalizeShopDomain(credential.ShopDomain),
			baseURL:     apiBaseURL(f.origin, credential.ShopDomain, credential.APIVersion),
			accessToken: credential.AccessToken,
			httpClient:  f.httpClient,
			metrics:     f.metrics,
		}
		f.clients.SetDefault(key, &cachedClient{revision: revision, client: client})
		return client, nil
	})
	return v.(*Client), nil
}

// Evict drops the tenant's cached client.
func (f *ClientFactory) Evict(tenantID string) {
	f.clients.Delete(cacheKey(tenantID))
}

// Cached returns the number of clients currently held.
func (f *ClientFactory) Cached() int {
	return f.clients.ItemCount()
}

// Origin exposes the configured origin for callers that talk to OAuth endpoints.
func (f *ClientFactory) Origin() OriginFunc {
	return f.origin
}

// HTTPClient exposes the shared transport.
func (f *ClientFactory) HTTPClient() *http.Client {
	return f.httpClient
}

func cacheKey(tenantID string) string {
	return "tenant:" + tenantID
}
