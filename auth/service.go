// Package auth drives the two login flows (Shopify OAuth and static access
// token) and writes their results to the session and credential stores.
package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/cartcash/credentials"
	"github.com/jrsteele09/cartcash/internal/config"
	apperrors "github.com/jrsteele09/cartcash/internal/errors"
	"github.com/jrsteele09/cartcash/internal/metrics"
	"github.com/jrsteele09/cartcash/sessions"
	"github.com/jrsteele09/cartcash/shopify"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultStateTTL = 10 * time.Minute

// Login flow labels used in metrics.
const (
	flowOAuth  = "oauth"
	flowStatic = "static"
	flowHeader = "header"
)

// Deps holds the stores and the client factory the service writes to.
type Deps struct {
	Credentials *credentials.Store
	Sessions    sessions.Repo
	Clients     *shopify.ClientFactory
}

// Settings are the app level values the flows need.
type Settings struct {
	AppURL             string
	APIVersion         string
	StorefrontPassword string
	AppKey             string
	AppSecret          string
}

// SettingsFromConfig reads Settings from the environment config.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		AppURL:             cfg.GetAppURL(),
		APIVersion:         cfg.GetAPIVersion(),
		StorefrontPassword: cfg.GetStorefrontPassword(),
		AppKey:             cfg.GetShopifyAPIKey(),
		AppSecret:          cfg.GetShopifyAPISecret(),
	}
}

// Login is the result of a successful login. Warning is set when the session
// could not be persisted: the tenant is usable now but will not survive a
// restart.
type Login struct {
	Session    *sessions.Record
	Credential credentials.TenantCredential
	Warning    error
}

// Status is the answer to CheckStatus.
type Status struct {
	Authenticated bool
	ShopDomain    string
	SessionID     string
	HasConfig     bool
}

type Service struct {
	credentials *credentials.Store
	sessions    sessions.Repo
	clients     *shopify.ClientFactory
	prober      shopify.Prober
	settings    Settings
	states      *flowStates
	pending     *gocache.Cache
	stateTTL    time.Duration
	metrics     *metrics.Metrics
	nowTime     func() time.Time
	logger      zerolog.Logger
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithStateTTL sets how long an OAuth redirect stays valid.
func WithStateTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.stateTTL = ttl
	}
}

func NewService(deps Deps, settings Settings, options ...ServiceOption) (*Service, error) {
	if deps.Credentials == nil {
		return nil, errors.New("[NewService] credential store is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("[NewService] session repo is required")
	}
	if deps.Clients == nil {
		return nil, errors.New("[NewService] client factory is required")
	}
	if settings.APIVersion == "" {
		settings.APIVersion = config.DefaultAPIVersion
	}

	s := &Service{
		credentials: deps.Credentials,
		sessions:    deps.Sessions,
		clients:     deps.Clients,
		settings:    settings,
		states:      newFlowStates(),
		stateTTL:    defaultStateTTL,
		nowTime:     time.Now,
		logger:      log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	s.pending = gocache.New(s.stateTTL, s.stateTTL)
	s.prober = shopify.Prober{
		HTTPClient: deps.Clients.HTTPClient(),
		Origin:     deps.Clients.Origin(),
		Metrics:    s.metrics,
	}
	return s, nil
}

// State returns where the tenant is in the login flow.
func (s *Service) State(tenantID string) State {
	return s.states.get(tenantID)
}

// OAuthConfigured reports whether the app level OAuth key and secret are set.
func (s *Service) OAuthConfigured() bool {
	return s.settings.AppKey != "" && s.settings.AppSecret != ""
}

// AppCredentials returns the app level OAuth key and secret.
func (s *Service) AppCredentials() (string, string) {
	return s.settings.AppKey, s.settings.AppSecret
}

// Logout deletes every session the tenant owns and its live credential. It
// succeeds when there is nothing to remove; a failure to persist the deletion
// is returned for logging only.
func (s *Service) Logout(ctx context.Context, tenantID string) error {
	var persistErr error
	removed, err := s.sessions.DeleteByOwner(ctx, tenantID)
	if err != nil {
		persistErr = errors.Wrap(err, "[Logout] delete sessions")
	}

	s.credentials.Remove(tenantID)
	s.metrics.SetLiveCredentials(s.credentials.Len())
	s.pending.Delete(tenantID)

	s.states.set(tenantID, StateLoggedOut, 0)
	s.states.set(tenantID, StateAnonymous, 0)
	s.logger.Info().Str("tenant", tenantID).Int("sessions", removed).Msg("Logged out")
	return persistErr
}

// CheckStatus reports whether the tenant has a current session. When the live
// credential is missing (after a restart) it is rebuilt from the session.
func (s *Service) CheckStatus(ctx context.Context, tenantID string) (Status, error) {
	record, cfg, err := s.sessions.CurrentSessionWithConfig(ctx, tenantID)
	if err != nil {
		return Status{}, apperrors.Wrapf(apperrors.ErrNotAuthenticated, "[CheckStatus] no valid session for tenant %q", tenantID)
	}

	status := Status{
		Authenticated: true,
		ShopDomain:    record.Shop,
		SessionID:     record.ID,
		HasConfig:     cfg != nil,
	}

	if _, ok := s.credentials.Get(tenantID); !ok {
		credential := credentialFromRecord(record, cfg, s.settings.APIVersion)
		if err := s.credentials.Set(tenantID, credential); err != nil {
			s.logger.Warn().Err(err).Str("tenant", tenantID).Msg("Session has no usable Shopify configuration")
		} else {
			s.metrics.SetLiveCredentials(s.credentials.Len())
			s.logger.Info().Str("tenant", tenantID).Str("session", record.ID).Msg("Shopify configuration restored from session")
		}
	}
	if s.states.get(tenantID) == StateAnonymous {
		s.states.set(tenantID, StateAuthenticated, 0)
	}
	return status, nil
}

// HasSessionForShop reports whether the tenant's current session is for shop.
// The anonymous tenant only considers sessions without an owner.
func (s *Service) HasSessionForShop(ctx context.Context, tenantID, shop string) bool {
	current, err := s.sessions.CurrentSession(ctx, tenantID)
	if err != nil {
		return false
	}
	return current.Shop == shop || current.Shop == shopify.NormalizeShopDomain(shop)
}

// credentialFromRecord prefers the embedded snapshot and falls back to the
// record's own shop and token for records written without one.
func credentialFromRecord(record *sessions.Record, cfg *credentials.TenantCredential, apiVersion string) credentials.TenantCredential {
	if cfg != nil {
		return *cfg
	}
	return credentials.TenantCredential{
		ShopDomain:  record.Shop,
		AccessToken: record.AccessToken,
		APIVersion:  apiVersion,
	}
}

// activate writes a successful login to both stores. The credential is set
// first so the tenant can be served even if the session write fails.
func (s *Service) activate(ctx context.Context, flow string, record *sessions.Record, credential credentials.TenantCredential) (*Login, error) {
	if err := s.credentials.Set(record.OwnerTenantID, credential); err != nil {
		s.metrics.AuthAttempt(flow, metrics.OutcomeFailure)
		return nil, err
	}
	s.metrics.SetLiveCredentials(s.credentials.Len())

	login := &Login{Session: record, Credential: credential}
	if err := s.sessions.Store(ctx, record); err != nil {
		login.Warning = err
		s.logger.Warn().Err(err).Object("session", record).Msg("Session not persisted, login will not survive a restart")
	}

	s.states.set(record.OwnerTenantID, StateAuthenticated, 0)
	s.metrics.AuthAttempt(flow, metrics.OutcomeSuccess)
	s.logger.Info().Str("flow", flow).Object("session", record).Msg("Authenticated")
	return login, nil
}

func (s *Service) fail(flow, tenantID string, err error) error {
	s.states.set(tenantID, StateAnonymous, 0)
	s.metrics.AuthAttempt(flow, metrics.OutcomeFailure)
	return err
}
