package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/cartcash/credentials"
	apperrors "github.com/jrsteele09/cartcash/internal/errors"
	"github.com/jrsteele09/cartcash/internal/utils"
	"github.com/jrsteele09/cartcash/sessions"
	"github.com/jrsteele09/cartcash/shopify"
)

// StaticLogin validates a merchant supplied Admin API token with one probe of
// shop.json and activates the tenant. Nothing is written when the probe fails.
// The empty tenant id logs in the anonymous tenant.
func (s *Service) StaticLogin(ctx context.Context, tenantID, shop, accessToken string) (*Login, error) {
	return s.staticLogin(ctx, flowStatic, tenantID, shop, accessToken)
}

// HeaderLogin is StaticLogin for credentials supplied on request headers. It
// returns a Login without a Session when the tenant's live credential already
// carries the same shop and token.
func (s *Service) HeaderLogin(ctx context.Context, tenantID, shop, accessToken string) (*Login, error) {
	if live, ok := s.credentials.Get(tenantID); ok {
		if live.AccessToken == strings.TrimSpace(accessToken) && live.ShopDomain == shopify.NormalizeShopDomain(shop) {
			return &Login{Credential: live}, nil
		}
	}
	return s.staticLogin(ctx, flowHeader, tenantID, shop, accessToken)
}

func (s *Service) staticLogin(ctx context.Context, flow, tenantID, shop, accessToken string) (*Login, error) {
	domain, err := validateStaticShop(shop)
	if err != nil {
		return nil, s.fail(flow, tenantID, err)
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, s.fail(flow, tenantID, apperrors.Wrapf(apperrors.ErrMissingCredentials, "shop and access token are required"))
	}

	s.states.set(tenantID, StateValidatingToken, 0)
	info, err := s.prober.ProbeShop(ctx, domain, s.settings.APIVersion, accessToken)
	if err != nil {
		s.logger.Err(err).Str("tenant", tenantID).Str("shop", domain).Msg("Access token validation failed")
		return nil, s.fail(flow, tenantID, err)
	}
	s.logger.Debug().Str("shop", domain).Str("name", info.Name).Msg("Access token validated")

	credential := credentials.TenantCredential{
		TenantID:           tenantID,
		ShopDomain:         domain,
		AccessToken:        accessToken,
		APIVersion:         s.settings.APIVersion,
		StorefrontPassword: s.settings.StorefrontPassword,
	}
	record := &sessions.Record{
		ID:            "static-" + shopify.ShopName(domain) + "-" + uuid.NewString(),
		Shop:          domain,
		AccessToken:   accessToken,
		Scope:         append(sessions.Scopes(nil), shopify.ReadOnlyScopes...),
		ExpiresAt:     nil,
		IsOnline:      false,
		CreatedAt:     s.nowTime(),
		OwnerTenantID: tenantID,
		Config:        utils.Ptr(credential),
	}
	return s.activate(ctx, flow, record, credential)
}
