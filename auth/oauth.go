package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/cartcash/credentials"
	apperrors "github.com/jrsteele09/cartcash/internal/errors"
	"github.com/jrsteele09/cartcash/internal/metrics"
	"github.com/jrsteele09/cartcash/internal/utils"
	"github.com/jrsteele09/cartcash/sessions"
	"github.com/jrsteele09/cartcash/shopify"
	"golang.org/x/oauth2"
)

// CallbackPath is where the provider sends the merchant back to.
const CallbackPath = "/auth/callback"

// oauthScope is sent as one comma separated value, the form Shopify expects.
var oauthScope = strings.Join(shopify.ReadOnlyScopes, ",")

// BeginOAuth returns the provider authorization URL for the tenant's shop.
//
// The callback URL carries the tenant id and the app key and secret, which is
// the redirect contract existing deployments rely on. The same values are also
// remembered server side so a callback without them can still complete.
func (s *Service) BeginOAuth(ctx context.Context, shop, tenantID, appKey, appSecret string) (string, error) {
	shop, err := validateOAuthShop(shop)
	if err != nil {
		return "", err
	}
	if err := validateTenant(tenantID); err != nil {
		return "", err
	}
	if err := validateAppCredentials(appKey, appSecret); err != nil {
		return "", err
	}

	state, err := s.signState(tenantID, shop, appSecret)
	if err != nil {
		return "", err
	}

	callback := url.Values{}
	callback.Set("userId", tenantID)
	callback.Set("appKey", appKey)
	callback.Set("appSecret", appSecret)

	cfg := s.oauthConfig(shop, appKey, appSecret)
	cfg.RedirectURL = strings.TrimRight(s.settings.AppURL, "/") + CallbackPath + "?" + callback.Encode()
	authURL := cfg.AuthCodeURL(state)

	s.pending.Set(tenantID, &pendingFlow{shop: shop, appKey: appKey, appSecret: appSecret}, s.stateTTL)
	s.states.set(tenantID, StateAwaitingProviderRedirect, s.stateTTL)
	s.logger.Info().Str("tenant", tenantID).Str("shop", shop).Msg("Redirecting to Shopify for authorization")
	return authURL, nil
}

// CompleteOAuth exchanges the authorization code for an offline access token
// and activates the tenant. Blank app credentials are filled from the pending
// flow and then from the app config.
func (s *Service) CompleteOAuth(ctx context.Context, code, shop, tenantID, appKey, appSecret string) (*Login, error) {
	if err := validateTenant(tenantID); err != nil {
		return nil, s.fail(flowOAuth, tenantID, err)
	}
	shop, err := validateOAuthShop(shop)
	if err != nil {
		return nil, s.fail(flowOAuth, tenantID, err)
	}
	appKey, appSecret = s.appCredentials(tenantID, appKey, appSecret)
	if err := validateAppCredentials(appKey, appSecret); err != nil {
		return nil, s.fail(flowOAuth, tenantID, err)
	}
	if strings.TrimSpace(code) == "" {
		return nil, s.fail(flowOAuth, tenantID, apperrors.Wrapf(apperrors.ErrMissingCredentials, "missing authorization code"))
	}

	s.states.set(tenantID, StateExchangingCode, 0)
	token, err := s.exchange(ctx, shop, appKey, appSecret, code)
	if err != nil {
		s.logger.Err(err).Str("tenant", tenantID).Str("shop", shop).Msg("Token exchange failed")
		return nil, s.fail(flowOAuth, tenantID, err)
	}

	now := s.nowTime()
	credential := credentials.TenantCredential{
		TenantID:           tenantID,
		ShopDomain:         shop,
		AccessToken:        token.AccessToken,
		APIVersion:         s.settings.APIVersion,
		AppKey:             appKey,
		AppSecret:          appSecret,
		StorefrontPassword: s.settings.StorefrontPassword,
	}
	record := &sessions.Record{
		ID:            fmt.Sprintf("session_%s_%s", tenantID, uuid.NewString()),
		Shop:          shop,
		AccessToken:   token.AccessToken,
		Scope:         grantedScopes(token),
		IsOnline:      false,
		CreatedAt:     now,
		OwnerTenantID: tenantID,
		Config:        utils.Ptr(credential),
	}
	if !token.Expiry.IsZero() {
		record.ExpiresAt = utils.Ptr(token.Expiry)
	}

	s.pending.Delete(tenantID)
	return s.activate(ctx, flowOAuth, record, credential)
}

func (s *Service) oauthConfig(shop, appKey, appSecret string) *oauth2.Config {
	origin := s.clients.Origin()
	return &oauth2.Config{
		ClientID:     appKey,
		ClientSecret: appSecret,
		Scopes:       []string{oauthScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   shopify.AuthorizeURL(origin, shop),
			TokenURL:  shopify.TokenURL(origin, shop),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// exchange posts the code to the shop's token endpoint. Provider responses are
// reduced to their status so tokens in a body never reach an error message.
func (s *Service) exchange(ctx context.Context, shop, appKey, appSecret, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.clients.HTTPClient())
	token, err := s.oauthConfig(shop, appKey, appSecret).Exchange(ctx, code)
	if err != nil {
		s.metrics.ProviderCall("oauth_token", metrics.OutcomeFailure)
		var retrieveErr *oauth2.RetrieveError
		if apperrors.As(err, &retrieveErr) {
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			return nil, apperrors.Wrapf(apperrors.ErrTokenExchangeFailed, "failed to exchange authorization code for access token (status %d)", status)
		}
		var urlErr *url.Error
		if apperrors.As(err, &urlErr) {
			reason := "shopify could not be reached"
			if urlErr.Timeout() {
				reason = "request timed out"
			}
			return nil, apperrors.Wrapf(apperrors.ErrProviderUnavailable, "token exchange: %s", reason)
		}
		return nil, apperrors.Wrapf(apperrors.ErrTokenExchangeFailed, "no access token received from Shopify")
	}
	if token.AccessToken == "" {
		s.metrics.ProviderCall("oauth_token", metrics.OutcomeFailure)
		return nil, apperrors.Wrapf(apperrors.ErrTokenExchangeFailed, "no access token received from Shopify")
	}
	s.metrics.ProviderCall("oauth_token", metrics.OutcomeSuccess)
	return token, nil
}

// grantedScopes uses the scope echoed by the token response when present.
func grantedScopes(token *oauth2.Token) sessions.Scopes {
	var scopes []string
	switch granted := token.Extra("scope").(type) {
	case string:
		scopes = utils.SplitScopes(granted)
	case []any:
		scopes = utils.ToStringSlice(granted)
	}
	if len(scopes) > 0 {
		return scopes
	}
	return append(sessions.Scopes(nil), shopify.ReadOnlyScopes...)
}

// appCredentials fills blank values from the tenant's pending flow and then
// from the app config.
func (s *Service) appCredentials(tenantID, appKey, appSecret string) (string, string) {
	if appKey != "" && appSecret != "" {
		return appKey, appSecret
	}
	if v, ok := s.pending.Get(tenantID); ok {
		flow := v.(*pendingFlow)
		if appKey == "" {
			appKey = flow.appKey
		}
		if appSecret == "" {
			appSecret = flow.appSecret
		}
	}
	if appKey == "" {
		appKey = s.settings.AppKey
	}
	if appSecret == "" {
		appSecret = s.settings.AppSecret
	}
	return appKey, appSecret
}

// StateTTL is how long an OAuth redirect stays valid.
func (s *Service) StateTTL() time.Duration {
	return s.stateTTL
}
