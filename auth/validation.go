package auth

import (
	"strings"

	"github.com/jrsteele09/cartcash/internal/errors"
	"github.com/jrsteele09/cartcash/shopify"
)

// validateOAuthShop prepares a shop for the OAuth flow. Only the scheme and
// case are forgiven; a bare store name is rejected.
func validateOAuthShop(shop string) (string, error) {
	if strings.TrimSpace(shop) == "" {
		return "", errors.Wrapf(errors.ErrInvalidShopDomain, "shop parameter is required")
	}
	sanitized := shopify.SanitizeShopInput(shop)
	if !shopify.ValidShopDomain(sanitized) {
		return "", errors.Wrapf(errors.ErrInvalidShopDomain, "%q is not a valid shop domain, expected yourstore.myshopify.com", sanitized)
	}
	return sanitized, nil
}

// validateStaticShop accepts a bare store name as well as a full domain.
func validateStaticShop(shop string) (string, error) {
	if strings.TrimSpace(shop) == "" {
		return "", errors.Wrapf(errors.ErrMissingCredentials, "shop and access token are required")
	}
	normalized := shopify.NormalizeShopDomain(shop)
	if !shopify.ValidShopDomain(normalized) {
		return "", errors.Wrapf(errors.ErrInvalidShopDomain, "%q is not a valid shop name", strings.TrimSpace(shop))
	}
	return normalized, nil
}

func validateTenant(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return errors.Wrapf(errors.ErrMissingTenant, "user id is required for multi-user authentication")
	}
	return nil
}

func validateAppCredentials(appKey, appSecret string) error {
	if strings.TrimSpace(appKey) == "" || strings.TrimSpace(appSecret) == "" {
		return errors.Wrapf(errors.ErrMissingCredentials, "app credentials are required to complete OAuth")
	}
	return nil
}
