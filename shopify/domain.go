// Package shopify builds authenticated Admin API clients for tenants and holds
// the Shopify specific URL and domain rules.
package shopify

import (
	"regexp"
	"strings"
)

const (
	// AccessTokenHeader carries the Admin API token. Its value must never be logged.
	AccessTokenHeader = "X-Shopify-Access-Token"

	shopSuffix = ".myshopify.com"
)

// ReadOnlyScopes are the permissions requested by the OAuth flow and recorded on
// every session.
var ReadOnlyScopes = []string{"read_orders", "read_customers", "read_content"}

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com$`)

// ValidShopDomain reports whether shop is a bare *.myshopify.com host. Schemes,
// paths and underscores are rejected.
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(strings.TrimSpace(shop))
}

// SanitizeShopInput prepares user input for validation: surrounding whitespace,
// an http(s) scheme and trailing slashes are removed and the host is lower-cased.
func SanitizeShopInput(shop string) string {
	shop = strings.TrimSpace(shop)
	lower := strings.ToLower(shop)
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, scheme) {
			lower = lower[len(scheme):]
			break
		}
	}
	return strings.TrimRight(lower, "/")
}

// NormalizeShopDomain turns "mystore", "mystore.myshopify.com" or
// "https://mystore.myshopify.com/" into "mystore.myshopify.com". Applying it
// twice gives the same result as applying it once.
func NormalizeShopDomain(shop string) string {
	shop = SanitizeShopInput(shop)
	if shop == "" {
		return ""
	}
	return strings.TrimSuffix(shop, shopSuffix) + shopSuffix
}

// ShopName returns the store handle without the myshopify suffix.
func ShopName(shop string) string {
	return strings.TrimSuffix(NormalizeShopDomain(shop), shopSuffix)
}

// OriginFunc maps a shop domain to the scheme and host its API is served from.
type OriginFunc func(shopDomain string) string

// DefaultOrigin serves every shop over https from its own domain.
func DefaultOrigin(shopDomain string) string {
	return "https://" + NormalizeShopDomain(shopDomain)
}

// BaseURL is the Admin REST root for a shop and API version.
func BaseURL(shopDomain, apiVersion string) string {
	return apiBaseURL(DefaultOrigin, shopDomain, apiVersion)
}

func apiBaseURL(origin OriginFunc, shopDomain, apiVersion string) string {
	return strings.TrimRight(origin(NormalizeShopDomain(shopDomain)), "/") + "/admin/api/" + apiVersion
}

// AuthorizeURL and TokenURL are the OAuth endpoints of a shop.
func AuthorizeURL(origin OriginFunc, shopDomain string) string {
	return strings.TrimRight(origin(shopDomain), "/") + "/admin/oauth/authorize"
}

func TokenURL(origin OriginFunc, shopDomain string) string {
	return strings.TrimRight(origin(shopDomain), "/") + "/admin/oauth/access_token"
}
