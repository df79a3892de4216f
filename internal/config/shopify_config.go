package config

import "time"

const (
	DefaultAPIVersion      = "2024-04"
	DefaultProviderTimeout = 10 * time.Second
)

type ShopifyConfig interface {
	GetShopifyAPIKey() string
	GetShopifyAPISecret() string
	GetAPIVersion() string
	GetStaticShopName() string
	GetStaticAccessToken() string
	GetStorefrontPassword() string
	GetProviderTimeout() time.Duration
}

type Shopify struct{}

var _ ShopifyConfig = Shopify{}

// GetShopifyAPIKey is the app-level OAuth client id shared by every tenant.
func (Shopify) GetShopifyAPIKey() string {
	return GetEnv("SHOPIFY_API_KEY", "")
}

func (Shopify) GetShopifyAPISecret() string {
	return GetEnv("SHOPIFY_API_SECRET", "")
}

func (Shopify) GetAPIVersion() string {
	return GetEnv("SHOPIFY_API_VERSION", DefaultAPIVersion)
}

// GetStaticShopName and GetStaticAccessToken enable the env fallback login.
func (Shopify) GetStaticShopName() string {
	return GetEnv("SHOPIFY_SHOP_NAME", "")
}

func (Shopify) GetStaticAccessToken() string {
	return GetEnv("SHOPIFY_ACCESS_TOKEN", "")
}

func (Shopify) GetStorefrontPassword() string {
	return GetEnv("SHOPIFY_STOREFRONT_PASSWORD", "")
}

func (Shopify) GetProviderTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv("PROVIDER_TIMEOUT", ""))
	if err != nil || d <= 0 {
		return DefaultProviderTimeout
	}
	return d
}
