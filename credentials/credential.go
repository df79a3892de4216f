package credentials

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/cartcash/internal/config"
	"github.com/jrsteele09/cartcash/internal/errors"
	"github.com/jrsteele09/cartcash/internal/logging"
	"github.com/rs/zerolog"
)

// TenantCredential is the live Shopify API bundle used to call the Admin API on
// behalf of one tenant. The JSON names match the "shopifyConfig" object embedded
// in persisted sessions.
type TenantCredential struct {
	TenantID           string `json:"userId,omitempty"`
	ShopDomain         string `json:"shopName"`
	AccessToken        string `json:"accessToken"`
	APIVersion         string `json:"apiVersion"`
	AppKey             string `json:"apiKey,omitempty"`
	AppSecret          string `json:"apiSecret,omitempty"`
	StorefrontPassword string `json:"storefrontPassword,omitempty"`
}

// Validate rejects credentials that cannot be used to build a client.
func (c *TenantCredential) Validate() error {
	if strings.TrimSpace(c.ShopDomain) == "" {
		return errors.Wrapf(errors.ErrConfig, "shop domain is required")
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		return errors.Wrapf(errors.ErrConfig, "access token is required")
	}
	return nil
}

// withDefaults fills the API version when the caller left it blank.
func (c TenantCredential) withDefaults() TenantCredential {
	if c.APIVersion == "" {
		c.APIVersion = config.DefaultAPIVersion
	}
	return c
}

// HasAppCredentials reports whether the credential came from the OAuth flow.
func (c *TenantCredential) HasAppCredentials() bool {
	return c.AppKey != "" && c.AppSecret != ""
}

func (c TenantCredential) String() string {
	return fmt.Sprintf("TenantCredential{tenant=%q shop=%q apiVersion=%q token=%s oauth=%t}",
		c.TenantID, c.ShopDomain, c.APIVersion, logging.Redact(c.AccessToken), c.HasAppCredentials())
}

// MarshalZerologObject logs the credential without its secrets.
func (c TenantCredential) MarshalZerologObject(e *zerolog.Event) {
	e.Str("tenant", c.TenantID).
		Str("shop", c.ShopDomain).
		Str("apiVersion", c.APIVersion).
		Bool("oauth", c.HasAppCredentials())
}
