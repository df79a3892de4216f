package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/cartcash/internal/errors"
)

// stateClaims bind an OAuth state parameter to the tenant and shop that
// started the flow. The token is signed with the app secret.
type stateClaims struct {
	Tenant string `json:"tid"`
	Shop   string `json:"shop"`
	jwt.RegisteredClaims
}

func (s *Service) signState(tenantID, shop, appSecret string) (string, error) {
	now := s.nowTime()
	claims := stateClaims{
		Tenant: tenantID,
		Shop:   shop,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.stateTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(appSecret))
	if err != nil {
		return "", errors.Wrapf(err, "[signState] sign")
	}
	return signed, nil
}

// VerifyState checks the state echoed back on the callback. It fails with
// ErrInvalidState when the token is malformed, expired, signed with another
// secret or was minted for a different tenant or shop.
func (s *Service) VerifyState(state, shop, tenantID, appSecret string) error {
	if state == "" {
		return errors.Wrapf(errors.ErrInvalidState, "missing state parameter")
	}
	_, appSecret = s.appCredentials(tenantID, "", appSecret)
	if appSecret == "" {
		return errors.Wrapf(errors.ErrMissingCredentials, "app credentials are required to verify state")
	}

	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(appSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.nowTime),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidState, "state rejected: %v", err)
	}
	if claims.Tenant != tenantID {
		return errors.Wrapf(errors.ErrInvalidState, "state was issued to another user")
	}
	if sanitized, err := validateOAuthShop(shop); err != nil || claims.Shop != sanitized {
		return errors.Wrapf(errors.ErrInvalidState, "state was issued for another shop")
	}
	return nil
}
