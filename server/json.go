package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/cartcash/internal/errors"
)

const contentTypeJSON = "application/json"

type errorResponse struct {
	Error         string `json:"error"`
	SetupRequired bool   `json:"setupRequired,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, into any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(into)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "decode JSON body: %v", err)
	}
	return nil
}

// publicErrors maps the error taxonomy to a status and a message safe to show
// the user. Order matters: the first match wins.
var publicErrors = []struct {
	target  error
	status  int
	message string
}{
	{errors.ErrOAuthNotConfigured, http.StatusInternalServerError, "Shopify OAuth not configured. Set SHOPIFY_API_KEY and SHOPIFY_API_SECRET, or log in with a static access token."},
	{errors.ErrInvalidShopDomain, http.StatusBadRequest, "Invalid shop domain format"},
	{errors.ErrMissingTenant, http.StatusBadRequest, "User ID is required for multi-user authentication"},
	{errors.ErrMissingCredentials, http.StatusBadRequest, "Shop and access token are required"},
	{errors.ErrInvalidState, http.StatusBadRequest, "Invalid or expired OAuth state, please start the login again"},
	{errors.ErrConfig, http.StatusBadRequest, "Invalid Shopify configuration"},
	{errors.ErrInvalidSession, http.StatusBadRequest, "Invalid session"},
	{errors.ErrInvalidRequest, http.StatusBadRequest, "Request body must be valid JSON"},
	{errors.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid access token or shop domain"},
	{errors.ErrNotAuthenticated, http.StatusUnauthorized, "No valid session found"},
	{errors.ErrForbidden, http.StatusForbidden, "Access forbidden, check the app has the read_orders scope"},
	{errors.ErrTokenExchangeFailed, http.StatusInternalServerError, "Failed to exchange authorization code for access token"},
	{errors.ErrProviderUnavailable, http.StatusInternalServerError, "Failed to reach Shopify, please try again"},
	{errors.ErrProviderStatus, http.StatusInternalServerError, "Shopify returned an unexpected response"},
}

// statusFor returns the HTTP status and user message for err.
func statusFor(err error) (int, string) {
	for _, pe := range publicErrors {
		if errors.Is(err, pe.target) {
			return pe.status, pe.message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Err(err).Int("status", status).Msg("Request failed")
	} else {
		s.logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, errorResponse{
		Error:         message,
		SetupRequired: errors.Is(err, errors.ErrOAuthNotConfigured),
	})
}
