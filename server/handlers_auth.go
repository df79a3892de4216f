package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/cartcash/internal/errors"
)

type verifySessionRequest struct {
	Shop   string `json:"shop"`
	UserID string `json:"userId"`
}

type verifySessionResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Shop    string `json:"shop"`
}

type staticLoginRequest struct {
	Shop        string `json:"shop"`
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
}

type staticLoginResponse struct {
	Success   bool   `json:"success"`
	Shop      string `json:"shop"`
	SessionID string `json:"sessionId"`
	Warning   string `json:"warning,omitempty"`
}

type checkResponse struct {
	Success   bool   `json:"success"`
	Shop      string `json:"shop"`
	SessionID string `json:"sessionId"`
	HasConfig bool   `json:"hasConfig"`
}

type checkOAuthResponse struct {
	OAuthConfigured bool   `json:"oauthConfigured"`
	Message         string `json:"message"`
}

type successResponse struct {
	Success bool `json:"success"`
}

const persistenceWarning = "Logged in, but the session could not be saved and will be lost on restart"

// BeginOAuthHandler redirects the merchant to Shopify's authorization page
// using the app level OAuth credentials.
func (s *Server) BeginOAuthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		appKey, appSecret := s.auth.AppCredentials()

		authURL, err := s.auth.BeginOAuth(r.Context(), q.Get("shop"), q.Get(ParamUserID), appKey, appSecret)
		if errors.Is(err, errors.ErrMissingCredentials) && !s.auth.OAuthConfigured() {
			err = errors.Wrapf(errors.ErrOAuthNotConfigured, "[BeginOAuthHandler]")
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}

// VerifySessionHandler confirms the tenant's current session is for the given
// shop. Without a user id only sessions that have no owner are considered.
func (s *Server) VerifySessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifySessionRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		if strings.TrimSpace(req.Shop) == "" {
			s.writeError(w, errors.Wrapf(errors.ErrInvalidShopDomain, "shop parameter is required"))
			return
		}
		if !s.auth.HasSessionForShop(r.Context(), req.UserID, req.Shop) {
			s.writeError(w, errors.Wrapf(errors.ErrNotAuthenticated, "no session for shop %q", req.Shop))
			return
		}
		writeJSON(w, http.StatusOK, verifySessionResponse{Success: true, UserID: req.UserID, Shop: req.Shop})
	}
}

// OAuthCallbackHandler completes the OAuth flow and sends the merchant back
// to the dashboard.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		shop := q.Get("shop")
		tenantID := q.Get(ParamUserID)
		appKey := q.Get("appKey")
		appSecret := q.Get("appSecret")

		if tenantID == "" {
			s.writeError(w, errors.Wrapf(errors.ErrMissingTenant, "[OAuthCallbackHandler]"))
			return
		}
		if err := s.auth.VerifyState(q.Get("state"), shop, tenantID, appSecret); err != nil {
			s.writeError(w, err)
			return
		}

		login, err := s.auth.CompleteOAuth(r.Context(), q.Get("code"), shop, tenantID, appKey, appSecret)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if login.Warning != nil {
			s.logger.Warn().Err(login.Warning).Str("tenant", tenantID).Msg(persistenceWarning)
		}

		s.setTenantCookie(w, r, tenantID)
		redirect := url.Values{}
		redirect.Set("shop", login.Session.Shop)
		redirect.Set(ParamUserID, tenantID)
		http.Redirect(w, r, strings.TrimRight(s.config.GetAppURL(), "/")+"/?"+redirect.Encode(), http.StatusTemporaryRedirect)
	}
}

// StaticLoginHandler logs a tenant in with an Admin API access token.
func (s *Server) StaticLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req staticLoginRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		if req.UserID == "" {
			req.UserID = tenantFromRequest(r)
		}

		login, err := s.auth.StaticLogin(r.Context(), req.UserID, req.Shop, req.AccessToken)
		if err != nil {
			s.writeError(w, err)
			return
		}

		resp := staticLoginResponse{Success: true, Shop: login.Session.Shop, SessionID: login.Session.ID}
		if login.Warning != nil {
			resp.Warning = persistenceWarning
		}
		s.setTenantCookie(w, r, req.UserID)
		writeJSON(w, http.StatusOK, resp)
	}
}

// CheckHandler reports the tenant's current session.
func (s *Server) CheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := s.auth.CheckStatus(r.Context(), tenantFromRequest(r))
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, checkResponse{
			Success:   status.Authenticated,
			Shop:      status.ShopDomain,
			SessionID: status.SessionID,
			HasConfig: status.HasConfig,
		})
	}
}

func (s *Server) CheckOAuthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth.OAuthConfigured() {
			writeJSON(w, http.StatusOK, checkOAuthResponse{OAuthConfigured: true, Message: "OAuth is configured and ready to use"})
			return
		}
		writeJSON(w, http.StatusOK, checkOAuthResponse{
			OAuthConfigured: false,
			Message:         "OAuth not configured. Set SHOPIFY_API_KEY and SHOPIFY_API_SECRET to enable OAuth.",
		})
	}
}

// LogoutHandler always succeeds; failures to persist the removal are logged.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"userId"`
		}
		if err := decodeJSON(r, &req); err != nil {
			s.logger.Debug().Err(err).Msg("Ignoring malformed logout body")
		}
		tenantID := req.UserID
		if tenantID == "" {
			tenantID = tenantFromRequest(r)
		}

		if err := s.auth.Logout(r.Context(), tenantID); err != nil {
			s.logger.Err(err).Str("tenant", tenantID).Msg("Logout could not be persisted")
		}
		clearTenantCookie(w)
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}
