package server

import "net/http"

type healthResponse struct {
	Status      string `json:"status"`
	OAuth       bool   `json:"oauthConfigured"`
	LiveClients int    `json:"liveClients"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:      "ok",
			OAuth:       s.auth.OAuthConfigured(),
			LiveClients: s.clients.Cached(),
		})
	}
}
