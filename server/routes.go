package server

import "net/http"

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteFunc("GET "+RouteAuth, ChainMiddleware(s.BeginOAuthHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuth, ChainMiddleware(s.VerifySessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteStaticLogin, ChainMiddleware(s.StaticLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteCheck, ChainMiddleware(s.CheckHandler(), s.APIMiddleware(s.HeaderCredentialMiddleware)...))
	s.RegisterRouteFunc("GET "+RouteCheckOAuth, ChainMiddleware(s.CheckOAuthHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// DATA
	s.RegisterRouteFunc("GET "+RouteAbandonedCarts, ChainMiddleware(s.AbandonedCartsHandler(), s.APIMiddleware(s.HeaderCredentialMiddleware, s.CompressionMiddleware)...))

	// CORS preflight for every route above
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.CorsMiddleware))

	// OPERATIONS
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}
