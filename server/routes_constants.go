package server

// Route path constants
const (
	// Auth routes
	RouteAuth        = "/auth"
	RouteCallback    = "/auth/callback"
	RouteStaticLogin = "/auth/static-login"
	RouteCheck       = "/auth/check"
	RouteCheckOAuth  = "/auth/check-oauth"
	RouteLogout      = "/auth/logout"

	// Data routes
	RouteAbandonedCarts = "/api/abandoned-carts"

	// Operational routes
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)

// Request headers and cookies that identify the tenant or carry credentials.
const (
	HeaderUserID      = "X-User-Id"
	HeaderShopDomain  = "X-Shop-Domain"
	HeaderAccessToken = "X-Access-Token"

	CookieUserID = "userId"
	ParamUserID  = "userId"
)
