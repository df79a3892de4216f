package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/cartcash/auth"
	"github.com/jrsteele09/cartcash/credentials"
	"github.com/jrsteele09/cartcash/internal/config"
	"github.com/jrsteele09/cartcash/internal/metrics"
	"github.com/jrsteele09/cartcash/server"
	"github.com/jrsteele09/cartcash/sessions"
	"github.com/jrsteele09/cartcash/sessions/kvstorage"
	"github.com/jrsteele09/cartcash/shopify"
	"github.com/stretchr/testify/require"
)

const (
	testShop      = "mystore.myshopify.com"
	testToken     = "shpat_abc"
	testAppKey    = "app-key"
	testAppSecret = "app-secret"
	testCode      = "auth-code"
	testAppURL    = "http://localhost:3000"
)

// newFakeShopify serves shop.json, the OAuth token endpoint and the
// abandoned checkouts list for every shop.
func newFakeShopify(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/api/{version}/shop.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(shopify.AccessTokenHeader) != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"shop":{"id":1,"name":"My Store"}}`))
	})
	mux.HandleFunc("POST /admin/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != testCode {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + testToken + `","scope":"read_orders"}`))
	})
	mux.HandleFunc("GET /admin/api/{version}/checkouts.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(shopify.AccessTokenHeader) != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"checkouts":[
			{"id":1,"token":"c1","created_at":"2024-01-05T10:00:00Z","total_price":"10.00"},
			{"id":2,"token":"c2","created_at":"2024-02-10T10:00:00Z","total_price":"20.00"},
			{"id":3,"token":"c3","created_at":"2024-03-15T10:00:00Z","total_price":"30.00"}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testFixture struct {
	shopify *httptest.Server
	server  *server.Server
	service *auth.Service
}

type fixtureOption func(*auth.Settings)

func withAppCredentials(s *auth.Settings) {
	s.AppKey = testAppKey
	s.AppSecret = testAppSecret
}

func setupTestFixture(t *testing.T, opts ...fixtureOption) *testFixture {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("NEXT_PUBLIC_APP_URL", testAppURL)
	t.Setenv("ALLOWED_ORIGINS", "https://dashboard.example.com")

	f := &testFixture{shopify: newFakeShopify(t)}
	creds := credentials.NewStore()
	clients := shopify.NewClientFactory(creds,
		shopify.WithOrigin(func(string) string { return f.shopify.URL }),
		shopify.WithHTTPClient(f.shopify.Client()),
	)

	settings := auth.Settings{AppURL: testAppURL, APIVersion: "2024-04"}
	for _, opt := range opts {
		opt(&settings)
	}

	var err error
	f.service, err = auth.NewService(auth.Deps{
		Credentials: creds,
		Sessions:    sessions.NewKVStore(kvstorage.NewMemory(), ""),
		Clients:     clients,
	}, settings)
	require.NoError(t, err)

	f.server, err = server.New(config.New(), server.Deps{Auth: f.service, Clients: clients})
	require.NoError(t, err)
	return f
}

func (f *testFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) staticLogin(t *testing.T, tenantID string) {
	t.Helper()
	body := `{"shop":"` + testShop + `","accessToken":"` + testToken + `","userId":"` + tenantID + `"}`
	rec := f.do(t, httptest.NewRequest(http.MethodPost, server.RouteStaticLogin, strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func withTenant(req *http.Request, tenantID string) *http.Request {
	req.Header.Set(server.HeaderUserID, tenantID)
	return req
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := server.New(config.New(), server.Deps{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteHealth, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode(t, rec)["status"])
}

func TestMetrics_DisabledIsNotFound(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteMetrics, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Enabled(t *testing.T) {
	f := setupTestFixture(t)
	m := metrics.New()
	s, err := server.New(config.New(), server.Deps{Auth: f.service, Clients: shopify.NewClientFactory(credentials.NewStore()), Metrics: m})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteMetrics, nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckOAuth(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := setupTestFixture(t)
		rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteCheckOAuth, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, false, decode(t, rec)["oauthConfigured"])
	})
	t.Run("configured", func(t *testing.T) {
		f := setupTestFixture(t, withAppCredentials)
		rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteCheckOAuth, nil))
		require.Equal(t, true, decode(t, rec)["oauthConfigured"])
	})
}

func TestStaticLogin(t *testing.T) {
	f := setupTestFixture(t)
	body := `{"shop":"mystore","accessToken":"` + testToken + `","userId":"t1"}`
	rec := f.do(t, httptest.NewRequest(http.MethodPost, server.RouteStaticLogin, strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode(t, rec)
	require.Equal(t, true, resp["success"])
	require.Equal(t, testShop, resp["shop"])
	require.True(t, strings.HasPrefix(resp["sessionId"].(string), "static-mystore-"))
	require.NotContains(t, resp, "warning")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, server.CookieUserID, cookies[0].Name)
	require.Equal(t, "t1", cookies[0].Value)
}

func TestStaticLogin_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing shop", `{"accessToken":"x","userId":"t1"}`, http.StatusBadRequest},
		{"missing token", `{"shop":"mystore","userId":"t1"}`, http.StatusBadRequest},
		{"malformed body", `{"shop":`, http.StatusBadRequest},
		{"invalid domain", `{"shop":"bad_shop!","accessToken":"x"}`, http.StatusBadRequest},
		{"rejected token", `{"shop":"mystore","accessToken":"wrong","userId":"t1"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			rec := f.do(t, httptest.NewRequest(http.MethodPost, server.RouteStaticLogin, strings.NewReader(tt.body)))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			require.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestCheck(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, withTenant(httptest.NewRequest(http.MethodGet, server.RouteCheck, nil), "t1"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "No valid session found", decode(t, rec)["error"])

	f.staticLogin(t, "t1")
	rec = f.do(t, withTenant(httptest.NewRequest(http.MethodGet, server.RouteCheck, nil), "t1"))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	require.Equal(t, true, resp["success"])
	require.Equal(t, testShop, resp["shop"])
	require.Equal(t, true, resp["hasConfig"])

	// Another tenant does not see t1's session.
	rec = f.do(t, withTenant(httptest.NewRequest(http.MethodGet, server.RouteCheck, nil), "t2"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheck_TenantFromCookieAndQuery(t *testing.T) {
	f := setupTestFixture(t)
	f.staticLogin(t, "t1")

	req := httptest.NewRequest(http.MethodGet, server.RouteCheck, nil)
	req.AddCookie(&http.Cookie{Name: server.CookieUserID, Value: "t1"})
	require.Equal(t, http.StatusOK, f.do(t, req).Code)

	req = httptest.NewRequest(http.MethodGet, server.RouteCheck+"?userId=t1", nil)
	require.Equal(t, http.StatusOK, f.do(t, req).Code)
}

func TestCheck_HeaderCredentials(t *testing.T) {
	f := setupTestFixture(t)

	req := withTenant(httptest.NewRequest(http.MethodGet, server.RouteCheck, nil), "t1")
	req.Header.Set(server.HeaderShopDomain, testShop)
	req.Header.Set(server.HeaderAccessToken, testToken)
	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, testShop, decode(t, rec)["shop"])

	req = withTenant(httptest.NewRequest(http.MethodGet, server.RouteCheck, nil), "t3")
	req.Header.Set(server.HeaderShopDomain, testShop)
	req.Header.Set(server.HeaderAccessToken, "wrong")
	require.Equal(t, http.StatusUnauthorized, f.do(t, req).Code)
}

func TestVerifySession(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodPost, server.RouteAuth, strings.NewReader(`{"userId":"t1"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodPost, server.RouteAuth, strings.NewReader(`{"shop":"`+testShop+`","userId":"t1"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	f.staticLogin(t, "t1")
	rec = f.do(t, httptest.NewRequest(http.MethodPost, server.RouteAuth, strings.NewReader(`{"shop":"`+testShop+`","userId":"t1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	require.Equal(t, true, resp["success"])
	require.Equal(t, "t1", resp["userId"])

	// Without a user id only ownerless sessions count.
	rec = f.do(t, httptest.NewRequest(http.MethodPost, server.RouteAuth, strings.NewReader(`{"shop":"`+testShop+`"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifySession_MalformedBody(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodPost, server.RouteAuth, strings.NewReader(`{"shop":`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Request body must be valid JSON", decode(t, rec)["error"])
}

func TestBeginOAuth(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := setupTestFixture(t)
		rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteAuth+"?shop="+testShop+"&userId=t1", nil))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, true, decode(t, rec)["setupRequired"])
	})
	t.Run("invalid shop", func(t *testing.T) {
		f := setupTestFixture(t, withAppCredentials)
		rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteAuth+"?shop=&userId=t1", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("missing tenant", func(t *testing.T) {
		f := setupTestFixture(t, withAppCredentials)
		rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteAuth+"?shop="+testShop, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("redirects to shopify", func(t *testing.T) {
		f := setupTestFixture(t, withAppCredentials)
		rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteAuth+"?shop="+testShop+"&userId=t1", nil))
		require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/admin/oauth/authorize", location.Path)
		require.Equal(t, testAppKey, location.Query().Get("client_id"))
		require.NotEmpty(t, location.Query().Get("state"))
	})
}

func TestOAuthCallback(t *testing.T) {
	f := setupTestFixture(t, withAppCredentials)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteAuth+"?shop="+testShop+"&userId=t1", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")

	t.Run("missing tenant", func(t *testing.T) {
		q := url.Values{"shop": {testShop}, "code": {testCode}, "state": {state}}
		rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteCallback+"?"+q.Encode(), nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("tampered state", func(t *testing.T) {
		q := url.Values{"shop": {testShop}, "userId": {"t1"}, "code": {testCode}, "state": {state + "x"}}
		rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteCallback+"?"+q.Encode(), nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("state for another tenant", func(t *testing.T) {
		q := url.Values{"shop": {testShop}, "userId": {"t2"}, "code": {testCode}, "state": {state}}
		rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteCallback+"?"+q.Encode(), nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("success", func(t *testing.T) {
		q := url.Values{
			"shop":      {testShop},
			"userId":    {"t1"},
			"appKey":    {testAppKey},
			"appSecret": {testAppSecret},
			"code":      {testCode},
			"state":     {state},
		}
		rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteCallback+"?"+q.Encode(), nil))
		require.Equal(t, http.StatusTemporaryRedirect, rec.Code, rec.Body.String())
		require.Equal(t, testAppURL+"/?shop="+testShop+"&userId=t1", rec.Header().Get("Location"))

		check := f.do(t, withTenant(httptest.NewRequest(http.MethodGet, server.RouteCheck, nil), "t1"))
		require.Equal(t, http.StatusOK, check.Code)
		require.True(t, strings.HasPrefix(decode(t, check)["sessionId"].(string), "session_t1_"))
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.staticLogin(t, "t1")
	f.staticLogin(t, "t2")

	rec := f.do(t, httptest.NewRequest(http.MethodPost, server.RouteLogout, strings.NewReader(`{"userId":"t1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode(t, rec)["success"])
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)

	require.Equal(t, http.StatusUnauthorized, f.do(t, withTenant(httptest.NewRequest(http.MethodGet, server.RouteCheck, nil), "t1")).Code)
	require.Equal(t, http.StatusOK, f.do(t, withTenant(httptest.NewRequest(http.MethodGet, server.RouteCheck, nil), "t2")).Code)

	// Logging out with nothing to remove still succeeds.
	rec = f.do(t, withTenant(httptest.NewRequest(http.MethodPost, server.RouteLogout, nil), "nobody"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAbandonedCarts(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, withTenant(httptest.NewRequest(http.MethodGet, server.RouteAbandonedCarts, nil), "t1"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	f.staticLogin(t, "t1")

	tests := []struct {
		name       string
		query      string
		tokens     []string
		total      float64
		totalPages float64
	}{
		{"default page", "", []string{"c1", "c2", "c3"}, 3, 1},
		{"paginated", "?page=2&limit=2", []string{"c3"}, 3, 2},
		{"past the end", "?page=5&limit=2", []string{}, 3, 2},
		{"date range", "?startDate=2024-02-01&endDate=2024-02-10", []string{"c2"}, 1, 1},
		{"start only", "?startDate=2024-03-01T00:00:00Z", []string{"c3"}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, withTenant(httptest.NewRequest(http.MethodGet, server.RouteAbandonedCarts+tt.query, nil), "t1"))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp struct {
				Checkouts  []shopify.CartRecord `json:"checkouts"`
				Pagination struct {
					Total      float64 `json:"total"`
					TotalPages float64 `json:"totalPages"`
				} `json:"pagination"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

			tokens := make([]string, 0, len(resp.Checkouts))
			for _, c := range resp.Checkouts {
				tokens = append(tokens, c.Token)
			}
			require.Equal(t, tt.tokens, tokens)
			require.Equal(t, tt.total, resp.Pagination.Total)
			require.Equal(t, tt.totalPages, resp.Pagination.TotalPages)
		})
	}
}

func TestAbandonedCarts_HeaderCredentials(t *testing.T) {
	f := setupTestFixture(t)

	req := withTenant(httptest.NewRequest(http.MethodGet, server.RouteAbandonedCarts, nil), "t9")
	req.Header.Set(server.HeaderShopDomain, testShop)
	req.Header.Set(server.HeaderAccessToken, testToken)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestCors(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteCheck, nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := f.do(t, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://dashboard.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, server.RouteCheck, nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = f.do(t, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
