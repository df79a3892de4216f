package auth

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// State is where a tenant is in the login flow.
type State string

const (
	StateAnonymous                State = "anonymous"
	StateAwaitingProviderRedirect State = "awaiting_provider_redirect"
	StateExchangingCode           State = "exchanging_code"
	StateValidatingToken          State = "validating_token"
	StateAuthenticated            State = "authenticated"
	StateLoggedOut                State = "logged_out"
)

// flowStates tracks each tenant's State. Entries for a pending OAuth redirect
// expire with the state token, dropping the tenant back to anonymous.
type flowStates struct {
	cache *gocache.Cache
}

func newFlowStates() *flowStates {
	return &flowStates{cache: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (f *flowStates) get(tenantID string) State {
	if v, ok := f.cache.Get(tenantID); ok {
		return v.(State)
	}
	return StateAnonymous
}

func (f *flowStates) set(tenantID string, state State, ttl time.Duration) {
	if state == StateAnonymous {
		f.cache.Delete(tenantID)
		return
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	f.cache.Set(tenantID, state, ttl)
}

// pendingFlow is what BeginOAuth remembers about a tenant's redirect so the
// callback can complete without the app credentials in its query.
type pendingFlow struct {
	shop      string
	appKey    string
	appSecret string
}
