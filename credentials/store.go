package credentials

import (
	"sort"
	"sync"

	"github.com/jrsteele09/cartcash/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store is the process-wide map from tenant ID to its live credential. It is
// memory only: after a restart credentials are rebuilt from the config snapshot
// embedded in the tenant's session.
//
// Every stored credential gets a fresh revision number. Consumers that derive
// state from a credential (the Shopify client cache) compare revisions to detect
// that the record was replaced, regardless of whether its contents changed.
type Store struct {
	lock        sync.RWMutex
	credentials map[string]entry
	revision    uint64
	subscribers []func(tenantID string)
	logger      zerolog.Logger
}

type entry struct {
	credential TenantCredential
	revision   uint64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger overrides the global logger.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(options ...StoreOption) *Store {
	s := &Store{
		credentials: make(map[string]entry),
		logger:      log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Subscribe registers fn to be called after a tenant's credential is replaced or
// removed. Callbacks run outside the store lock.
func (s *Store) Subscribe(fn func(tenantID string)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Set replaces the tenant's credential wholesale.
func (s *Store) Set(tenantID string, credential TenantCredential) error {
	if err := credential.Validate(); err != nil {
		return errors.Wrapf(err, "[credentials.Set] tenant %q", tenantID)
	}
	credential = credential.withDefaults()
	credential.TenantID = tenantID

	s.lock.Lock()
	s.revision++
	s.credentials[tenantID] = entry{credential: credential, revision: s.revision}
	subscribers := s.subscribers
	s.lock.Unlock()

	s.logger.Info().Object("credential", credential).Msg("Shopify configuration updated")
	notify(subscribers, tenantID)
	return nil
}

// Get returns a copy of the tenant's credential.
func (s *Store) Get(tenantID string) (TenantCredential, bool) {
	credential, _, ok := s.Revision(tenantID)
	return credential, ok
}

// Revision returns the credential together with the identity it was stored under.
func (s *Store) Revision(tenantID string) (TenantCredential, uint64, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	e, ok := s.credentials[tenantID]
	if !ok {
		return TenantCredential{}, 0, false
	}
	return e.credential, e.revision, true
}

// Remove deletes the tenant's credential. Removing an absent tenant is a no-op.
func (s *Store) Remove(tenantID string) {
	s.lock.Lock()
	_, existed := s.credentials[tenantID]
	delete(s.credentials, tenantID)
	subscribers := s.subscribers
	s.lock.Unlock()

	if existed {
		s.logger.Info().Str("tenant", tenantID).Msg("Shopify configuration removed")
	}
	notify(subscribers, tenantID)
}

// RemoveTenants drops the credentials of every listed tenant.
func (s *Store) RemoveTenants(tenantIDs ...string) {
	for _, id := range tenantIDs {
		s.Remove(id)
	}
}

// Tenants lists the tenants with a live credential, sorted.
func (s *Store) Tenants() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	ids := make([]string, 0, len(s.credentials))
	for id := range s.credentials {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live credentials.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.credentials)
}

func notify(subscribers []func(string), tenantID string) {
	for _, fn := range subscribers {
		fn(tenantID)
	}
}
