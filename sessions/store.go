// Package sessions persists authenticated session records and selects the
// current session of a tenant.
package sessions

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/cartcash/credentials"
	apperrors "github.com/jrsteele09/cartcash/internal/errors"
	"github.com/jrsteele09/cartcash/internal/metrics"
	"github.com/jrsteele09/cartcash/sessions/kvstorage"
	"github.com/jrsteele09/cartcash/shopify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const hydrateTimeout = 5 * time.Second

// Store is the session repository. It keeps every record in memory and writes
// the full snapshot to its medium after each mutation.
type Store struct {
	lock    sync.Mutex
	records map[string]*Record
	medium  Medium
	sealer  Sealer
	metrics *metrics.Metrics
	nowTime func() time.Time
	backend string
	logger  zerolog.Logger
}

var _ Repo = (*Store)(nil)

type StoreOption func(*Store)

// WithNowTime overrides the clock used for expiry and CreatedAt stamping.
func WithNowTime(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = now
	}
}

// WithSealer encrypts token fields in the persisted snapshot.
func WithSealer(sealer Sealer) StoreOption {
	return func(s *Store) {
		s.sealer = sealer
	}
}

func WithMetrics(m *metrics.Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithBackendName overrides the medium's name in metrics and logs.
func WithBackendName(name string) StoreOption {
	return func(s *Store) {
		s.backend = name
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore hydrates a store from medium. An unreadable or corrupt snapshot is
// logged and the store starts empty.
func NewStore(medium Medium, options ...StoreOption) *Store {
	s := &Store{
		records: make(map[string]*Record),
		medium:  medium,
		nowTime: time.Now,
		backend: medium.Name(),
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), hydrateTimeout)
	defer cancel()
	s.hydrate(ctx)
	return s
}

// NewFileStore is a store persisted to a JSON file.
func NewFileStore(path string, options ...StoreOption) *Store {
	return NewStore(NewFileMedium(path), options...)
}

// NewKVStore is a store persisted under key in a web-storage style backend.
func NewKVStore(storage kvstorage.Storage, key string, options ...StoreOption) *Store {
	return NewStore(NewKVMedium(storage, key), options...)
}

func (s *Store) hydrate(ctx context.Context) {
	data, err := s.medium.Load(ctx)
	if err != nil {
		s.metrics.StoreOp(s.backend, "load", metrics.OutcomeFailure)
		s.logger.Err(err).Str("backend", s.backend).Msg("Loading sessions failed, starting empty")
		return
	}
	records, err := decodeSnapshot(data)
	if err != nil {
		s.metrics.StoreOp(s.backend, "load", metrics.OutcomeFailure)
		s.logger.Err(err).Str("backend", s.backend).Msg("Session snapshot is corrupt, starting empty")
		s.quarantine(ctx)
		return
	}

	for _, r := range records {
		if r == nil || r.ID == "" {
			continue
		}
		if err := openRecord(s.sealer, r); err != nil {
			s.logger.Warn().Err(err).Str("id", r.ID).Msg("Dropping session that cannot be unsealed")
			continue
		}
		s.records[r.ID] = r
	}
	s.metrics.StoreOp(s.backend, "load", metrics.OutcomeSuccess)
	s.logger.Info().Str("backend", s.backend).Int("sessions", len(s.records)).Msg("Sessions loaded")
}

// quarantine sets an undecodable snapshot aside. If the medium cannot do that
// the snapshot is left in place and will be replaced by the next write.
func (s *Store) quarantine(ctx context.Context) {
	q, ok := s.medium.(quarantiner)
	if !ok {
		s.logger.Warn().Str("backend", s.backend).Msg("Corrupt session snapshot will be overwritten by the next write")
		return
	}
	dest, err := q.Quarantine(ctx, s.nowTime())
	if err != nil {
		s.logger.Err(err).Str("backend", s.backend).Msg("Setting aside corrupt session snapshot failed")
		return
	}
	s.logger.Warn().Str("backend", s.backend).Str("moved_to", dest).Msg("Corrupt session snapshot set aside")
}

// Store upserts a copy of record. On a persistence failure the in-memory
// state is kept and an error wrapping ErrPersistence is returned.
func (s *Store) Store(ctx context.Context, record *Record) error {
	if record == nil || strings.TrimSpace(record.ID) == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidSession, "[Store] session id is required")
	}
	if strings.TrimSpace(record.Shop) == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidSession, "[Store] session %q has no shop", record.ID)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	r := record.Clone()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.nowTime()
	}
	s.records[r.ID] = r
	s.logger.Info().Object("session", r).Str("backend", s.backend).Msg("Session stored")
	return s.persistLocked(ctx, "store")
}

func (s *Store) Load(ctx context.Context, id string) (*Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, errors.Wrapf(apperrors.ErrSessionNotFound, "[Load] %s", id)
	}
	if r.Expired(s.nowTime()) {
		s.expireLocked(ctx, r.ID)
		return nil, errors.Wrapf(apperrors.ErrSessionNotFound, "[Load] %s expired", id)
	}
	return r.Clone(), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.records[id]; !ok {
		return nil
	}
	delete(s.records, id)
	s.logger.Info().Str("id", id).Str("backend", s.backend).Msg("Session deleted")
	return s.persistLocked(ctx, "delete")
}

// DeleteByOwner removes all of the tenant's records, live or expired, with a
// single write to the medium.
func (s *Store) DeleteByOwner(ctx context.Context, tenantID string) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	removed := 0
	for id, r := range s.records {
		if r.OwnerTenantID == tenantID {
			delete(s.records, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	s.logger.Info().Str("tenant", tenantID).Int("sessions", removed).Str("backend", s.backend).Msg("Sessions deleted")
	return removed, s.persistLocked(ctx, "delete")
}

func (s *Store) FindByShop(ctx context.Context, shop string) ([]*Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	shop = shopify.NormalizeShopDomain(shop)
	now := s.nowTime()
	var found []*Record
	var expired []string
	for _, r := range s.records {
		if r.Shop != shop {
			continue
		}
		if r.Expired(now) {
			expired = append(expired, r.ID)
			continue
		}
		found = append(found, r.Clone())
	}
	s.expireLocked(ctx, expired...)
	sortNewestFirst(found)
	return found, nil
}

func (s *Store) CurrentSession(ctx context.Context, tenantID string) (*Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	winner, expired := selectCurrent(s.records, tenantID, s.nowTime())
	s.expireLocked(ctx, expired...)
	if winner == nil {
		return nil, errors.Wrapf(apperrors.ErrSessionNotFound, "[CurrentSession] tenant %q", tenantID)
	}
	return winner.Clone(), nil
}

func (s *Store) CurrentSessionWithConfig(ctx context.Context, tenantID string) (*Record, *credentials.TenantCredential, error) {
	r, err := s.CurrentSession(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return r, r.Config, nil
}

func (s *Store) List(_ context.Context) ([]*Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.nowTime()
	list := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		if !r.Expired(now) {
			list = append(list, r.Clone())
		}
	}
	sortNewestFirst(list)
	return list, nil
}

func (s *Store) Prune(ctx context.Context) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.nowTime()
	removed := 0
	for id, r := range s.records {
		if r.Expired(now) {
			delete(s.records, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.persistLocked(ctx, "prune")
}

// Backend names the medium the store persists to.
func (s *Store) Backend() string {
	return s.backend
}

// selectCurrent picks the tenant's current record: greatest CreatedAt, ties
// broken by the greatest ID. Expired records ranked above the winner are
// returned for deletion. The empty tenant only sees records without an owner.
func selectCurrent(records map[string]*Record, tenantID string, now time.Time) (*Record, []string) {
	var candidates []*Record
	for _, r := range records {
		if r.OwnerTenantID == tenantID {
			candidates = append(candidates, r)
		}
	}
	sortNewestFirst(candidates)

	var expired []string
	for _, r := range candidates {
		if r.Expired(now) {
			expired = append(expired, r.ID)
			continue
		}
		return r, expired
	}
	return nil, expired
}

func sortNewestFirst(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}

// expireLocked removes expired records found by a read. Persistence failures
// are logged; reads never fail on the medium.
func (s *Store) expireLocked(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		delete(s.records, id)
		s.metrics.StoreOp(s.backend, "expire", metrics.OutcomeExpired)
		s.logger.Info().Str("id", id).Msg("Expired session removed")
	}
	if err := s.persistLocked(ctx, "expire"); err != nil {
		s.logger.Err(err).Msg("Persisting expired session removal failed")
	}
}

func (s *Store) persistLocked(ctx context.Context, op string) error {
	records := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		sealed, err := sealRecord(s.sealer, r)
		if err != nil {
			s.metrics.StoreOp(s.backend, op, metrics.OutcomeFailure)
			return apperrors.Wrapf(apperrors.ErrPersistence, "[persist] seal %s: %v", r.ID, err)
		}
		records = append(records, sealed)
	}
	sortNewestFirst(records)

	data, err := encodeSnapshot(records)
	if err != nil {
		s.metrics.StoreOp(s.backend, op, metrics.OutcomeFailure)
		return apperrors.Wrapf(apperrors.ErrPersistence, "[persist] encode: %v", err)
	}
	if err := s.medium.Save(ctx, data); err != nil {
		s.metrics.StoreOp(s.backend, op, metrics.OutcomeFailure)
		return apperrors.Wrapf(apperrors.ErrPersistence, "[persist] %s: %v", s.backend, err)
	}
	s.metrics.StoreOp(s.backend, op, metrics.OutcomeSuccess)
	return nil
}
