package sessions

import (
	"context"

	"github.com/jrsteele09/cartcash/credentials"
)

// Repo defines the session record operations used by the auth service, the
// routes and the CLI.
type Repo interface {
	// Store upserts the record by ID
	Store(ctx context.Context, record *Record) error

	// Load returns the record, or ErrSessionNotFound when it is absent or expired
	Load(ctx context.Context, id string) (*Record, error)

	// Delete removes a record. Deleting an absent id succeeds.
	Delete(ctx context.Context, id string) error

	// FindByShop returns every live record for the shop
	FindByShop(ctx context.Context, shop string) ([]*Record, error)

	// DeleteByOwner removes every record owned by the tenant and returns how
	// many were removed
	DeleteByOwner(ctx context.Context, tenantID string) (int, error)

	// CurrentSession returns the tenant's most recent live record
	CurrentSession(ctx context.Context, tenantID string) (*Record, error)

	// CurrentSessionWithConfig also returns the embedded credential snapshot,
	// which is nil for records stored without one
	CurrentSessionWithConfig(ctx context.Context, tenantID string) (*Record, *credentials.TenantCredential, error)

	// List returns all live records, newest first
	List(ctx context.Context) ([]*Record, error)

	// Prune removes every expired record and returns how many were removed
	Prune(ctx context.Context) (int, error)
}
