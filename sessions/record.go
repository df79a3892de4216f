package sessions

import (
	"encoding/json"
	"time"

	"github.com/jrsteele09/cartcash/credentials"
	"github.com/jrsteele09/cartcash/internal/utils"
	"github.com/rs/zerolog"
)

// Record is a persisted proof that a tenant authenticated against a shop. It
// embeds a snapshot of the credential that was live at the time so the
// credential can be rebuilt after a restart.
type Record struct {
	ID            string                        `json:"id"`
	Shop          string                        `json:"shop"`
	AccessToken   string                        `json:"accessToken"`
	Scope         Scopes                        `json:"scope"`
	ExpiresAt     *time.Time                    `json:"expires"`
	IsOnline      bool                          `json:"isOnline"`
	CreatedAt     time.Time                     `json:"createdAt"`
	OwnerTenantID string                        `json:"userId,omitempty"`
	Config        *credentials.TenantCredential `json:"shopifyConfig,omitempty"`
}

// Expired reports whether the record has an expiry that lies before now. A
// record without an expiry never expires.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Scope = append(Scopes(nil), r.Scope...)
	c.ExpiresAt = utils.CopyTime(r.ExpiresAt)
	if r.Config != nil {
		cfg := *r.Config
		c.Config = &cfg
	}
	return &c
}

func (r *Record) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", r.ID).
		Str("shop", r.Shop).
		Str("owner", r.OwnerTenantID).
		Bool("hasConfig", r.Config != nil)
}

// Scopes is the granted permission list. Older snapshots stored it as a single
// space or comma separated string, which is still accepted.
type Scopes []string

func (s *Scopes) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*s = utils.SplitScopes(joined)
	return nil
}
