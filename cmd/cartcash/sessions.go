package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/cartcash/internal/config"
	"github.com/jrsteele09/cartcash/internal/metrics"
	"github.com/jrsteele09/cartcash/sessions"
	"github.com/jrsteele09/cartcash/sessions/kvstorage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// openSessionStore builds the configured session store. The returned func
// releases any connection the medium holds.
func openSessionStore(ctx context.Context, c config.Config, m *metrics.Metrics) (*sessions.Store, func(), error) {
	options := []sessions.StoreOption{sessions.WithMetrics(m), sessions.WithLogger(log.Logger)}
	if key := c.GetSessionEncryptionKey(); key != "" {
		sealer, err := sessions.NewSecretboxSealer(key)
		if err != nil {
			return nil, nil, errors.Wrap(err, "session encryption key")
		}
		options = append(options, sessions.WithSealer(sealer))
	}

	if c.GetSessionBackend() != config.BackendKV {
		log.Info().Str("file", c.GetSessionFile()).Msg("Sessions persisted to file")
		return sessions.NewFileStore(c.GetSessionFile(), options...), func() {}, nil
	}

	if c.GetRedisURL() == "" {
		log.Warn().Msg("SESSION_BACKEND=kv without REDIS_URL, sessions are kept in memory only")
		return sessions.NewKVStore(kvstorage.NewMemory(), c.GetSessionKey(), options...), func() {}, nil
	}
	client, err := kvstorage.OpenRedis(ctx, c.GetRedisURL())
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("key", c.GetSessionKey()).Msg("Sessions persisted to redis")
	storage := kvstorage.NewRedis(client, c.GetAppName())
	return sessions.NewKVStore(storage, c.GetSessionKey(), options...), func() { _ = client.Close() }, nil
}

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and maintain persisted sessions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List persisted sessions, tokens hidden",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSessionStore(cmd.Context(), func(ctx context.Context, store *sessions.Store) error {
					records, err := store.List(ctx)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tSHOP\tUSER\tCREATED\tEXPIRES")
					for _, r := range records {
						expires := "never"
						if r.ExpiresAt != nil {
							expires = r.ExpiresAt.Format(time.RFC3339)
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Shop, r.OwnerTenantID, r.CreatedAt.Format(time.RFC3339), expires)
					}
					return tw.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Delete expired sessions",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSessionStore(cmd.Context(), func(ctx context.Context, store *sessions.Store) error {
					n, err := store.Prune(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("Removed %d expired session(s)\n", n)
					return nil
				})
			},
		},
	)
	return cmd
}

func withSessionStore(ctx context.Context, fn func(context.Context, *sessions.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeStore, err := openSessionStore(ctx, config.New(), nil)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(ctx, store)
}
