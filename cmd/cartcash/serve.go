package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/cartcash/auth"
	"github.com/jrsteele09/cartcash/credentials"
	"github.com/jrsteele09/cartcash/internal/config"
	"github.com/jrsteele09/cartcash/internal/metrics"
	"github.com/jrsteele09/cartcash/server"
	"github.com/jrsteele09/cartcash/shopify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var restart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			for {
				err := run()
				if err == nil || !restart {
					return err
				}
				log.Err(err).Msg("Server stopped with an error, restarting")
				time.Sleep(1 * time.Second)
			}
		},
	}
	cmd.Flags().BoolVar(&restart, "restart", true, "restart the server after a panic or startup error")
	return cmd
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	ctx := context.Background()
	m := metrics.New()
	creds := credentials.NewStore(credentials.WithLogger(log.Logger))
	clients := shopify.NewClientFactory(creds,
		shopify.WithHTTPClient(shopify.NewHTTPClient(c.GetProviderTimeout())),
		shopify.WithMetrics(m),
	)

	store, closeStore, err := openSessionStore(ctx, c, m)
	if err != nil {
		return err
	}
	defer closeStore()

	authService, err := auth.NewService(auth.Deps{
		Credentials: creds,
		Sessions:    store,
		Clients:     clients,
	}, auth.SettingsFromConfig(c), auth.WithMetrics(m), auth.WithLogger(log.Logger))
	if err != nil {
		return err
	}
	staticEnvLogin(ctx, c, authService)

	handler, err := server.New(c, server.Deps{Auth: authService, Clients: clients, Metrics: m})
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(httpServer) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// staticEnvLogin logs the anonymous tenant in from SHOPIFY_SHOP_NAME and
// SHOPIFY_ACCESS_TOKEN so a single-store deployment works without a login.
func staticEnvLogin(ctx context.Context, c config.Config, svc *auth.Service) {
	shop, token := c.GetStaticShopName(), c.GetStaticAccessToken()
	if shop == "" || token == "" {
		return
	}
	if _, err := svc.StaticLogin(ctx, "", shop, token); err != nil {
		log.Warn().Err(err).Str("shop", shop).Msg("Static Shopify credentials from the environment were rejected")
		return
	}
	log.Info().Str("shop", shop).Msg("Logged in with static Shopify credentials from the environment")
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
