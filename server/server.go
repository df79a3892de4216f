// Package server exposes the auth flows and the abandoned cart API over HTTP.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/cartcash/auth"
	"github.com/jrsteele09/cartcash/internal/config"
	"github.com/jrsteele09/cartcash/internal/metrics"
	"github.com/jrsteele09/cartcash/shopify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Deps are the services the routes call into.
type Deps struct {
	Auth    *auth.Service
	Clients *shopify.ClientFactory
	Metrics *metrics.Metrics
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.Service
	clients *shopify.ClientFactory
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, errors.New("[server.New] auth service is required")
	}
	if deps.Clients == nil {
		return nil, errors.New("[server.New] client factory is required")
	}

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		auth:    deps.Auth,
		clients: deps.Clients,
		metrics: deps.Metrics,
		logger:  log.Logger,
	}
	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			fmt.Println(routeLine(parts[0], parts[1]))
		} else {
			fmt.Println(routeLine("", parts[0]))
		}
	}
}

func routeLine(method, path string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	return fmt.Sprintf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}
