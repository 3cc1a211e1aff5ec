// Package httpapi exposes the kitty ledger over HTTP: extrinsics as POST/PUT
// routes, queries as GETs, and committed events as a websocket stream.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/R3E-Network/kitty_ledger/internal/events"
	"github.com/R3E-Network/kitty_ledger/internal/kitties"
	"github.com/R3E-Network/kitty_ledger/internal/metrics"
	"github.com/R3E-Network/kitty_ledger/pkg/logger"
)

// Options configures a Server. Module and Feed are required.
type Options struct {
	Module    *kitties.Module
	Feed      *events.Feed
	Logger    *logger.Logger
	RateLimit float64
	Burst     int
	// CORSOrigins lists browser origins allowed to call the API and open
	// the event stream. "*" allows any.
	CORSOrigins []string
	// Health reports backend reachability for /health. Optional.
	Health func(ctx context.Context) error
}

// Server serves the ledger API.
type Server struct {
	module   *kitties.Module
	feed     *events.Feed
	log      *logger.Logger
	limiter  *RateLimiter
	cors     *CORS
	health   func(ctx context.Context) error
	upgrader websocket.Upgrader
}

// New creates a server from opts.
func New(opts Options) (*Server, error) {
	if opts.Module == nil {
		return nil, fmt.Errorf("kitties module required")
	}
	if opts.Feed == nil {
		return nil, fmt.Errorf("event feed required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	cors := NewCORS(opts.CORSOrigins)
	return &Server{
		module:  opts.Module,
		feed:    opts.Feed,
		log:     log,
		limiter: NewRateLimiter(opts.RateLimit, opts.Burst, log),
		cors:    cors,
		health:  opts.Health,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return cors.Allowed(r.Header.Get("Origin"))
			},
		},
	}, nil
}

// Limiter returns the server's rate limiter.
func (s *Server) Limiter() *RateLimiter { return s.limiter }

// Handler returns the routed, instrumented API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID(s.log), metrics.InstrumentHandler, s.limiter.Handler)

	r.HandleFunc("/kitties", s.handleCreateKitty).Methods(http.MethodPost)
	r.HandleFunc("/kitties/breed", s.handleBreedKitty).Methods(http.MethodPost)
	r.HandleFunc("/kitties/{id}", s.handleGetKitty).Methods(http.MethodGet)
	r.HandleFunc("/kitties/{id}/price", s.handleSetPrice).Methods(http.MethodPut)
	r.HandleFunc("/kitties/{id}/transfer", s.handleTransfer).Methods(http.MethodPost)
	r.HandleFunc("/kitties/{id}/buy", s.handleBuyKitty).Methods(http.MethodPost)

	r.HandleFunc("/accounts/{account}/kitties", s.handleAccountKitties).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{account}/balance", s.handleAccountBalance).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{account}/deposit", s.handleDeposit).Methods(http.MethodPost)

	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return s.cors.Handler(r)
}

// NewHTTPServer wraps the API in an http.Server with conservative timeouts.
// WriteTimeout stays zero so websocket streams are not cut off.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
