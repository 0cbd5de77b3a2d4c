// ABOUTME: Gateway assembly tying config, stores, authority, and routes together
// ABOUTME: Serves the auth endpoints and proxies everything else downstream

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/orizon-ai/orizon-gateway/internal/auth"
	"github.com/orizon-ai/orizon-gateway/internal/authority"
	"github.com/orizon-ai/orizon-gateway/internal/config"
	"github.com/orizon-ai/orizon-gateway/internal/store"
)

// Gateway is the assembled auth gateway: the /api/auth endpoints plus a
// reverse proxy to the credential authority wrapped in the auth dispatcher.
type Gateway struct {
	config     *config.Config
	kv         store.KV
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Gateway from configuration, dialing Redis and wiring every
// component with the injected logger.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	kv, err := store.NewRedisKV(ctx, store.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		return nil, err
	}

	gw, err := assemble(cfg, kv, nil, logger)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return gw, nil
}

// assemble builds the gateway on top of an existing KV (and optional mailer
// override), so tests can run against MemoryKV.
func assemble(cfg *config.Config, kv store.KV, mailer auth.Mailer, logger *slog.Logger) (*Gateway, error) {
	client := authority.NewClient(cfg.Authority.BaseURL, cfg.Authority.MasterKey, cfg.Authority.Timeout, logger)
	provisioner := authority.NewProvisioner(client, logger)

	tokens := auth.NewTokens(kv, cfg.Auth.MagicLinkTTL, logger)
	sessions := auth.NewSessions(kv, cfg.Auth.SessionTTL, auth.CookieSettings{
		Name:   cfg.Auth.CookieName,
		Path:   cfg.Auth.CookiePath,
		Secure: cfg.Auth.SecureCookies,
	}, logger)

	if mailer == nil {
		mailer = auth.NewLogMailer(logger)
	}

	// Magic links point at this gateway; fall back to the listen address
	// when no external URL is configured.
	baseURL := cfg.Auth.BaseURL
	if baseURL == "" {
		baseURL = "http://" + cfg.Server.HTTPAddr
	}

	handlers := auth.NewHandlers(tokens, sessions, provisioner, mailer, baseURL, logger)

	proxy, err := newAuthorityProxy(cfg.Authority.BaseURL, logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	handlers.Register(mux)

	// Everything that is not an auth endpoint, health checks included, goes
	// through the dispatcher to the authority.
	dispatch := auth.Middleware(sessions, provisioner, logger)
	mux.Handle("/", dispatch(proxy))

	gw := &Gateway{
		config: cfg,
		kv:     kv,
		logger: logger.With("component", "gateway"),
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	return gw, nil
}

// newAuthorityProxy builds the reverse proxy forwarding requests to the
// credential authority. Responses pass back unmodified.
func newAuthorityProxy(baseURL string, logger *slog.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing authority base URL: %w", err)
	}

	proxyLogger := logger.With("component", "proxy")
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			proxyLogger.Error("forwarding to authority failed",
				"path", r.URL.Path,
				"error", err,
			)
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"upstream unavailable"}`))
		},
	}, nil
}

// Handler exposes the assembled HTTP handler (used by tests).
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Run serves until the context is canceled, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("http server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
	case serverErr = <-errCh:
	}

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server and closes the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := g.kv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
