package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raterudder/solarbridge/pkg/controller"
	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/metrics"
	"github.com/raterudder/solarbridge/pkg/monitoring"
	"github.com/raterudder/solarbridge/pkg/platform"
	"github.com/raterudder/solarbridge/pkg/types"
)

// tokenVerifier is a function that validates a Google ID Token and returns its
// claims.
type tokenVerifier func(ctx context.Context, rawIDToken string) (idClaims, error)

// Server runs reconciliation updates, either on request from a scheduler over
// HTTP or directly via Update.
type Server struct {
	fetcher    monitoring.Fetcher
	platform   platform.Platform
	directory  platform.Directory
	controller *controller.Controller

	mapping      types.DeviceMapping
	windowLength time.Duration
	dryRun       bool
	now          func() time.Time

	listenAddr string
	httpServer *http.Server

	updateEmail   string
	oidcVerifier  tokenVerifier
	bypassAuth    bool
	serverName    string
	metricsHandle http.Handler
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(f monitoring.Fetcher, p platform.Platform, d platform.Directory) *Server {
	srv := &Server{
		fetcher:    f,
		platform:   p,
		directory:  d,
		controller: controller.NewController(),
		now:        time.Now,
		serverName: "solarbridge",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	windowLength := lflag.Duration("window-length", types.DefaultWindowLength, "Length of the window each update reports on")
	mapping := types.DefaultDeviceMapping()
	lflag.JSON(&mapping, "device-mapping", mapping, "JSON assignment of device components to metric categories")
	dryRun := lflag.Bool("dry-run", false, "Log events instead of sending them to SmartThings")
	updateEmail := lflag.String("update-email", "", "Service account email allowed to call /api/update")
	oidcAudience := lflag.String("oidc-audience", "", "Audience to validate id tokens for /api/update against")
	bypassAuth := lflag.Bool("bypass-auth", false, "Disable authentication on /api/update (local use only)")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.windowLength = *windowLength
		srv.dryRun = *dryRun
		srv.updateEmail = *updateEmail
		srv.bypassAuth = *bypassAuth

		if err := mapping.Validate(); err != nil {
			log.Ctx(context.Background()).Error("invalid device mapping", slog.Any("error", err))
			os.Exit(1)
		}
		srv.mapping = mapping

		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			srv.oidcVerifier = oidcTokenVerifier(provider.Verifier(&oidc.Config{ClientID: *oidcAudience}))
		}
		if srv.oidcVerifier == nil && !srv.bypassAuth {
			log.Ctx(context.Background()).Warn("no oidc-audience configured, /api/update will reject all requests")
		}
	})

	metrics.Init(prometheus.DefaultRegisterer)
	srv.metricsHandle = promhttp.Handler()

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/update", s.handleUpdate)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.metricsHandle != nil {
		mux.Handle("/metrics", s.metricsHandle)
	}
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
