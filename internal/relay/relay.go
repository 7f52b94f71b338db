// ABOUTME: Relay orchestrator that coordinates the poller, router, store, and health server
// ABOUTME: Manages component construction and graceful shutdown lifecycle

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/2389/coven-relay/internal/backend"
	"github.com/2389/coven-relay/internal/config"
	"github.com/2389/coven-relay/internal/dedupe"
	"github.com/2389/coven-relay/internal/poller"
	"github.com/2389/coven-relay/internal/router"
	"github.com/2389/coven-relay/internal/store"
	"github.com/2389/coven-relay/internal/telegram"
)

// dedupeTTL covers the window in which Telegram can redeliver an update
// after a drain or a recovery restart.
const dedupeTTL = 10 * time.Minute

// Relay wires the Telegram poller to the AI backend and runs the health
// endpoint. One Relay serves one bot token.
type Relay struct {
	config     *config.Config
	store      store.Store
	telegram   *telegram.Client
	dispatcher *backend.Dispatcher
	seen       *dedupe.Cache
	router     *router.Router
	httpServer *http.Server
	logger     *slog.Logger

	// pollerOpts uses production timing by default; tests shrink it.
	pollerOpts poller.Options
	poller     *poller.Poller
}

// initStore creates the store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("COVEN_RELAY_DB_PATH"); envPath != "" {
		dbPath = envPath
	}
	return store.NewSQLiteStore(dbPath)
}

// New constructs a relay from config. The returned relay owns the store and
// dedupe cache; Run closes them on the way out.
func New(cfg *config.Config, logger *slog.Logger) (*Relay, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	tg := telegram.NewClient(nil, cfg.Telegram.BaseURL, cfg.Telegram.Token)
	dispatcher := backend.New(backend.Options{
		Model:   cfg.Backend.Model,
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
		Harness: cfg.Backend.Harness,
		Timeout: cfg.Backend.Timeout,
	})
	seen := dedupe.New(dedupeTTL, 10000)

	r := &Relay{
		config:     cfg,
		store:      s,
		telegram:   tg,
		dispatcher: dispatcher,
		seen:       seen,
		router:     router.New(s, dispatcher, tg, seen),
		logger:     logger,
	}
	return r, nil
}

// Run starts the health server and the poll loop and blocks until ctx is
// cancelled or the poller fails. Conversation state does not survive a
// restart: the store is wiped before polling begins so every deployment
// starts from a clean slate.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clearing conversation state: %w", err)
	}

	r.poller = poller.New(r.telegram, r.router, r.pollerOpts)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", r.handleHealth)
	mux.HandleFunc("/health/live", r.handleLive)
	r.httpServer = &http.Server{
		Addr:              r.config.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		errCh <- r.poller.Run(ctx)
	}()

	r.logger.Info("relay started",
		"http_addr", r.config.Server.HTTPAddr,
		"model", r.dispatcher.Model(),
	)

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}

	shutdownErr := r.gracefulShutdown()
	if runErr != nil {
		return runErr
	}
	return shutdownErr
}

func (r *Relay) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var firstErr error
	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	r.seen.Close()
	if err := r.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	r.logger.Info("relay stopped")
	return firstErr
}

// handleHealth reports the poll session state. The endpoint goes unhealthy
// when the poller has given up, so a supervisor can restart the process.
func (r *Relay) handleHealth(w http.ResponseWriter, req *http.Request) {
	state := poller.StateInit
	if r.poller != nil {
		state = r.poller.State()
	}

	status := http.StatusOK
	healthy := true
	switch state {
	case poller.StateFailed, poller.StateTerminated:
		status = http.StatusServiceUnavailable
		healthy = false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"healthy": healthy,
		"poller":  state.String(),
	})
}

func (r *Relay) handleLive(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
