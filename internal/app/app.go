// Package app wires the cart engine's dependencies and runs it as a
// long-lived daemon with probe endpoints. It is the single wiring point.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/storeside/cartengine/internal/cart"
	"github.com/storeside/cartengine/internal/catalog"
	"github.com/storeside/cartengine/internal/engine"
	"github.com/storeside/cartengine/internal/remote"
	"github.com/storeside/cartengine/internal/snapshot"
	"github.com/storeside/cartengine/pkg/health"
)

// staticSession is a Session fixed at process start: the daemon serves one
// shopper, authenticated when a token was configured.
type staticSession struct {
	profileID string
	token     string
}

func (s *staticSession) Authenticated() bool        { return s.token != "" }
func (s *staticSession) ProfileID() string          { return s.profileID }
func (s *staticSession) OnCartOrCheckoutPage() bool { return false }
func (s *staticSession) Token() string              { return s.token }

// Run creates all dependencies, hydrates the cart, and serves probe
// endpoints until the context is cancelled. A final snapshot is persisted on
// shutdown.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	ctx = zctx.Base(ctx, lg)
	lg.Info("Initializing", zap.String("remote", cfg.RemoteBaseURL))

	adapter, err := remote.NewHTTPAdapter(cfg.RemoteBaseURL, cfg.RemoteTimeout)
	if err != nil {
		return errors.Wrap(err, "create remote adapter")
	}
	session := &staticSession{profileID: cfg.ProfileID, token: cfg.AuthToken}
	adapter.TokenSource = session.Token

	store, err := openSnapshotStore(cfg)
	if err != nil {
		return errors.Wrap(err, "open snapshot store")
	}
	defer store.Close()

	var prefilter *catalog.CouponPrefilter
	if cfg.Prefilter.Path != "" {
		prefilter, err = catalog.LoadCouponPrefilter(cfg.Prefilter.Path)
		if err != nil {
			return errors.Wrap(err, "load coupon prefilter")
		}
		lg.Info("Coupon prefilter loaded", zap.String("path", cfg.Prefilter.Path))
	}

	combine := cart.CombineYes
	if !cfg.CombineLineItems {
		combine = cart.CombineNo
	}

	notifier := engine.NewChannelNotifier(64)
	eng := engine.New(engine.Config{
		Combine:                 combine,
		Orders:                  remote.NewOrderClient(adapter),
		Catalog:                 remote.NewCatalogClient(adapter),
		Session:                 session,
		Snapshot:                store,
		Notifier:                notifier,
		Prefilter:               prefilter,
		SnapshotTTL:             cfg.Snapshot.TTL,
		DefaultPriceListGroupID: cfg.PriceListGroupID,
		Logger:                  lg.Named("engine"),
		Tracer:                  m.TracerProvider().Tracer("cartengine"),
	})

	// Drain outbound notifications into the log; the daemon has no UI.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-notifier.C():
				lg.Debug("cart notification", zap.String("kind", string(note.Kind)))
			}
		}
	}()

	if err := eng.Hydrate(ctx); err != nil {
		lg.Warn("Cart hydration failed, starting empty", zap.Error(err))
	}

	healthSvc := health.New()
	if sqlite, ok := store.(*snapshot.SQLiteStore); ok {
		healthSvc.AddReadinessCheck("snapshot-store", 5*time.Second, func(context.Context) error {
			return sqlite.Ping()
		})
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		Addr:              cfg.Addr,
		Handler:           mux,
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		eng.PersistSnapshot()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Probe server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Probe server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "probe server")
	}
	<-shutdownDone
	return nil
}

func openSnapshotStore(cfg *Config) (snapshot.Store, error) {
	if cfg.Snapshot.Path == "" {
		return snapshot.NewMemoryStore(), nil
	}
	return snapshot.OpenSQLiteStore(cfg.Snapshot.Path)
}
