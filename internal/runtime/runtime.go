package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/control"
	"github.com/loqalabs/loqa-dictate/internal/protocol"
	"github.com/nats-io/nats.go"
)

const (
	lockTimeout   = 2 * time.Second
	pruneInterval = time.Hour
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	metricsSrv  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	addr        atomic.Value
	wg          sync.WaitGroup
	comp        *components
	packsMu     sync.Mutex
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Addr returns the HTTP listen address once the runtime is serving.
func (r *Runtime) Addr() string {
	addr, _ := r.addr.Load().(string)
	return addr
}

func (r *Runtime) Ready() bool {
	return r.ready.Load()
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	release, err := control.AcquireLock(r.cfg.Control.LockFile, lockTimeout)
	if err != nil {
		return err
	}
	defer release()

	shutdownTelemetry, metricHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	comp, err := r.setup(ctx)
	if err != nil {
		r.closeTelemetry()
		return err
	}
	r.comp = comp
	defer r.teardown(comp)

	r.startWorkers(ctx, comp)

	var sub *nats.Subscription
	if comp.bus != nil {
		sub, err = control.Subscribe(comp.bus.Conn(), comp.orch, r.logger)
		if err != nil {
			r.logger.Warn("control subscription failed", slog.String("error", err.Error()))
		}
	}
	stopSignals := func() {}
	if r.cfg.Control.Signals {
		stopSignals = control.HandleSignals(ctx, comp.orch, r.logger)
	}

	if err := r.serve(metricHandler); err != nil {
		cancel()
		stopSignals()
		r.wg.Wait()
		r.closeTelemetry()
		return err
	}

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", r.Addr()), slog.String("mode", string(comp.machine.Mode())))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	stopSignals()
	if sub != nil {
		_ = sub.Drain()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("metrics shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()
	r.closeTelemetry()
	return nil
}

func (r *Runtime) closeTelemetry() {
	if r.tracerClose == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.tracerClose(ctx); err != nil {
		r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
	}
}

func (r *Runtime) startWorkers(ctx context.Context, comp *components) {
	r.wg.Add(4)
	go func() {
		defer r.wg.Done()
		comp.models.Run(ctx)
	}()
	go func() {
		defer r.wg.Done()
		if err := comp.orch.Run(ctx); err != nil {
			r.logger.Error("pipeline stopped", slog.String("error", err.Error()))
		}
	}()
	go func() {
		defer r.wg.Done()
		r.forwardLifecycle(ctx, comp)
	}()
	go func() {
		defer r.wg.Done()
		r.pruneLoop(ctx, comp)
	}()

	if r.cfg.Model.LoadOnStart {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := comp.models.Load(ctx, r.cfg.Model.ID); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("initial model load failed", slog.String("model", r.cfg.Model.ID), slog.String("error", err.Error()))
			}
		}()
	}
}

// forwardLifecycle mirrors model events on the bus and drains finished
// sessions so their warnings reach the log.
func (r *Runtime) forwardLifecycle(ctx context.Context, comp *components) {
	events, unsubscribe := comp.models.Subscribe(16)
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if comp.bus == nil {
				continue
			}
			msg := protocol.ModelLifecycle{Kind: string(ev.Kind), ModelID: ev.ModelID, Error: ev.Err, Timestamp: ev.At.UTC()}
			if err := comp.bus.PublishJSON(protocol.SubjectModelLifecycle, msg); err != nil {
				r.logger.Warn("failed to publish model event", slog.String("error", err.Error()))
			}
		case out := <-comp.orch.Results():
			for _, w := range out.Warnings {
				r.logger.Warn("session degraded", slog.String("session_id", out.SessionID), slog.String("stage", string(w.Stage)), slog.String("error", w.Err.Error()))
			}
		}
	}
}

func (r *Runtime) pruneLoop(ctx context.Context, comp *components) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := comp.store.Prune(ctx); err != nil {
				r.logger.Warn("event store prune failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (r *Runtime) serve(metricHandler http.Handler) error {
	addr := net.JoinHostPort(r.cfg.HTTP.Bind, fmt.Sprint(r.cfg.HTTP.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	r.addr.Store(ln.Addr().String())
	r.httpServer = &http.Server{
		Handler:           r.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	if metricHandler == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricHandler)
	r.metricsSrv = &http.Server{
		Addr:              r.cfg.Telemetry.PrometheusBind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}
