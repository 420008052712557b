package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/lectic-ai/lectic/internal/config"
	"github.com/lectic-ai/lectic/internal/ingest"
	"github.com/lectic-ai/lectic/internal/rag"
)

// Options for creating a Gateway
type Options struct {
	SignalChan chan os.Signal // for testing signal handling
}

type Gateway struct {
	cfg        *config.Config
	system     *rag.System
	loader     *ingest.Loader
	server     *http.Server
	cron       *rcron.Cron
	signalChan chan os.Signal
}

// New creates a Gateway with default options
func New(cfg *config.Config, system *rag.System, loader *ingest.Loader) *Gateway {
	return NewWithOptions(cfg, system, loader, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, system *rag.System, loader *ingest.Loader, opts Options) *Gateway {
	g := &Gateway{
		cfg:        cfg,
		system:     system,
		loader:     loader,
		signalChan: opts.SignalChan,
	}
	g.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		Handler: g.Handler(),
	}
	return g
}

// Run starts the HTTP API and blocks until SIGINT/SIGTERM.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if dir := g.cfg.Ingest.DocsDir; dir != "" && g.loader != nil {
		courses, chunks, err := g.loader.AddCourseFolder(ctx, dir, false)
		if err != nil {
			log.Printf("[gateway] startup ingest warning: %v", err)
		} else if courses > 0 {
			log.Printf("[gateway] loaded %d new courses (%d chunks)", courses, chunks)
		}
	}

	if err := g.startRescan(ctx); err != nil {
		log.Printf("[gateway] rescan schedule warning: %v", err)
	}

	go func() {
		log.Printf("[gateway] listening on %s", g.server.Addr)
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[gateway] server error: %v", err)
		}
	}()

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

// startRescan schedules periodic re-ingestion of the docs folder so new
// course scripts are picked up without a restart.
func (g *Gateway) startRescan(ctx context.Context) error {
	expr := g.cfg.Ingest.RescanCron
	if expr == "" || g.cfg.Ingest.DocsDir == "" || g.loader == nil {
		return nil
	}

	g.cron = rcron.New()
	_, err := g.cron.AddFunc(expr, func() {
		courses, chunks, err := g.loader.AddCourseFolder(ctx, g.cfg.Ingest.DocsDir, false)
		if err != nil {
			log.Printf("[gateway] rescan error: %v", err)
			return
		}
		if courses > 0 {
			log.Printf("[gateway] rescan added %d courses (%d chunks)", courses, chunks)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule rescan %q: %w", expr, err)
	}
	g.cron.Start()
	log.Printf("[gateway] docs rescan scheduled: %s", expr)
	return nil
}

func (g *Gateway) Shutdown() error {
	if g.cron != nil {
		<-g.cron.Stop().Done()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
