package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"attachr/internal/attachment"
	"attachr/internal/config"
	"attachr/internal/handler"
	"attachr/internal/metrics"
	"attachr/internal/repository/postgres"
	"attachr/internal/router"
	"attachr/internal/service"
	"attachr/internal/storage"
	"attachr/internal/storage/local"
	"attachr/internal/transform"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	configureLogging(cfg)

	db, err := postgres.NewDB(context.Background(), &cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize storage
	backend, err := storage.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Backend, err)
	}

	// Initialize metrics
	routerOpts := router.Options{}
	var observer metrics.Observer = metrics.Nop{}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		promObserver, err := metrics.NewPrometheusObserver("attachr", reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		observer = promObserver
		routerOpts.Gatherer = reg
	}

	// Load attachment definitions
	registry, err := attachment.LoadRegistry(cfg.Definitions.Path, attachment.DefaultsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to load attachment definitions: %w", err)
	}

	pipeline := transform.NewPipeline(transform.NewExecRunner(), cfg.Transform.TempDir, cfg.Transform.Timeout())

	// Initialize services
	attachmentRepo := postgres.NewAttachmentRepo(db)
	attachmentSvc := service.NewAttachmentService(
		attachmentRepo, registry, backend, pipeline, attachment.OptionsFromConfig(cfg, observer),
	)

	// Initialize handlers
	attachmentH := handler.NewAttachmentHandler(attachmentSvc)
	healthH := handler.NewHealthHandler(db)
	if fs, ok := backend.(*local.Storage); ok {
		routerOpts.FileH = handler.NewFileHandler(fs)
		routerOpts.PublicURL = publicPath(cfg.Storage.Local.PublicURL)
	}

	// Setup router
	r := router.Setup(cfg, attachmentH, healthH, routerOpts)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on %s (storage=%s, definitions=%v)", cfg.Server.Port, backend.Name(), registry.Names())
	return serveUntilSignal(srv)
}

func serveUntilSignal(srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func configureLogging(cfg *config.Config) {
	if cfg.Log.Level == "debug" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		gin.SetMode(gin.DebugMode)
		return
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
}

// publicPath returns the route prefix for a local public URL, which may be a
// bare path or an absolute URL.
func publicPath(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil || u.Path == "" {
		return "/files"
	}
	return "/" + strings.Trim(u.Path, "/")
}
