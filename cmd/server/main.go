package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rpggio/curator/internal/config"
	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/domain/notification"
	"github.com/rpggio/curator/internal/domain/sla"
	"github.com/rpggio/curator/internal/domain/suggest"
	"github.com/rpggio/curator/internal/mcp"
	"github.com/rpggio/curator/internal/metrics"
	"github.com/rpggio/curator/internal/publish"
	"github.com/rpggio/curator/internal/sqlite"
	"github.com/rpggio/curator/internal/transport"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(registry)
	}

	publisher, closePublisher, err := newPublisher(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	taxonomy := suggest.DefaultTaxonomy()
	if cfg.Suggest.TaxonomyPath != "" {
		taxonomy, err = suggest.LoadTaxonomy(cfg.Suggest.TaxonomyPath)
		if err != nil {
			return err
		}
	}
	engine := suggest.NewEngine(taxonomy, cfg.Suggest.MaxExtraKeywords)

	collectionRepo := sqlite.NewCollectionRepository(db)
	notificationRepo := sqlite.NewNotificationRepository(db)

	classifier := notification.NewClassifier(notification.ClassifierOptions{
		NearingDays:      cfg.SLA.NearingDays,
		CompletionWindow: cfg.SLA.CompletionWindow(),
	})
	notificationSvc := notification.NewService(notificationRepo, publisher, classifier, logger,
		notification.WithObserver(m))
	collectionSvc := collection.NewService(collectionRepo, notificationSvc, logger,
		collection.WithSuggester(engine),
		collection.WithObserver(m))
	sweeper := sla.NewSweeper(collectionRepo, notificationSvc, logger,
		sla.WithNearingDays(cfg.SLA.NearingDays),
		sla.WithObserver(m))

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Collections:   collectionSvc,
			Notifications: notificationSvc,
			Suggester:     engine,
			Sweeper:       sweeper,
		},
		Resolver:      mcp.TokenResolver(cfg.Auth.Tokens),
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		Logger:        logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Run(ctx, cfg.SLA.SweepInterval)
	})

	// Branch based on transport mode
	if cfg.Transport.Mode == "stdio" {
		g.Go(func() error {
			return runStdioMode(ctx, logger, mcpServer)
		})
	} else {
		var metricsHandler http.Handler
		if cfg.Metrics.Enabled {
			metricsHandler = metrics.Handler(registry)
		}
		var auth func(http.Handler) http.Handler
		if cfg.Auth.Enabled {
			auth = transport.AuthMiddleware(mcp.TokenResolver(cfg.Auth.Tokens))
		}
		router := transport.NewServer(transport.Options{
			MCP:         mcp.NewHTTPHandler(mcpServer, logger),
			Auth:        auth,
			Metrics:     metricsHandler,
			MetricsPath: cfg.Metrics.Path,
			Observer:    m,
			Logger:      logger,
		})
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		g.Go(func() error {
			return runHTTPMode(ctx, logger, router, addr)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errStdioClosed) {
		return err
	}
	return nil
}

func newPublisher(cfg config.RedisConfig, logger *slog.Logger) (notification.Publisher, func(), error) {
	if !cfg.Enabled {
		return publish.NewLogPublisher(logger), func() {}, nil
	}
	p, err := publish.NewRedisPublisher(cfg.Addr, cfg.Password, cfg.DB, cfg.Channel, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("publishing notifications to redis", "addr", cfg.Addr, "channel", cfg.Channel)
	return p, func() {
		if err := p.Close(); err != nil {
			logger.Warn("closing redis publisher", "error", err)
		}
	}, nil
}

// runStdioMode serves until stdin closes or ctx is cancelled. Closing stdin
// ends the process, so it cancels the sweeper as well.
func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return errStdioClosed
}

var errStdioClosed = errors.New("stdio closed")

func runHTTPMode(ctx context.Context, logger *slog.Logger, handler http.Handler, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a log file and trims it back to its most recent
// keepLogSizeBytes once it grows past maxLogSizeBytes.
type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	n, err := w.file.ReadAt(buf, size-keepLogSizeBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
