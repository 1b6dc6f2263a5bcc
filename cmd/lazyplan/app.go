package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/blob"
	"github.com/Joseda-hg/lazyplan/internal/config"
	"github.com/Joseda-hg/lazyplan/internal/db"
	"github.com/Joseda-hg/lazyplan/internal/metrics"
	"github.com/Joseda-hg/lazyplan/internal/record"
	"github.com/Joseda-hg/lazyplan/internal/service"
	"github.com/Joseda-hg/lazyplan/internal/store"
	"github.com/Joseda-hg/lazyplan/internal/web"
)

type app struct {
	cfg     config.Config
	log     *slog.Logger
	svc     *service.Service
	metrics *metrics.Metrics
	closers []func() error
}

// loadConfig reads the config file, applies command line overrides and
// writes the result back.
func loadConfig(opts *options) (config.Config, string, error) {
	cfgPath := opts.configPath
	if cfgPath == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return config.Config{}, "", err
		}
		cfgPath = defaultPath
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, "", err
	}

	if opts.dataPath != "" {
		cfg.DataPath = opts.dataPath
	}
	if opts.backend != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(opts.backend))
	}
	if opts.web {
		cfg.WebEnabled = true
	}
	if opts.port != 0 {
		cfg.WebPort = opts.port
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", err
	}
	cfg.ResolveDataPath(cfgPath)

	if err := config.Save(cfgPath, cfg); err != nil {
		return config.Config{}, "", err
	}
	return cfg, cfgPath, nil
}

func logPath(cfgPath string) string {
	return filepath.Join(filepath.Dir(cfgPath), "lazyplan.log")
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// newApp opens the configured backend and loads its snapshot into a fresh
// store.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	backend, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	st := store.New(store.WithHistoryCapacity(cfg.HistoryCapacity), store.WithLogger(log))
	a.svc = service.New(st, backend, service.WithLogger(log), service.WithRecorder(a.metrics))
	if err := a.svc.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openBackend(ctx context.Context) (service.Backend, error) {
	switch a.cfg.Backend {
	case config.BackendFile:
		return record.File{Path: a.cfg.DataPath}, nil
	case config.BackendSQLite:
		if err := config.EnsureDir(a.cfg.DataPath); err != nil {
			return nil, err
		}
		return a.openDB(db.DriverSQLite, a.cfg.DataPath)
	case config.BackendPostgres:
		return a.openDB(db.DriverPostgres, a.cfg.DBDSN)
	case config.BackendS3:
		blobStore, err := blob.New(ctx, blob.Config{
			Bucket:          a.cfg.S3.Bucket,
			Key:             a.cfg.S3.Key,
			Region:          a.cfg.S3.Region,
			Endpoint:        a.cfg.S3.Endpoint,
			PathStyle:       a.cfg.S3.PathStyle,
			AccessKeyID:     a.cfg.S3.AccessKeyID,
			SecretAccessKey: a.cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return blobStore, nil
	case config.BackendMemory:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", a.cfg.Backend)
	}
}

func (a *app) openDB(driver, dsn string) (service.Backend, error) {
	sqlDB, err := db.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	a.closers = append(a.closers, sqlDB.Close)
	return db.NewStore(sqlDB, driver), nil
}

func (a *app) httpServer() *http.Server {
	handler := web.NewServer(a.svc, web.WithLogger(a.log), web.WithMetrics(a.metrics)).Handler()
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.WebPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func shutdown(a *app, server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.log.Error("web server shutdown", "err", err)
	}
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.log.Error("close backend", "err", err)
		}
	}
	a.closers = nil
}

// readRecordFile differs from record.File.Load in that a missing file is an
// error.
func readRecordFile(path string) (store.Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return store.Snapshot{}, err
	}
	defer file.Close()

	snap, err := record.Decode(file)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read %s: %w", path, err)
	}
	return snap, nil
}
