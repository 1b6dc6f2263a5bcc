package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Joseda-hg/lazyplan/internal/config"
	"github.com/Joseda-hg/lazyplan/internal/service"
)

func TestLoadConfigAppliesOverrides(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	opts := &options{configPath: cfgPath, backend: "SQLite", port: 9191, web: true}

	cfg, path, err := loadConfig(opts)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if path != cfgPath {
		t.Fatalf("unexpected config path %s", path)
	}
	if cfg.Backend != config.BackendSQLite || cfg.WebPort != 9191 || !cfg.WebEnabled {
		t.Fatalf("expected overrides, got %+v", cfg)
	}
	if cfg.DataPath != filepath.Join(filepath.Dir(cfgPath), "lazyplan.db") {
		t.Fatalf("unexpected data path %s", cfg.DataPath)
	}

	saved, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if saved.Backend != config.BackendSQLite || saved.WebPort != 9191 {
		t.Fatalf("expected overrides to be saved, got %+v", saved)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	opts := &options{configPath: filepath.Join(t.TempDir(), "config.json"), backend: "tape"}
	if _, _, err := loadConfig(opts); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestAppPersistsThroughFileBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataPath = filepath.Join(dir, "plan.csv")

	a, err := newApp(context.Background(), cfg, newLogger("ERROR", &bytes.Buffer{}))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if _, err := a.svc.CreatePlain(context.Background(), service.ItemInput{Title: "saved"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	a.Close()

	reopened, err := newApp(context.Background(), cfg, newLogger("ERROR", &bytes.Buffer{}))
	if err != nil {
		t.Fatalf("reopen app: %v", err)
	}
	defer reopened.Close()
	items := reopened.svc.ListPlain(context.Background())
	if len(items) != 1 || items[0].Title != "saved" {
		t.Fatalf("expected saved item, got %+v", items)
	}
}

func TestAppSQLiteBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendSQLite
	cfg.DataPath = filepath.Join(t.TempDir(), "nested", "plan.db")

	a, err := newApp(context.Background(), cfg, newLogger("ERROR", &bytes.Buffer{}))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if len(a.closers) != 1 {
		t.Fatalf("expected db closer, got %d", len(a.closers))
	}
	if _, err := a.svc.CreateGroup(context.Background(), service.ItemInput{Title: "g"}); err != nil {
		t.Fatalf("create group: %v", err)
	}
	a.Close()
	if _, err := os.Stat(cfg.DataPath); err != nil {
		t.Fatalf("expected db file: %v", err)
	}
}

func TestExportImportCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	source := filepath.Join(dir, "source.csv")
	content := "1,PLAIN,write docs,NEW,,30,2025-03-01T09:00:00\n" +
		"\n" +
		"1\n"
	if err := os.WriteFile(source, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"import", source, "--config", cfgPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out.String(), "imported 1 items") {
		t.Fatalf("unexpected import output %q", out.String())
	}

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"export", "--config", cfgPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out.String(), "1,PLAIN,write docs,NEW,,30,2025-03-01T09:00:00") {
		t.Fatalf("unexpected export %q", out.String())
	}

	root = newRootCmd()
	root.SetArgs([]string{"import", filepath.Join(dir, "missing.csv"), "--config", cfgPath})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error for missing import file")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("WARN", &buf)
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}
