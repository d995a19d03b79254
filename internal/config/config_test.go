package config

import (
	"log/slog"
	"testing"
	"time"
)

func lookupFromMap(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaultsDevProfile(t *testing.T) {
	cfg, err := Load("outletmesh-api", lookupFromMap(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("expected dev profile, got %s", cfg.Profile)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("unexpected http address: %s", cfg.HTTP.Address)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Fatalf("unexpected driver: %s", cfg.DB.Driver)
	}
	if cfg.Workflow.MaxGenerations != 10 {
		t.Fatalf("unexpected max generations: %d", cfg.Workflow.MaxGenerations)
	}
	if cfg.Workflow.SchemaSampleRows != 3 {
		t.Fatalf("unexpected sample rows: %d", cfg.Workflow.SchemaSampleRows)
	}
	if cfg.Auth.Required {
		t.Fatalf("auth should not be required in dev")
	}
	if cfg.Archive.Enabled {
		t.Fatalf("archive should be disabled by default")
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("outletmesh-api", lookupFromMap(map[string]string{
		"OUTLETMESH_PROFILE": "prod",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Auth.Required {
		t.Fatalf("auth should be required in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected log level: %v", cfg.Observability.LogLevel)
	}
	if !cfg.Archive.UseSSL {
		t.Fatalf("archive ssl should default on in prod")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := Load("outletmesh-api", lookupFromMap(map[string]string{
		"OUTLETMESH_HTTP_ADDR":                ":9090",
		"OUTLETMESH_DB_DRIVER":                "postgres",
		"OUTLETMESH_DB_DSN":                   "postgres://localhost/outlets",
		"OUTLETMESH_AI_MODEL":                 "test-model",
		"OUTLETMESH_AI_TEMPERATURE":           "0.5",
		"OUTLETMESH_AI_TIMEOUT":               "15s",
		"OUTLETMESH_WORKFLOW_MAX_GENERATIONS": "4",
		"OUTLETMESH_WORKFLOW_ROW_LIMIT":       "25",
		"OUTLETMESH_ARCHIVE_ENABLED":          "true",
		"OUTLETMESH_LOG_LEVEL":                "error",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Address != ":9090" {
		t.Fatalf("unexpected http address: %s", cfg.HTTP.Address)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "postgres://localhost/outlets" {
		t.Fatalf("unexpected db config: %+v", cfg.DB)
	}
	if cfg.AI.Model != "test-model" || cfg.AI.Temperature != 0.5 || cfg.AI.Timeout != 15*time.Second {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.Workflow.MaxGenerations != 4 || cfg.Workflow.RowLimit != 25 {
		t.Fatalf("unexpected workflow config: %+v", cfg.Workflow)
	}
	if !cfg.Archive.Enabled {
		t.Fatalf("archive should be enabled")
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("unexpected log level: %v", cfg.Observability.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"profile":         {"OUTLETMESH_PROFILE": "staging"},
		"driver":          {"OUTLETMESH_DB_DRIVER": "oracle"},
		"timeout":         {"OUTLETMESH_HTTP_READ_TIMEOUT": "soon"},
		"bool":            {"OUTLETMESH_ARCHIVE_ENABLED": "maybe"},
		"max generations": {"OUTLETMESH_WORKFLOW_MAX_GENERATIONS": "0"},
		"log level":       {"OUTLETMESH_LOG_LEVEL": "loud"},
	}
	for name, env := range cases {
		if _, err := Load("outletmesh-api", lookupFromMap(env)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
