package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Selector.TopK != 2 || cfg.Selector.MinScore != 0.18 {
		t.Fatalf("unexpected selector defaults: %+v", cfg.Selector)
	}
	if cfg.Control.Mode != "toggle" {
		t.Fatalf("expected toggle mode, got %q", cfg.Control.Mode)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOQA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("LOQA_BUS_USERNAME", "alice")
	t.Setenv("LOQA_BUS_PASSWORD", "secret")
	t.Setenv("LOQA_BUS_TLS_INSECURE", "true")
	t.Setenv("LOQA_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("LOQA_EVENT_STORE_PATH", "./tmp.db")
	t.Setenv("LOQA_EVENT_STORE_RETENTION_MODE", "persistent")
	t.Setenv("LOQA_EVENT_STORE_RETENTION_DAYS", "7")
	t.Setenv("LOQA_SELECTOR_TOP_K", "3")
	t.Setenv("LOQA_SELECTOR_HYSTERESIS", "0.1")
	t.Setenv("LOQA_JARGON_ENABLED_PROFILES", "coding, devops")
	t.Setenv("LOQA_JARGON_CUSTOM_CORRECTIONS", "cube control=kubectl, bogus, =x")
	t.Setenv("LOQA_MODEL_UNLOAD_AFTER_USE", "true")
	t.Setenv("LOQA_CONTROL_MODE", "push_to_talk")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.EventStore.Path != "./tmp.db" || cfg.EventStore.RetentionMode != "persistent" || cfg.EventStore.RetentionDays != 7 {
		t.Fatalf("expected event store overrides, got %+v", cfg.EventStore)
	}
	if cfg.Selector.TopK != 3 || cfg.Selector.Hysteresis != 0.1 {
		t.Fatalf("expected selector overrides, got %+v", cfg.Selector)
	}
	if len(cfg.Jargon.EnabledProfiles) != 2 || cfg.Jargon.EnabledProfiles[1] != "devops" {
		t.Fatalf("expected enabled profiles override, got %v", cfg.Jargon.EnabledProfiles)
	}
	if len(cfg.Jargon.CustomCorrections) != 1 || cfg.Jargon.CustomCorrections[0].To != "kubectl" {
		t.Fatalf("expected one custom correction, got %+v", cfg.Jargon.CustomCorrections)
	}
	if !cfg.Model.UnloadAfterUse {
		t.Fatal("expected unload after use override")
	}
	if cfg.Control.Mode != "push_to_talk" {
		t.Fatalf("expected control mode override, got %q", cfg.Control.Mode)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loqa.yaml")
	data := []byte(`
runtime_name: dictate-test
audio:
  source: wav
  file: ./fixtures/hello.wav
post_process:
  enabled: true
  mode: openai
  model: gpt-4o-mini
jargon:
  custom_terms: [Kubernetes, gRPC]
  custom_corrections:
    - from: cube control
      to: kubectl
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RuntimeName != "dictate-test" || cfg.Audio.Source != "wav" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.PostProcess.Mode != "openai" || !cfg.PostProcess.Enabled {
		t.Fatalf("expected openai post-processing, got %+v", cfg.PostProcess)
	}
	if len(cfg.Jargon.CustomTerms) != 2 || cfg.Jargon.CustomCorrections[0].From != "cube control" {
		t.Fatalf("unexpected jargon config: %+v", cfg.Jargon)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"exec stt without command", func(c *Config) { c.STT.Mode = "exec" }},
		{"unknown scorer", func(c *Config) { c.Selector.Scorer = "magic" }},
		{"max below min segment", func(c *Config) { c.VAD.MaxSegmentMS = 100; c.VAD.MinSegmentMS = 200 }},
		{"command delivery without command", func(c *Config) { c.Delivery.Mode = "command" }},
		{"bad control mode", func(c *Config) { c.Control.Mode = "hold" }},
		{"unknown trace exporter", func(c *Config) { c.Telemetry.TraceExporter = "zipkin" }},
		{"wav source without file", func(c *Config) { c.Audio.Source = "wav" }},
		{"empty custom correction", func(c *Config) {
			c.Jargon.CustomCorrections = []CorrectionConfig{{From: "x", To: " "}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
