package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func testFlags() *pflag.FlagSet {
	def := Default()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("host", def.Host, "")
	flags.Int("port", def.Port, "")
	flags.String("http-addr", def.HTTPAddr, "")
	flags.Bool("color", def.Color, "")
	flags.Duration("write-timeout", def.WriteTimeout, "")
	return flags
}

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path %q, want %q", resolved, path)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if !strings.Contains(string(data), "port: 3000") || !strings.Contains(string(data), "write_timeout: 10s") {
		t.Fatalf("unexpected default config:\n%s", data)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	file := "port: 4000\nhttp_addr: \":9090\"\ncolor: false\nwrite_timeout: 2s\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ROOMRELAY_HTTP_ADDR", ":7070")
	t.Setenv("ROOMRELAY_PORT", "4500")

	flags := testFlags()
	if err := flags.Parse([]string{"--port", "5000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, _, err := Load(nil, path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 5000 {
		t.Errorf("flag should win: port = %d", cfg.Port)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Errorf("env should beat file: http_addr = %q", cfg.HTTPAddr)
	}
	if cfg.Color {
		t.Error("file should beat defaults: color still true")
	}
	if cfg.WriteTimeout != 2*time.Second {
		t.Errorf("write_timeout = %v", cfg.WriteTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
	// Unset flags keep file/default values rather than flag defaults.
	if cfg.Host != "0.0.0.0" {
		t.Errorf("host = %q", cfg.Host)
	}
	if cfg.Addr() != "0.0.0.0:5000" {
		t.Errorf("addr = %q", cfg.Addr())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("read_buffer_bytes: 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := Load(nil, path, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: [unterminated\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := Load(nil, path, nil); err == nil {
		t.Fatal("expected read error")
	}
}
