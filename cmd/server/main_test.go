package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_flagsOverrideEnv(t *testing.T) {
	path := writeConfig(t, "database:\n  host: file-host\n  name: filedb\n")
	t.Setenv(config.EnvHost, "env-host")
	t.Setenv(config.EnvDriver, "")
	t.Setenv(config.EnvName, "")
	t.Setenv(config.EnvReadOnly, "")

	f := &rootFlags{}
	cmd := newRootCmd(f)
	if err := cmd.ParseFlags([]string{"--config", path, "--host", "flag-host", "--read-only"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Host != "flag-host" {
		t.Errorf("Host = %q, want flag value", cfg.Host)
	}
	if cfg.Name != "filedb" {
		t.Errorf("Name = %q, want file value", cfg.Name)
	}
	if !cfg.ReadOnly {
		t.Error("ReadOnly should be set by --read-only")
	}
}

func TestLoadConfig_driverFlagNormalized(t *testing.T) {
	t.Setenv(config.EnvDriver, "")
	f := &rootFlags{}
	cmd := newRootCmd(f)
	if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "{}\n"), "--driver", " MySQL "}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Driver != config.DriverMySQL {
		t.Errorf("Driver = %q, want %q", cfg.Driver, config.DriverMySQL)
	}
}

func TestLoadConfig_invalidDriver(t *testing.T) {
	t.Setenv(config.EnvDriver, "oracle")
	f := &rootFlags{}
	cmd := newRootCmd(f)
	if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "{}\n")}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(cmd, f); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRootCmd_subcommands(t *testing.T) {
	cmd := newRootCmd(&rootFlags{})
	for _, name := range []string{"stdio", "http"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not found: %v", name, err)
		}
	}
}
