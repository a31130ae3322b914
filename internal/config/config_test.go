package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	for _, key := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "PORT", "STORAGE_DRIVER", "GIN_MODE"} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MySQL.Host != "localhost" {
		t.Errorf("MySQL.Host = %q, want localhost", cfg.MySQL.Host)
	}
	if cfg.MySQL.User != "root" {
		t.Errorf("MySQL.User = %q, want root", cfg.MySQL.User)
	}
	if cfg.MySQL.Password != "" {
		t.Errorf("MySQL.Password = %q, want empty", cfg.MySQL.Password)
	}
	if cfg.MySQL.DB != "form_app_db" {
		t.Errorf("MySQL.DB = %q, want form_app_db", cfg.MySQL.DB)
	}
	if cfg.App.Port != 5000 {
		t.Errorf("App.Port = %d, want 5000", cfg.App.Port)
	}
	if cfg.MySQL.MaxOpenConns != 10 {
		t.Errorf("MySQL.MaxOpenConns = %d, want 10", cfg.MySQL.MaxOpenConns)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
port = 7000

[mysql]
host = "db.internal"
db = "from_file"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_NAME", "from_env")
	unsetEnv(t, "DB_HOST")
	unsetEnv(t, "PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Port != 7000 {
		t.Errorf("App.Port = %d, want 7000", cfg.App.Port)
	}
	if cfg.MySQL.Host != "db.internal" {
		t.Errorf("MySQL.Host = %q, want db.internal", cfg.MySQL.Host)
	}
	if cfg.MySQL.DB != "from_env" {
		t.Errorf("MySQL.DB = %q, want from_env", cfg.MySQL.DB)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("STORAGE_DRIVER", "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.Password = "secret"

	dsn := cfg.MySQLDSN()
	if !strings.HasPrefix(dsn, "root:secret@tcp(localhost:3306)/form_app_db?") {
		t.Errorf("MySQLDSN() = %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("MySQLDSN() = %q, want parseTime=true", dsn)
	}

	server := cfg.MySQLServerDSN()
	if !strings.HasPrefix(server, "root:secret@tcp(localhost:3306)/?") {
		t.Errorf("MySQLServerDSN() = %q", server)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		set   bool
		want  int
	}{
		{name: "unset", want: 42},
		{name: "empty", value: "", set: true, want: 42},
		{name: "valid", value: "8080", set: true, want: 8080},
		{name: "invalid", value: "abc", set: true, want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, "FORM_TEST_INT")
			if tt.set {
				t.Setenv("FORM_TEST_INT", tt.value)
			}
			if got := getEnvAsInt("FORM_TEST_INT", 42); got != tt.want {
				t.Errorf("getEnvAsInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	prev, ok := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if ok {
			_ = os.Setenv(key, prev)
		}
	})
}
