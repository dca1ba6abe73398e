package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mailstash/mailstash/internal/config"
)

func TestDefaultHomeRespectsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MAILSTASH_HOME", dir)

	if got := config.DefaultHome(); got != dir {
		t.Errorf("DefaultHome() = %q, want %q", got, dir)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MAILSTASH_HOME", home)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HomeDir != home {
		t.Errorf("home dir = %q, want %q", cfg.HomeDir, home)
	}
	if want := filepath.Join(home, "emails"); cfg.Data.CacheDir != want {
		t.Errorf("cache dir = %q, want %q", cfg.Data.CacheDir, want)
	}
	if want := filepath.Join(home, "emails.db"); cfg.Data.DatabasePath != want {
		t.Errorf("database path = %q, want %q", cfg.Data.DatabasePath, want)
	}
	if cfg.Sync.RateLimitQPS != 5 {
		t.Errorf("rate limit = %v, want 5", cfg.Sync.RateLimitQPS)
	}
	if cfg.Server.APIPort != 8080 {
		t.Errorf("api port = %d, want 8080", cfg.Server.APIPort)
	}
	if cfg.Accounts == nil || len(cfg.Accounts) != 0 {
		t.Errorf("accounts = %v, want empty", cfg.Accounts)
	}
}

func TestLoadFromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MAILSTASH_HOME", home)

	content := `
[data]
cache_dir = "/var/cache/mail"
database_path = "/var/lib/mail.db"

[oauth]
client_id = "cid"
client_secret = "csecret"
refresh_token = "rtok"

[sync]
rate_limit_qps = 2.5
default_query = "label:archive-me"
max_results = 1000

[server]
api_port = 9090
api_key = "k"

[[accounts]]
email = "me@example.com"
query = "is:unread"
schedule = "0 2 * * *"
enabled = true
`
	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Data.CacheDir != "/var/cache/mail" || cfg.Data.DatabasePath != "/var/lib/mail.db" {
		t.Errorf("data = %+v", cfg.Data)
	}
	if cfg.OAuth.ClientID != "cid" || cfg.OAuth.RefreshToken != "rtok" {
		t.Errorf("oauth = %+v", cfg.OAuth)
	}
	if cfg.Sync.RateLimitQPS != 2.5 || cfg.Sync.DefaultQuery != "label:archive-me" || cfg.Sync.MaxResults != 1000 {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if cfg.Server.APIPort != 9090 || cfg.Server.APIKey != "k" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if len(cfg.Accounts) != 1 || cfg.Accounts[0].Email != "me@example.com" || !cfg.Accounts[0].Enabled {
		t.Errorf("accounts = %+v", cfg.Accounts)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MAILSTASH_HOME", home)

	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte("[server]\napi_port = 3000\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.APIPort != 3000 {
		t.Errorf("api port = %d, want 3000", cfg.Server.APIPort)
	}
	if cfg.Sync.RateLimitQPS != 5 {
		t.Errorf("rate limit = %v, want default 5", cfg.Sync.RateLimitQPS)
	}
	if want := filepath.Join(home, "emails"); cfg.Data.CacheDir != want {
		t.Errorf("cache dir = %q, want default %q", cfg.Data.CacheDir, want)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MAILSTASH_HOME", home)

	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := config.Load(path); err == nil {
		t.Error("expected decode error")
	}
}

func TestEnsureHomeDir(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested", "mailstash")
	t.Setenv("MAILSTASH_HOME", home)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.EnsureHomeDir(); err != nil {
		t.Fatalf("ensure home dir: %v", err)
	}

	info, err := os.Stat(home)
	if err != nil || !info.IsDir() {
		t.Errorf("home dir not created: %v", err)
	}
	if want := filepath.Join(home, "config.toml"); cfg.ConfigFilePath() != want {
		t.Errorf("config path = %q, want %q", cfg.ConfigFilePath(), want)
	}
}
