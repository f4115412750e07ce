package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != "http://127.0.0.1:7420" {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.Uploads.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("expected max upload default %d, got %d", DefaultMaxUploadBytes, cfg.Uploads.MaxUploadBytes)
	}
	if cfg.Uploads.MultipartMaxMemory != DefaultMultipartMaxMemory {
		t.Fatalf("expected multipart default %d, got %d", DefaultMultipartMaxMemory, cfg.Uploads.MultipartMaxMemory)
	}
	if cfg.Storage.Backend != StorageBackendLocalCAS {
		t.Fatalf("expected local_cas backend default, got %q", cfg.Storage.Backend)
	}
	if cfg.DefaultTokenDuration() != DefaultTokenTTL {
		t.Fatalf("expected default token ttl %s, got %s", DefaultTokenTTL, cfg.DefaultTokenDuration())
	}
	if cfg.UploadTokenDuration() != DefaultUploadTokenTTL {
		t.Fatalf("expected upload token ttl %s, got %s", DefaultUploadTokenTTL, cfg.UploadTokenDuration())
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".pixvault.toml")
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
base_url = "https://files.example.com"
log_level = "warn"

[tokens]
default_ttl = "90s"

[storage]
backend = "s3"
s3_bucket = "pix-blobs"
s3_region = "eu-central-1"
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url override, got %q", cfg.APIURL)
	}
	if cfg.BaseURL != "https://files.example.com" {
		t.Fatalf("expected base_url override, got %q", cfg.BaseURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.DefaultTokenDuration() != 90*time.Second {
		t.Fatalf("expected 90s token ttl, got %s", cfg.DefaultTokenDuration())
	}
	if cfg.Storage.Backend != StorageBackendS3 || cfg.Storage.S3Bucket != "pix-blobs" {
		t.Fatalf("expected s3 storage config, got %+v", cfg.Storage)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.pixvault.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatal("defaults should be preserved")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"api_url",
		"db_path",
		"blob_root",
		"base_url",
		"log_level",
		"tokens.default_ttl",
		"tokens.upload_ttl",
		"uploads.max_upload_bytes",
		"uploads.multipart_max_memory",
		"storage.backend",
		"storage.s3_bucket",
		"storage.s3_prefix",
		"storage.s3_region",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("signing_secret") {
		t.Fatal("signing secret must never be a config file key")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		APIURL:   "http://test:1234",
		DBPath:   "/tmp/test.db",
		BlobRoot: "/tmp/blobs",
		BaseURL:  "https://cdn.test",
		LogLevel: "warn",
		Tokens:   TokenConfig{DefaultTTL: "2m", UploadTTL: "48h"},
		Uploads:  UploadConfig{MaxUploadBytes: 123, MultipartMaxMemory: 456},
		Storage:  StorageConfig{Backend: "s3", S3Bucket: "b", S3Prefix: "p", S3Region: "r"},
	}

	cases := map[string]string{
		"api_url":                      "http://test:1234",
		"db_path":                      "/tmp/test.db",
		"blob_root":                    "/tmp/blobs",
		"base_url":                     "https://cdn.test",
		"log_level":                    "warn",
		"tokens.default_ttl":           "2m",
		"tokens.upload_ttl":            "48h",
		"uploads.max_upload_bytes":     "123",
		"uploads.multipart_max_memory": "456",
		"storage.backend":              "s3",
		"storage.s3_bucket":            "b",
		"storage.s3_prefix":            "p",
		"storage.s3_region":            "r",
	}
	for key, want := range cases {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Fatalf("get %s: expected %q, got %q (err: %v)", key, want, got, err)
		}
	}
	if _, err := cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")
	if err := SetKey(path, "base_url", "https://files.example.com"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://files.example.com" {
		t.Fatalf("expected base_url, got %q", cfg.BaseURL)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("base_url = \"http://old\"\napi_url = \"http://keep\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "base_url", "http://new"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://new" {
		t.Fatalf("expected 'http://new', got %q", cfg.BaseURL)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url 'http://keep', got %q", cfg.APIURL)
	}
}

func TestSetKeyInvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	if err := SetKey(path, "invalid_key", "value"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyValidatesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	if err := SetKey(path, "uploads.max_upload_bytes", "not-a-number"); err == nil {
		t.Fatal("expected error for non-numeric byte limit")
	}
	if err := SetKey(path, "tokens.default_ttl", "-5m"); err == nil {
		t.Fatal("expected error for negative duration")
	}
	if err := SetKey(path, "storage.backend", "floppy"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestSetNestedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.toml")
	if err := SetKey(path, "uploads.max_upload_bytes", "321"); err != nil {
		t.Fatalf("set nested key: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Uploads.MaxUploadBytes != 321 {
		t.Fatalf("expected max_upload_bytes 321, got %d", cfg.Uploads.MaxUploadBytes)
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PIXVAULT_CONFIG_DIR", dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, ".pixvault.toml") {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, ".pixvault.toml") {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	configDir := t.TempDir()
	cfgPath := filepath.Join(configDir, ".pixvault.toml")
	if err := os.WriteFile(cfgPath, []byte("api_url = \"http://127.0.0.1:9001\"\n"), 0644); err != nil {
		t.Fatalf("write override config: %v", err)
	}

	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, ".pixvault.toml"), []byte("api_url = \"http://127.0.0.1:9002\"\n"), 0644); err != nil {
		t.Fatalf("write workspace config: %v", err)
	}

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(workspace); err != nil {
		t.Fatalf("chdir workspace: %v", err)
	}

	t.Setenv("PIXVAULT_CONFIG_DIR", configDir)
	t.Setenv("PIXVAULT_DB", "")
	t.Setenv("PIXVAULT_API_URL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9001" {
		t.Fatalf("expected config-dir api_url override, got %q", cfg.APIURL)
	}
	if cfg.DBPath != filepath.Join(workspace, DefaultDBFileName) {
		t.Fatalf("expected default workspace db path, got %q", cfg.DBPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PIXVAULT_API_URL", "http://example.com:8080")
	t.Setenv("PIXVAULT_DB", "/tmp/override.db")
	t.Setenv("PIXVAULT_BLOB_ROOT", "/tmp/override-blobs")
	t.Setenv("PIXVAULT_BASE_URL", "https://public.example.com")
	t.Setenv("PIXVAULT_MAX_UPLOAD_BYTES", "2048")
	t.Setenv("PIXVAULT_DEFAULT_TOKEN_TTL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" {
		t.Fatalf("expected env override for API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("expected env override for DB path, got %q", cfg.DBPath)
	}
	if cfg.BlobRoot != "/tmp/override-blobs" {
		t.Fatalf("expected env override for blob root, got %q", cfg.BlobRoot)
	}
	if cfg.BaseURL != "https://public.example.com" {
		t.Fatalf("expected env override for base URL, got %q", cfg.BaseURL)
	}
	if cfg.Uploads.MaxUploadBytes != 2048 {
		t.Fatalf("expected env override for max upload bytes, got %d", cfg.Uploads.MaxUploadBytes)
	}
	if cfg.DefaultTokenDuration() != 30*time.Second {
		t.Fatalf("expected env override for token ttl, got %s", cfg.DefaultTokenDuration())
	}
}

func TestLoadIgnoresProjectConfigByDefault(t *testing.T) {
	homeDir := t.TempDir()
	workspace := t.TempDir()

	if err := os.WriteFile(filepath.Join(homeDir, ".pixvault.toml"), []byte("base_url = \"http://global\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, ".pixvault.toml"), []byte("base_url = \"http://project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(workspace); err != nil {
		t.Fatalf("chdir workspace: %v", err)
	}

	t.Setenv("HOME", homeDir)
	t.Setenv("PIXVAULT_TRUST_PROJECT_CONFIG", "")
	t.Setenv("PIXVAULT_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://global" {
		t.Fatalf("expected global config base_url, got %q", cfg.BaseURL)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project config path, got %q", cfg.TrustedProjectConfigPath)
	}
}

func TestLoadAppliesProjectConfigWhenTrusted(t *testing.T) {
	homeDir := t.TempDir()
	workspace := t.TempDir()

	if err := os.WriteFile(filepath.Join(homeDir, ".pixvault.toml"), []byte("base_url = \"http://global\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, ".pixvault.toml"), []byte("base_url = \"http://project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(workspace); err != nil {
		t.Fatalf("chdir workspace: %v", err)
	}

	t.Setenv("HOME", homeDir)
	t.Setenv("PIXVAULT_TRUST_PROJECT_CONFIG", "true")
	t.Setenv("PIXVAULT_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://project" {
		t.Fatalf("expected trusted project config base_url, got %q", cfg.BaseURL)
	}
	expectedPath := filepath.Join(workspace, ".pixvault.toml")
	if cfg.TrustedProjectConfigPath != expectedPath {
		t.Fatalf("expected trusted project config path %q, got %q", expectedPath, cfg.TrustedProjectConfigPath)
	}
}

func TestSigningSecretFromEnvOnly(t *testing.T) {
	t.Setenv("PIXVAULT_SIGNING_SECRET", "  hunter2  ")
	if got := SigningSecret(); got != "hunter2" {
		t.Fatalf("expected trimmed env secret, got %q", got)
	}
	t.Setenv("PIXVAULT_SIGNING_SECRET", "")
	if got := SigningSecret(); got != "" {
		t.Fatalf("expected empty secret, got %q", got)
	}
}
