package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7420"
	DefaultDBFileName = ".pixvault.db"
	DefaultLogLevel   = "info"

	DefaultMaxUploadBytes     int64 = 100 * 1024 * 1024
	DefaultMultipartMaxMemory int64 = 8 * 1024 * 1024
	DefaultTokenTTL                 = 5 * time.Minute
	DefaultUploadTokenTTL           = 24 * time.Hour

	StorageBackendLocalCAS = "local_cas"
	StorageBackendS3       = "s3"

	configDirEnvKey          = "PIXVAULT_CONFIG_DIR"
	trustProjectConfigEnvKey = "PIXVAULT_TRUST_PROJECT_CONFIG"
	signingSecretEnvKey      = "PIXVAULT_SIGNING_SECRET"
	apiURLEnvKey             = "PIXVAULT_API_URL"
	dbPathEnvKey             = "PIXVAULT_DB"
	blobRootEnvKey           = "PIXVAULT_BLOB_ROOT"
	baseURLEnvKey            = "PIXVAULT_BASE_URL"
	maxUploadBytesEnvKey     = "PIXVAULT_MAX_UPLOAD_BYTES"
	defaultTokenTTLEnvKey    = "PIXVAULT_DEFAULT_TOKEN_TTL"
	uploadTokenTTLEnvKey     = "PIXVAULT_UPLOAD_TOKEN_TTL"
)

// TokenConfig defines token lifetimes. TTLs are duration strings ("5m", "24h").
type TokenConfig struct {
	DefaultTTL string `toml:"default_ttl"`
	UploadTTL  string `toml:"upload_ttl"`
}

// UploadConfig bounds inbound upload handling.
type UploadConfig struct {
	MaxUploadBytes     int64 `toml:"max_upload_bytes"`
	MultipartMaxMemory int64 `toml:"multipart_max_memory"`
}

// StorageConfig selects and parameterizes the blob backend.
type StorageConfig struct {
	Backend  string `toml:"backend"`
	S3Bucket string `toml:"s3_bucket"`
	S3Prefix string `toml:"s3_prefix"`
	S3Region string `toml:"s3_region"`
}

// Config defines runtime configuration for pixvault. The signing secret is
// deliberately absent: it is env-only and never written to disk.
type Config struct {
	APIURL                   string        `toml:"api_url"`
	DBPath                   string        `toml:"db_path"`
	BlobRoot                 string        `toml:"blob_root"`
	BaseURL                  string        `toml:"base_url"`
	LogLevel                 string        `toml:"log_level"`
	Tokens                   TokenConfig   `toml:"tokens"`
	Uploads                  UploadConfig  `toml:"uploads"`
	Storage                  StorageConfig `toml:"storage"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		BlobRoot: "",
		BaseURL:  "",
		LogLevel: "",
		Tokens: TokenConfig{
			DefaultTTL: DefaultTokenTTL.String(),
			UploadTTL:  DefaultUploadTokenTTL.String(),
		},
		Uploads: UploadConfig{
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMaxMemory,
		},
		Storage: StorageConfig{
			Backend: StorageBackendLocalCAS,
		},
	}
}

// SigningSecret returns the env-only token signing secret.
func SigningSecret() string {
	return strings.TrimSpace(os.Getenv(signingSecretEnvKey))
}

// DefaultTokenDuration parses the configured ad-hoc token TTL.
func (c *Config) DefaultTokenDuration() time.Duration {
	return parseDurationOr(c.Tokens.DefaultTTL, DefaultTokenTTL)
}

// UploadTokenDuration parses the configured upload-minted token TTL.
func (c *Config) UploadTokenDuration() time.Duration {
	return parseDurationOr(c.Tokens.UploadTTL, DefaultUploadTokenTTL)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, ".pixvault.toml"), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
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
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "blob_root":
		return c.BlobRoot, nil
	case "base_url":
		return c.BaseURL, nil
	case "log_level":
		return c.LogLevel, nil
	case "tokens.default_ttl":
		return c.Tokens.DefaultTTL, nil
	case "tokens.upload_ttl":
		return c.Tokens.UploadTTL, nil
	case "uploads.max_upload_bytes":
		return strconv.FormatInt(c.Uploads.MaxUploadBytes, 10), nil
	case "uploads.multipart_max_memory":
		return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10), nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.s3_bucket":
		return c.Storage.S3Bucket, nil
	case "storage.s3_prefix":
		return c.Storage.S3Prefix, nil
	case "storage.s3_region":
		return c.Storage.S3Region, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pixvault.toml"), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ".pixvault.toml"), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, ".pixvault.toml"), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, ".pixvault.toml")
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if blobRoot := os.Getenv(blobRootEnvKey); blobRoot != "" {
		cfg.BlobRoot = blobRoot
	}
	if baseURL := os.Getenv(baseURLEnvKey); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if raw := strings.TrimSpace(os.Getenv(maxUploadBytesEnvKey)); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			cfg.Uploads.MaxUploadBytes = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv(defaultTokenTTLEnvKey)); raw != "" {
		cfg.Tokens.DefaultTTL = raw
	}
	if raw := strings.TrimSpace(os.Getenv(uploadTokenTTLEnvKey)); raw != "" {
		cfg.Tokens.UploadTTL = raw
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "uploads.max_upload_bytes", "uploads.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "tokens.default_ttl", "tokens.upload_ttl":
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration", key)
		}
		return value, nil
	case "storage.backend":
		if value != StorageBackendLocalCAS && value != StorageBackendS3 {
			return nil, fmt.Errorf("storage.backend must be %s or %s", StorageBackendLocalCAS, StorageBackendS3)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if strings.TrimSpace(c.Storage.Backend) == "" {
		c.Storage.Backend = StorageBackendLocalCAS
	}
	if c.BlobRoot == "" && c.DBPath != "" {
		c.BlobRoot = filepath.Join(filepath.Dir(c.DBPath), ".pixvault", "blobs")
	}
}
