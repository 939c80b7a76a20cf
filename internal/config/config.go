package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete KBMCP configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Backend  BackendConfig  `yaml:"backend" json:"backend"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Indexing IndexingConfig `yaml:"indexing" json:"indexing"`

	// Credentials is the query-scope credential pair used for retrieval
	// and reranking. IndexingCredentials is the separate indexing-scope
	// pair used for job submission. The two scopes never share a token
	// cache and must never be collapsed into one pair.
	Credentials         CredentialsConfig `yaml:"credentials" json:"credentials"`
	IndexingCredentials CredentialsConfig `yaml:"indexing_credentials" json:"indexing_credentials"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// BackendConfig configures the managed knowledge-base service endpoints.
type BackendConfig struct {
	// QueryURL is the base URL of the retrieval API (query scope).
	QueryURL string `yaml:"query_url" json:"query_url"`
	// IndexingURL is the base URL of the indexing control API (indexing scope).
	IndexingURL string `yaml:"indexing_url" json:"indexing_url"`
	// IAMURL is the base URL of the token exchange service.
	IAMURL string `yaml:"iam_url" json:"iam_url"`
	// KnowledgeBaseID identifies the knowledge base instance.
	KnowledgeBaseID string `yaml:"knowledge_base_id" json:"knowledge_base_id"`
	// ProjectID is the cloud project owning the knowledge base, sent
	// with indexing job submissions.
	ProjectID string `yaml:"project_id" json:"project_id"`
	// RequestTimeout bounds individual backend calls (e.g. "30s").
	RequestTimeout string `yaml:"request_timeout" json:"request_timeout"`
}

// Timeout returns RequestTimeout as a duration, falling back to 30s
// when unset or unparsable.
func (b BackendConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(b.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// CredentialsConfig holds one service credential pair.
// Secrets are normally supplied via environment variables
// (KBMCP_QUERY_KEY_ID/_SECRET, KBMCP_INDEXING_KEY_ID/_SECRET)
// rather than the config file.
type CredentialsConfig struct {
	KeyID  string `yaml:"key_id" json:"key_id"`
	Secret string `yaml:"secret" json:"secret"`
}

// IsSet reports whether both halves of the credential pair are present.
func (c CredentialsConfig) IsSet() bool {
	return c.KeyID != "" && c.Secret != ""
}

// StorageConfig configures the object store holding documents and the
// version catalog.
type StorageConfig struct {
	// Provider selects the store implementation: "minio", "s3" or "memory".
	Provider string `yaml:"provider" json:"provider"`
	// Endpoint is the S3-compatible endpoint (host:port or URL).
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Region is the bucket region (s3 provider).
	Region string `yaml:"region" json:"region"`
	// Bucket is the bucket holding documents and version metadata.
	Bucket          string `yaml:"bucket" json:"bucket"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	// UseSSL enables TLS for the minio provider.
	UseSSL bool `yaml:"use_ssl" json:"use_ssl"`
	// PathStyle forces path-style addressing, required by most
	// S3-compatible services.
	PathStyle bool `yaml:"path_style" json:"path_style"`
	// CatalogPrefix is the key prefix under which index version metadata
	// objects live.
	CatalogPrefix string `yaml:"catalog_prefix" json:"catalog_prefix"`
	// DocumentsPrefix is the key prefix for knowledge base documents.
	DocumentsPrefix string `yaml:"documents_prefix" json:"documents_prefix"`
}

// SearchConfig configures query routing defaults and limits.
type SearchConfig struct {
	// DefaultTopK is used when a search request does not specify top_k.
	DefaultTopK int `yaml:"default_top_k" json:"default_top_k"`
	// MaxTopK caps top_k and rerank_top_k for all search requests.
	MaxTopK int `yaml:"max_top_k" json:"max_top_k"`
	// RerankTopK is the default candidate window for two-stage search.
	RerankTopK int `yaml:"rerank_top_k" json:"rerank_top_k"`
	// RetrievalType selects the backend retrieval mode:
	// "HYBRID", "SEMANTIC" or "KEYWORD".
	RetrievalType string `yaml:"retrieval_type" json:"retrieval_type"`
	// RerankEnabled toggles the reranking stage of search_advanced.
	RerankEnabled bool `yaml:"rerank_enabled" json:"rerank_enabled"`
	// RerankModel is the reranking model requested from the backend.
	RerankModel string `yaml:"rerank_model" json:"rerank_model"`
	// VersionID pins the active index version at startup. Empty means
	// the server derives the latest READY version instead.
	VersionID string `yaml:"version_id" json:"version_id"`
	// CacheSize is the number of search results cached per process.
	// Zero disables caching.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// IndexingConfig configures indexing job submission and CLI polling.
type IndexingConfig struct {
	// Extensions are the file extensions uploaded by docs sync and
	// announced to the indexing pipeline.
	Extensions []string `yaml:"extensions" json:"extensions"`
	// PollInterval is the catalog poll interval for `kbmcp index --wait`.
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
	// PollTimeout bounds how long `kbmcp index --wait` polls.
	PollTimeout string `yaml:"poll_timeout" json:"poll_timeout"`
}

// PollIntervalDuration returns PollInterval as a duration, falling back
// to 5s when unset or unparsable.
func (i IndexingConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(i.PollInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// PollTimeoutDuration returns PollTimeout as a duration, falling back
// to 30m when unset or unparsable.
func (i IndexingConfig) PollTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(i.PollTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "debug", // Debug by default to aid troubleshooting
		},
		Backend: BackendConfig{
			RequestTimeout: "30s",
		},
		Storage: StorageConfig{
			Provider:        "minio",
			UseSSL:          true,
			PathStyle:       true, // S3-compatible services mostly require it
			CatalogPrefix:   "versions/",
			DocumentsPrefix: "documents/",
		},
		Search: SearchConfig{
			DefaultTopK:   5,
			MaxTopK:       50,
			RerankTopK:    20,
			RetrievalType: "HYBRID",
			RerankEnabled: true,
			RerankModel:   "BAAI/bge-reranker-v2-m3",
			CacheSize:     256,
		},
		Indexing: IndexingConfig{
			Extensions:   []string{".txt", ".md", ".pdf"},
			PollInterval: "5s",
			PollTimeout:  "30m",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/kbmcp/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/kbmcp/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kbmcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback - should rarely happen
		return filepath.Join(os.TempDir(), ".config", "kbmcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "kbmcp", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	// Check if file exists
	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	// Load the config
	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/kbmcp/config.yaml)
//  3. Project config (.kbmcp.yaml in the working directory)
//  4. Environment variables (KBMCP_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	// Step 1: Load user/global config (if exists)
	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	// Step 2: Load project config (overrides user config)
	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	// Step 3: Apply environment variable overrides (highest precedence)
	cfg.applyEnvOverrides()

	// Step 4: Validate the final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile loads configuration from an explicit file path, then applies
// environment overrides and validates. Used by the --config flag.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromFile attempts to load configuration from .kbmcp.yaml or .kbmcp.yml.
func (c *Config) loadFromFile(dir string) error {
	// Try .yaml first (takes precedence)
	yamlPath := filepath.Join(dir, ".kbmcp.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	// Try .yml as fallback
	ymlPath := filepath.Join(dir, ".kbmcp.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Use a temporary struct for parsing to detect type errors
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Merge parsed values with defaults (only non-zero values)
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	// Backend
	if other.Backend.QueryURL != "" {
		c.Backend.QueryURL = other.Backend.QueryURL
	}
	if other.Backend.IndexingURL != "" {
		c.Backend.IndexingURL = other.Backend.IndexingURL
	}
	if other.Backend.IAMURL != "" {
		c.Backend.IAMURL = other.Backend.IAMURL
	}
	if other.Backend.KnowledgeBaseID != "" {
		c.Backend.KnowledgeBaseID = other.Backend.KnowledgeBaseID
	}
	if other.Backend.ProjectID != "" {
		c.Backend.ProjectID = other.Backend.ProjectID
	}
	if other.Backend.RequestTimeout != "" {
		c.Backend.RequestTimeout = other.Backend.RequestTimeout
	}

	// Credentials (per-scope, never cross-merged)
	if other.Credentials.KeyID != "" {
		c.Credentials.KeyID = other.Credentials.KeyID
	}
	if other.Credentials.Secret != "" {
		c.Credentials.Secret = other.Credentials.Secret
	}
	if other.IndexingCredentials.KeyID != "" {
		c.IndexingCredentials.KeyID = other.IndexingCredentials.KeyID
	}
	if other.IndexingCredentials.Secret != "" {
		c.IndexingCredentials.Secret = other.IndexingCredentials.Secret
	}

	// Storage
	if other.Storage.Provider != "" {
		c.Storage.Provider = other.Storage.Provider
	}
	if other.Storage.Endpoint != "" {
		c.Storage.Endpoint = other.Storage.Endpoint
	}
	if other.Storage.Region != "" {
		c.Storage.Region = other.Storage.Region
	}
	if other.Storage.Bucket != "" {
		c.Storage.Bucket = other.Storage.Bucket
	}
	if other.Storage.AccessKeyID != "" {
		c.Storage.AccessKeyID = other.Storage.AccessKeyID
	}
	if other.Storage.SecretAccessKey != "" {
		c.Storage.SecretAccessKey = other.Storage.SecretAccessKey
	}
	// UseSSL and PathStyle are booleans whose zero value is meaningful,
	// so they only move when some other storage field marks the section
	// as present.
	if other.Storage.Provider != "" || other.Storage.Endpoint != "" || other.Storage.Bucket != "" {
		c.Storage.UseSSL = other.Storage.UseSSL
		c.Storage.PathStyle = other.Storage.PathStyle
	}
	if other.Storage.CatalogPrefix != "" {
		c.Storage.CatalogPrefix = other.Storage.CatalogPrefix
	}
	if other.Storage.DocumentsPrefix != "" {
		c.Storage.DocumentsPrefix = other.Storage.DocumentsPrefix
	}

	// Search
	if other.Search.DefaultTopK != 0 {
		c.Search.DefaultTopK = other.Search.DefaultTopK
	}
	if other.Search.MaxTopK != 0 {
		c.Search.MaxTopK = other.Search.MaxTopK
	}
	if other.Search.RerankTopK != 0 {
		c.Search.RerankTopK = other.Search.RerankTopK
	}
	if other.Search.RetrievalType != "" {
		c.Search.RetrievalType = other.Search.RetrievalType
	}
	if other.Search.RerankModel != "" {
		c.Search.RerankModel = other.Search.RerankModel
	}
	// RerankEnabled can be explicitly false; treat the section as present
	// when any rerank knob is set.
	if other.Search.RerankModel != "" || other.Search.RerankTopK != 0 {
		c.Search.RerankEnabled = other.Search.RerankEnabled
	}
	if other.Search.VersionID != "" {
		c.Search.VersionID = other.Search.VersionID
	}
	if other.Search.CacheSize != 0 {
		c.Search.CacheSize = other.Search.CacheSize
	}

	// Indexing
	if len(other.Indexing.Extensions) > 0 {
		c.Indexing.Extensions = other.Indexing.Extensions
	}
	if other.Indexing.PollInterval != "" {
		c.Indexing.PollInterval = other.Indexing.PollInterval
	}
	if other.Indexing.PollTimeout != "" {
		c.Indexing.PollTimeout = other.Indexing.PollTimeout
	}
}

// applyEnvOverrides applies KBMCP_* environment variable overrides.
// Credentials are expected to arrive this way in most deployments.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KBMCP_QUERY_URL"); v != "" {
		c.Backend.QueryURL = v
	}
	if v := os.Getenv("KBMCP_INDEXING_URL"); v != "" {
		c.Backend.IndexingURL = v
	}
	if v := os.Getenv("KBMCP_IAM_URL"); v != "" {
		c.Backend.IAMURL = v
	}
	if v := os.Getenv("KBMCP_KNOWLEDGE_BASE_ID"); v != "" {
		c.Backend.KnowledgeBaseID = v
	}
	if v := os.Getenv("KBMCP_PROJECT_ID"); v != "" {
		c.Backend.ProjectID = v
	}

	// Query-scope credentials
	if v := os.Getenv("KBMCP_QUERY_KEY_ID"); v != "" {
		c.Credentials.KeyID = v
	}
	if v := os.Getenv("KBMCP_QUERY_SECRET"); v != "" {
		c.Credentials.Secret = v
	}

	// Indexing-scope credentials
	if v := os.Getenv("KBMCP_INDEXING_KEY_ID"); v != "" {
		c.IndexingCredentials.KeyID = v
	}
	if v := os.Getenv("KBMCP_INDEXING_SECRET"); v != "" {
		c.IndexingCredentials.Secret = v
	}

	// Storage
	if v := os.Getenv("KBMCP_S3_ENDPOINT"); v != "" {
		c.Storage.Endpoint = v
	}
	if v := os.Getenv("KBMCP_S3_REGION"); v != "" {
		c.Storage.Region = v
	}
	if v := os.Getenv("KBMCP_S3_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("KBMCP_S3_ACCESS_KEY_ID"); v != "" {
		c.Storage.AccessKeyID = v
	}
	if v := os.Getenv("KBMCP_S3_SECRET_ACCESS_KEY"); v != "" {
		c.Storage.SecretAccessKey = v
	}
	if v := os.Getenv("KBMCP_S3_USE_SSL"); v != "" {
		c.Storage.UseSSL = parseBool(v)
	}

	// Search
	if v := os.Getenv("KBMCP_VERSION_ID"); v != "" {
		c.Search.VersionID = v
	}
	if v := os.Getenv("KBMCP_RERANK_MODEL"); v != "" {
		c.Search.RerankModel = v
	}
	if v := os.Getenv("KBMCP_RERANK_ENABLED"); v != "" {
		c.Search.RerankEnabled = parseBool(v)
	}
	if v := os.Getenv("KBMCP_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.CacheSize = n
		}
	}

	// Server
	if v := os.Getenv("KBMCP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("KBMCP_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// parseBool interprets common boolean spellings used in env vars.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	// Validate transport
	validTransports := map[string]bool{"stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	// Validate log level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	// Validate backend URLs when present
	for name, raw := range map[string]string{
		"backend.query_url":    c.Backend.QueryURL,
		"backend.indexing_url": c.Backend.IndexingURL,
		"backend.iam_url":      c.Backend.IAMURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
		}
	}

	// Validate storage provider. Endpoint/bucket completeness is checked
	// by the store factory, so commands that never touch storage still load.
	validProviders := map[string]bool{"minio": true, "s3": true, "memory": true}
	if !validProviders[strings.ToLower(c.Storage.Provider)] {
		return fmt.Errorf("storage.provider must be 'minio', 's3', or 'memory', got %s", c.Storage.Provider)
	}

	// Validate search limits
	if c.Search.MaxTopK < 1 || c.Search.MaxTopK > 100 {
		return fmt.Errorf("search.max_top_k must be between 1 and 100, got %d", c.Search.MaxTopK)
	}
	if c.Search.DefaultTopK < 1 || c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k must be between 1 and max_top_k (%d), got %d", c.Search.MaxTopK, c.Search.DefaultTopK)
	}
	if c.Search.RerankTopK < 1 || c.Search.RerankTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.rerank_top_k must be between 1 and max_top_k (%d), got %d", c.Search.MaxTopK, c.Search.RerankTopK)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}

	validRetrieval := map[string]bool{"HYBRID": true, "SEMANTIC": true, "KEYWORD": true}
	if !validRetrieval[strings.ToUpper(c.Search.RetrievalType)] {
		return fmt.Errorf("search.retrieval_type must be 'HYBRID', 'SEMANTIC', or 'KEYWORD', got %s", c.Search.RetrievalType)
	}

	return nil
}

// Redacted returns a copy of the configuration with all secret material
// masked, safe for logging and `kbmcp config show`.
func (c *Config) Redacted() *Config {
	out := *c
	out.Credentials = c.Credentials.redacted()
	out.IndexingCredentials = c.IndexingCredentials.redacted()
	if out.Storage.SecretAccessKey != "" {
		out.Storage.SecretAccessKey = "********"
	}
	return &out
}

func (c CredentialsConfig) redacted() CredentialsConfig {
	out := c
	if out.Secret != "" {
		out.Secret = "********"
	}
	return out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
