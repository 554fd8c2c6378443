package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultHubURL is the production hub used when neither config nor
// DROP_HUB_URL names one.
const DefaultHubURL = "https://hub-production-f423.up.railway.app"

// Config holds application configuration.
type Config struct {
	// HubURL is the base URL of the remote context hub.
	HubURL string `json:"hub_url,omitempty"`

	// APIKey is sent as X-API-Key on every hub request.
	// Usually supplied through DROP_API_KEY / INGEST_API_KEY rather than the file.
	APIKey string `json:"api_key,omitempty"`

	// UserID is the fallback account used for identity-agnostic hydration.
	UserID string `json:"user_id,omitempty"`

	// DropPaths are local directories scanned for drops during global hydration.
	// Paths should be absolute; a leading ~/ is expanded.
	DropPaths []string `json:"drop_paths,omitempty"`

	// CheckpointPath is a directory holding checkpoint*.md files. The newest
	// (by reverse filename order) is appended to rendered prompts.
	CheckpointPath string `json:"checkpoint_path,omitempty"`

	// MaxDropAgeHours excludes local files modified longer ago than this.
	MaxDropAgeHours int `json:"max_drop_age_hours,omitempty"`

	// MaxDrops caps the number of drops in one hydrated context.
	MaxDrops int `json:"max_drops,omitempty"`

	// CacheTTLSeconds is how long a hydrated context is served without refetching.
	CacheTTLSeconds int `json:"cache_ttl_seconds,omitempty"`

	// CaptureEnabled turns on per-message capture and the connect/welcome flow.
	CaptureEnabled bool `json:"capture_enabled,omitempty"`

	// CaptureChannels restricts capture to these channels. Empty means all.
	CaptureChannels []string `json:"capture_channels,omitempty"`

	// RequestTimeoutSeconds bounds each hub HTTP request.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes disables every MCP tool of the given type ("context", "api", "drop", "scan").
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HubURL:                DefaultHubURL,
		MaxDropAgeHours:       168,
		MaxDrops:              20,
		CacheTTLSeconds:       300,
		RequestTimeoutSeconds: 30,
	}
}

// MaxDropAge returns MaxDropAgeHours as a duration.
func (c *Config) MaxDropAge() time.Duration {
	return time.Duration(c.MaxDropAgeHours) * time.Hour
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RequestTimeout returns RequestTimeoutSeconds as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// HubConfigured reports whether both a hub URL and an API key are present.
func (c *Config) HubConfigured() bool {
	return strings.TrimSpace(c.HubURL) != "" && strings.TrimSpace(c.APIKey) != ""
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.drophub.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.drophub) and repo (.drophub) directories.
// Repo config is found by walking upward from startDir to find the nearest .drophub/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .drophub/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".drophub", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.HubURL = firstNonEmpty(overlay.HubURL, base.HubURL)
	result.APIKey = firstNonEmpty(overlay.APIKey, base.APIKey)
	result.UserID = firstNonEmpty(overlay.UserID, base.UserID)
	result.CheckpointPath = firstNonEmpty(overlay.CheckpointPath, base.CheckpointPath)

	result.MaxDropAgeHours = firstNonZero(overlay.MaxDropAgeHours, base.MaxDropAgeHours)
	result.MaxDrops = firstNonZero(overlay.MaxDrops, base.MaxDrops)
	result.CacheTTLSeconds = firstNonZero(overlay.CacheTTLSeconds, base.CacheTTLSeconds)
	result.RequestTimeoutSeconds = firstNonZero(overlay.RequestTimeoutSeconds, base.RequestTimeoutSeconds)

	// Booleans: overlay wins if true, else base
	result.CaptureEnabled = base.CaptureEnabled || overlay.CaptureEnabled

	result.DropPaths = mergeStringSlice(base.DropPaths, overlay.DropPaths)
	result.CaptureChannels = mergeStringSlice(base.CaptureChannels, overlay.CaptureChannels)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// DefaultEnvFiles returns the dotenv files consulted for hub credentials:
// ./.env and ~/.drop-env.
func DefaultEnvFiles() []string {
	files := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".drop-env"))
	}
	return files
}

// ReadEnvFiles reads dotenv files without touching the process environment.
// Missing or unparseable files are skipped. Earlier files win on conflicts.
func ReadEnvFiles(paths ...string) map[string]string {
	values := make(map[string]string)
	for _, p := range paths {
		vars, err := godotenv.Read(p)
		if err != nil {
			continue
		}
		for k, v := range vars {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}
	return values
}

// ApplyEnv overlays hub settings from the environment onto cfg.
// getenv is consulted first, then fileVars (from ReadEnvFiles).
//
//	DROP_HUB_URL                  → HubURL
//	DROP_API_KEY, INGEST_API_KEY  → APIKey (first non-empty)
//	DROP_USER_ID                  → UserID
func ApplyEnv(cfg *Config, getenv func(string) string, fileVars map[string]string) *Config {
	lookup := func(key string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(fileVars[key])
	}

	out := *cfg
	if v := lookup("DROP_HUB_URL"); v != "" {
		out.HubURL = v
	}
	if v := firstNonEmpty(lookup("DROP_API_KEY"), lookup("INGEST_API_KEY")); v != "" {
		out.APIKey = v
	}
	if v := lookup("DROP_USER_ID"); v != "" {
		out.UserID = v
	}
	out.DropPaths = expandHome(out.DropPaths)
	if out.CheckpointPath != "" {
		out.CheckpointPath = expandHome([]string{out.CheckpointPath})[0]
	}
	return &out
}

// expandHome rewrites a leading ~/ to the user's home directory.
func expandHome(paths []string) []string {
	home, err := os.UserHomeDir()
	if err != nil || len(paths) == 0 {
		return paths
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		if rest, ok := strings.CutPrefix(p, "~/"); ok {
			p = filepath.Join(home, rest)
		}
		out[i] = p
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
