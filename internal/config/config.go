package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultMaxUploadMB = 20
	defaultRescan      = "*/30 * * * *"
	defaultDebounceMS  = 500
)

// InboxConfig describes the optional watched drop folder.
type InboxConfig struct {
	// Dir is watched for new .pdf / .txt rosters. Empty disables the inbox.
	Dir string `yaml:"dir" json:"dir"`
	// Outbox receives the generated .ics files. Defaults to Dir.
	Outbox string `yaml:"outbox" json:"outbox"`
	// Rescan is a cron expression for full directory rescans.
	Rescan string `yaml:"rescan" json:"rescan"`
	// DebounceMS coalesces bursts of write events for one file.
	DebounceMS int `yaml:"debounce_ms" json:"debounce_ms"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the upload UI.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MaxUploadMB caps the size of an uploaded roster.
	MaxUploadMB int `yaml:"max_upload_mb" json:"max_upload_mb"`

	// Pdftotext is the path of poppler's pdftotext binary.
	Pdftotext string `yaml:"pdftotext" json:"pdftotext"`

	// PdfLayout passes -layout to pdftotext.
	PdfLayout bool `yaml:"pdf_layout" json:"pdf_layout"`

	// ProductID is written as the calendar PRODID.
	ProductID string `yaml:"product_id" json:"product_id"`

	// OnCallTitle and DutyTitle are the summaries of on-call events and of
	// duties without an activity tag.
	OnCallTitle string `yaml:"on_call_title" json:"on_call_title"`
	DutyTitle   string `yaml:"duty_title" json:"duty_title"`

	// ExtraVocabulary adds activity tags to the built-in list.
	ExtraVocabulary []string `yaml:"extra_vocabulary" json:"extra_vocabulary"`

	Inbox InboxConfig `yaml:"inbox" json:"inbox"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		LogLevel:        "info",
		MaxUploadMB:     defaultMaxUploadMB,
		Pdftotext:       "pdftotext",
		ProductID:       "-//roostercal//Rooster naar ICS//NL",
		OnCallTitle:     "Consignatie",
		DutyTitle:       "Dienst",
		ExtraVocabulary: []string{},
		Inbox: InboxConfig{
			Rescan:     defaultRescan,
			DebounceMS: defaultDebounceMS,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = d.LogLevel
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = d.MaxUploadMB
	}
	if c.Pdftotext == "" {
		c.Pdftotext = d.Pdftotext
	}
	if c.ProductID == "" {
		c.ProductID = d.ProductID
	}
	if c.OnCallTitle == "" {
		c.OnCallTitle = d.OnCallTitle
	}
	if c.DutyTitle == "" {
		c.DutyTitle = d.DutyTitle
	}
	if c.ExtraVocabulary == nil {
		c.ExtraVocabulary = []string{}
	}
	if c.Inbox.Outbox == "" {
		c.Inbox.Outbox = c.Inbox.Dir
	}
	if c.Inbox.Rescan == "" {
		c.Inbox.Rescan = d.Inbox.Rescan
	}
	if c.Inbox.DebounceMS < 0 {
		c.Inbox.DebounceMS = 0
	}
	// Empty credentials disable auth rather than lock everyone out.
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".roostercal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
