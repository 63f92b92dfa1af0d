package config

import (
	"os"
	"path/filepath"
	"time"
)

// Replica selects an optional backend that receives whole documents as
// encrypted objects. Kind is "", "couch" or "s3".
type Replica struct {
	Kind string

	CouchURL string
	CouchDB  string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string
	S3AccessKey string
	S3SecretKey string
}

// Config holds runtime settings for the zkvault CLI.
type Config struct {
	ServerURL      string
	DataDir        string
	SessionDir     string
	LogLevel       string
	RequestTimeout time.Duration

	// SensitiveFields lists document fields that are sealed before they hit
	// the local store.
	SensitiveFields []string

	Replica Replica
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DataDir = defaultDataDir()
	c.SessionDir = os.Getenv("XDG_RUNTIME_DIR")
	c.LogLevel = "info"
	c.RequestTimeout = 10 * time.Second
	c.SensitiveFields = []string{"amount", "value", "notes", "description"}
	c.Replica = Replica{CouchDB: "zkvault", S3Prefix: "zkvault/"}
}

// DBPath is the SQLite file of the local document store. It is the only file
// a destructive recovery removes.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "zkvault.db")
}

// MetaPath is the SQLite file holding key-independent metadata such as
// cached salts.
func (c *Config) MetaPath() string {
	return filepath.Join(c.DataDir, "zkvault-meta.db")
}

// AuditPath is the JSONL audit trail.
func (c *Config) AuditPath() string {
	return filepath.Join(c.DataDir, "audit.jsonl")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "zkvault")
	}
	return ".zkvault"
}
