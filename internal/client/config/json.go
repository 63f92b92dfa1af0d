package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/zkvault/internal/flagx"
	"github.com/dmitrijs2005/zkvault/internal/timex"
)

type jsonReplica struct {
	Kind       string `json:"kind"`
	CouchURL   string `json:"couch_url"`
	CouchDB    string `json:"couch_db"`
	S3Bucket   string `json:"s3_bucket"`
	S3Region   string `json:"s3_region"`
	S3Endpoint string `json:"s3_endpoint"`
	S3Prefix   string `json:"s3_prefix"`
	S3Access   string `json:"s3_access_key"`
	S3Secret   string `json:"s3_secret_key"`
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Pointer and zero-value fields that are absent leave the defaults intact.
type JsonConfig struct {
	ServerURL       string          `json:"server_url"`
	DataDir         string          `json:"data_dir"`
	SessionDir      *string         `json:"session_dir"`
	LogLevel        string          `json:"log_level"`
	RequestTimeout  *timex.Duration `json:"request_timeout"`
	SensitiveFields []string        `json:"sensitive_fields"`
	Replica         *jsonReplica    `json:"replica"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.SessionDir != nil {
		cfg.SessionDir = *jc.SessionDir
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if len(jc.SensitiveFields) > 0 {
		cfg.SensitiveFields = jc.SensitiveFields
	}
	if r := jc.Replica; r != nil {
		cfg.Replica.Kind = r.Kind
		if r.CouchURL != "" {
			cfg.Replica.CouchURL = r.CouchURL
		}
		if r.CouchDB != "" {
			cfg.Replica.CouchDB = r.CouchDB
		}
		if r.S3Bucket != "" {
			cfg.Replica.S3Bucket = r.S3Bucket
		}
		if r.S3Region != "" {
			cfg.Replica.S3Region = r.S3Region
		}
		if r.S3Endpoint != "" {
			cfg.Replica.S3Endpoint = r.S3Endpoint
		}
		if r.S3Prefix != "" {
			cfg.Replica.S3Prefix = r.S3Prefix
		}
		if r.S3Access != "" {
			cfg.Replica.S3AccessKey = r.S3Access
			cfg.Replica.S3SecretKey = r.S3Secret
		}
	}
}
