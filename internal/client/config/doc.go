// Package config loads runtime configuration for the zkvault client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-s string   base URL of the auth API
//	-d string   data directory holding the local store and the audit trail
//	-r string   runtime directory for the session bundle ("" keeps it in memory)
//	-l string   log level
//	-t int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_url": "https://vault.example.com",
//	  "data_dir": "/home/me/.config/zkvault",
//	  "session_dir": "/run/user/1000",
//	  "log_level": "info",
//	  "request_timeout": "10s",
//	  "sensitive_fields": ["amount", "notes"],
//	  "replica": {"kind": "couch", "couch_url": "http://localhost:5984", "couch_db": "zkvault"}
//	}
package config
