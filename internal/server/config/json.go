package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/zkvault/internal/flagx"
	"github.com/dmitrijs2005/zkvault/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. Absent fields leave earlier values intact.
type JsonConfig struct {
	HTTPAddr                    string          `json:"http_addr"`
	DatabaseDSN                 string          `json:"database_dsn"`
	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	LogLevel                    string          `json:"log_level"`
}

// parseJson loads the JSON file named by -c/-config into config. Read or
// unmarshal errors panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.HTTPAddr != "" {
		config.HTTPAddr = c.HTTPAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
}
