package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags and positionals ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{},
		},
		{
			name:         "boolean-like flag followed by another flag",
			args:         []string{"-v", "-a", "x"},
			allowedFlags: []string{"-v", "-a"},
			want:         []string{"-v", "-a", "x"},
		},
		{
			name:         "value with equals sign kept whole",
			args:         []string{"-d=postgres://u:p@h/db?sslmode=disable"},
			allowedFlags: []string{"-d"},
			want:         []string{"-d=postgres://u:p@h/db?sslmode=disable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "a.json", ConfigPath([]string{"-a", "x", "-c", "a.json"}))
	assert.Equal(t, "b.json", ConfigPath([]string{"-config=b.json"}))
	assert.Equal(t, "", ConfigPath([]string{"-a", "x"}))
	assert.Equal(t, "", ConfigPath(nil))
}
