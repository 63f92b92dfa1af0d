package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealSaltFlag(t *testing.T) {
	assert.Equal(t, "alice", healSaltFlag([]string{"-a", ":9000", "-heal-salt", "alice"}))
	assert.Equal(t, "bob", healSaltFlag([]string{"--heal-salt=bob"}))
	assert.Equal(t, "", healSaltFlag([]string{"-d", "postgres://x"}))
}
