package cryptox

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/zkvault/internal/common"
)

// randRead is a test seam for the system random source.
var randRead = rand.Read

// CheckPlatform verifies that the host can run the engine before any
// credential is accepted: the system random source must work, AES-GCM must
// round-trip, and endpoint (the auth API base URL) must be https or a
// loopback address. An empty endpoint skips the transport check.
// Failures wrap common.ErrPlatformUnsupported.
func CheckPlatform(endpoint string) error {
	if err := selfTest(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrPlatformUnsupported, err)
	}
	if endpoint == "" {
		return nil
	}
	if !secureEndpoint(endpoint) {
		return fmt.Errorf("%w: insecure endpoint %q", common.ErrPlatformUnsupported, endpoint)
	}
	return nil
}

func selfTest() error {
	raw := make([]byte, KeySize)
	if _, err := randRead(raw); err != nil {
		return fmt.Errorf("random source: %w", err)
	}
	key, err := KeyFromBytes(raw, false)
	if err != nil {
		return err
	}

	nonce := make([]byte, NonceSize)
	if _, err := randRead(nonce); err != nil {
		return fmt.Errorf("random source: %w", err)
	}
	probe := []byte("zkvault self-test")

	return key.withAEAD(func(aead cipher.AEAD) error {
		sealed := aead.Seal(nil, nonce, probe, nil)
		opened, err := aead.Open(nil, nonce, sealed, nil)
		if err != nil {
			return fmt.Errorf("aes-gcm: %w", err)
		}
		if !bytes.Equal(opened, probe) {
			return fmt.Errorf("aes-gcm: round trip mismatch")
		}
		return nil
	})
}

func secureEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Scheme, "https") {
		return true
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
