package common

import (
	"encoding/base64"
	"testing"
)

// ---------- MakeRandBase64String ----------

func TestMakeRandBase64String_DecodesToSize(t *testing.T) {
	s, err := MakeRandBase64String(SaltSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("not valid base64: %v", err)
	}
	if len(raw) != SaltSize {
		t.Fatalf("expected %d bytes, got %d", SaltSize, len(raw))
	}

	other, err := MakeRandBase64String(SaltSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == other {
		t.Logf("warning: two salts are identical; extremely unlikely")
	}
}

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

// ---------- GenerateRandByteArray ----------

func TestGenerateRandByteArray_Basic(t *testing.T) {
	const n = 24
	buf := GenerateRandByteArray(n)
	if len(buf) != n {
		t.Fatalf("expected length %d, got %d", n, len(buf))
	}
}
