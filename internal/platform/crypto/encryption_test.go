package crypto

import (
	"bytes"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := New(testKeyHex)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("service should be configured")
	}

	plain := []byte("JBSWY3DPEHPK3PXP")
	ciphertext, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(ciphertext, plain) {
		t.Fatal("ciphertext equals plaintext")
	}
	decrypted, err := svc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plain) {
		t.Fatalf("roundtrip = %q, want %q", decrypted, plain)
	}
}

func TestUnconfiguredPassthrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if svc.Configured() {
		t.Fatal("empty key should leave service unconfigured")
	}
	plain := []byte("secret")
	out, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Fatal("unconfigured encrypt should pass through")
	}
}

func TestBadKeyRejected(t *testing.T) {
	if _, err := New("too-short"); err == nil {
		t.Fatal("expected error for non-32-byte key")
	}
}

func TestDecryptStringTamperDetected(t *testing.T) {
	svc, _ := New(testKeyHex)
	ciphertext, err := svc.EncryptString("totp-secret")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xff
	if _, err := svc.DecryptString(ciphertext); err == nil {
		t.Fatal("expected authentication failure on tampered ciphertext")
	}
}
