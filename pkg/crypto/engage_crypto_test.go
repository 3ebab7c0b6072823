package crypto

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewEncryptor([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	tests := []string{
		"ya29.a0AfB_short_token",
		"1//refresh-token-with-slashes",
		"",
	}

	for _, plaintext := range tests {
		ciphertext, err := enc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if plaintext != "" && ciphertext == plaintext {
			t.Errorf("ciphertext equals plaintext for %q", plaintext)
		}

		got, err := enc.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != plaintext {
			t.Errorf("round trip = %q, want %q", got, plaintext)
		}
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	enc, err := NewEncryptor([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	a, _ := enc.Encrypt("same-token")
	b, _ := enc.Encrypt("same-token")
	if a == b {
		t.Error("expected random nonces to yield distinct ciphertexts")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	enc, err := NewEncryptor([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	if _, err := enc.Decrypt("not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := enc.Decrypt("c2hvcnQ="); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
}

func TestIsEncrypted(t *testing.T) {
	enc, err := NewEncryptor([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	ciphertext, _ := enc.Encrypt("token-value")
	if !IsEncrypted(ciphertext) {
		t.Error("expected ciphertext to be recognized")
	}
	if IsEncrypted("ya29.plaintext-token") {
		t.Error("plaintext token should not look encrypted")
	}
	if IsEncrypted("") {
		t.Error("empty string should not look encrypted")
	}
}
