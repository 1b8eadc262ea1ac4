package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSignature(t *testing.T) {
	body := []byte(`{"type":"health_check"}`)
	got := Signature("topsecret", body)

	if !strings.HasPrefix(got, "sha256=") {
		t.Fatalf("signature missing scheme prefix: %q", got)
	}

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if got != want {
		t.Fatalf("signature = %q, want %q", got, want)
	}
}

func TestSignatureDependsOnSecret(t *testing.T) {
	body := []byte(`{"type":"health_check"}`)
	if Signature("a", body) == Signature("b", body) {
		t.Fatal("different secrets must produce different signatures")
	}
}
