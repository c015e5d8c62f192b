package util

import "testing"

func TestHashUserKey(t *testing.T) {
	id := "user-42"
	got := HashUserKey(id)
	if got != HashUserKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestSanitizeFileName(t *testing.T) {
	if _, err := SanitizeFileName("../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	got, err := SanitizeFileName("selfie 2025/04.jpg")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "selfie 2025_04.jpg" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
