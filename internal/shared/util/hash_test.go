package util

import "testing"

func TestHashUserKeyStable(t *testing.T) {
	a := HashUserKey("user-1")
	b := HashUserKey("user-1")
	if a != b {
		t.Fatalf("expected stable hash, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256 length 64, got %d", len(a))
	}
	if HashUserKey("user-2") == a {
		t.Fatal("expected distinct users to hash differently")
	}
}

func TestSanitizeFileName(t *testing.T) {
	if _, err := SanitizeFileName("../../etc/passwd"); err == nil {
		t.Fatal("expected traversal rejection")
	}
	if _, err := SanitizeFileName("   "); err == nil {
		t.Fatal("expected empty name rejection")
	}
	got, err := SanitizeFileName("my resume/v2.pdf")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "my resume_v2.pdf" {
		t.Fatalf("unexpected sanitized name: %q", got)
	}
}
