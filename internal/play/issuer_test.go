package play

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

var codePattern = regexp.MustCompile(`^WIN1767225600000[0-9A-F]{8}$`)

func TestNewRewardCode(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	code := NewRewardCode("win", now)
	if !codePattern.MatchString(code) {
		t.Fatalf("code %q does not match %s", code, codePattern)
	}
}

func TestNewRewardCodeEntropyFailure(t *testing.T) {
	orig := randRead
	randRead = func([]byte) (int, error) { return 0, errors.New("entropy exhausted") }
	defer func() { randRead = orig }()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		code := NewRewardCode("WIN", now)
		if !codePattern.MatchString(code) {
			t.Fatalf("code %q does not match %s", code, codePattern)
		}
		seen[code] = true
	}
	if seen["WIN176722560000000000000"] {
		t.Error("suffix fell back to zero bytes")
	}
	if len(seen) < 2 {
		t.Errorf("fallback suffixes did not vary: %v", seen)
	}
}
