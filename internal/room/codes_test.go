package room

import (
	"strings"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), codeLength)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 190 {
		t.Fatalf("only %d distinct codes out of 200", len(seen))
	}
}

func TestNormalizeCode(t *testing.T) {
	cases := map[string]string{
		"abc234":    "ABC234",
		"  XyZ789 ": "XYZ789",
		"AAAAAA":    "AAAAAA",
	}
	for in, want := range cases {
		if got := NormalizeCode(in); got != want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidCode(t *testing.T) {
	if !ValidCode("ABC234") {
		t.Error("ABC234 should be valid")
	}
	for _, bad := range []string{"", "ABC", "ABC2345", "ABC10O", "abc234"} {
		if ValidCode(bad) {
			t.Errorf("%q should be invalid", bad)
		}
	}
}
