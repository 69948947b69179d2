package session

import (
	"strings"
	"testing"
)

func TestRandomCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := randomCode()
		if len(code) != codeLength {
			t.Fatalf("code %q has length %d; want %d", code, len(code), codeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeChars, r) {
				t.Fatalf("code %q contains %q, not in charset", code, r)
			}
		}
		seen[code] = true
	}
	// 32^6 codes; 200 draws colliding down to a handful would mean a
	// broken generator, not bad luck.
	if len(seen) < 150 {
		t.Fatalf("only %d distinct codes out of 200", len(seen))
	}
}

func TestCodeCharsetAvoidsLookalikes(t *testing.T) {
	for _, banned := range "01OIl" {
		if strings.ContainsRune(codeChars, banned) {
			t.Errorf("charset contains look-alike %q", banned)
		}
	}
}
