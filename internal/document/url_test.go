package document

import (
	"encoding/hex"
	"testing"
)

func TestRandomURLProviderIssuesHexTokens(t *testing.T) {
	provider := NewRandomURLProvider()

	url, err := provider.NewURL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(url) != urlTokenBytes*2 {
		t.Fatalf("expected %d hex characters, got %d", urlTokenBytes*2, len(url))
	}
	if _, err := hex.DecodeString(url); err != nil {
		t.Fatalf("expected hex encoding, got %q", url)
	}
}

func TestRandomURLProviderDoesNotRepeat(t *testing.T) {
	provider := NewRandomURLProvider()

	seen := make(map[string]struct{})
	for i := 0; i < 256; i++ {
		url, err := provider.NewURL()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[url]; dup {
			t.Fatalf("token repeated: %q", url)
		}
		seen[url] = struct{}{}
	}
}
