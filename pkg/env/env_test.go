package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("POSRELAY_TEST_VALUE", " console ")
	if got := Get("POSRELAY_TEST_VALUE", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}

	t.Setenv("POSRELAY_TEST_VALUE", "   ")
	if got := Get("POSRELAY_TEST_VALUE", "json"); got != "json" {
		t.Fatalf("blank value should fall back, got %q", got)
	}
}
