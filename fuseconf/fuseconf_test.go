package fuseconf

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseBasic(t *testing.T) {
	input := `
# comment line
low = 0x3F ; trailing comment
high = 255
lock=0x00
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, _ := cfg.Get("low"); v != 0x3F {
		t.Errorf("low = 0x%x, want 0x3F", v)
	}
	if v, _ := cfg.Get("high"); v != 255 {
		t.Errorf("high = %d, want 255", v)
	}
	if v, _ := cfg.Get("lock"); v != 0 {
		t.Errorf("lock = %d, want 0", v)
	}
	want := []string{"low", "high", "lock"}
	if got := cfg.Keys(); !equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseMissingEquals(t *testing.T) {
	_, err := Parse(strings.NewReader("not_a_kv_line\n"))
	var perr *ParseError
	if err == nil {
		t.Fatal("expected ParseError")
	}
	if !errorsAs(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Line != 1 {
		t.Errorf("Line = %d, want 1", perr.Line)
	}
}

func errorsAs(err error, target **ParseError) bool {
	if pe, ok := err.(*ParseError); ok {
		*target = pe
		return true
	}
	return false
}

func TestRequireUnknownKey(t *testing.T) {
	cfg := newConfig()
	_, err := cfg.Require("missing")
	if err == nil {
		t.Fatal("expected ErrUnknownKey")
	}
}

func TestRoundTrip(t *testing.T) {
	// Round-trip law (spec.md §4.5, §8): writing then reading yields
	// every declared key with its exact value.
	cfg := newConfig()
	cfg.Set("low", 0x3F)
	cfg.Set("high", 0xC9)
	cfg.Set("lock", 0x00)

	var buf bytes.Buffer
	if err := Write(&buf, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reread, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, key := range cfg.Keys() {
		want, _ := cfg.Get(key)
		got, ok := reread.Get(key)
		if !ok || got != want {
			t.Errorf("key %q = 0x%x (ok=%v), want 0x%x", key, got, ok, want)
		}
	}
}
