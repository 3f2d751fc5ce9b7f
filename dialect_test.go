package authflow

import "testing"

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in   string
		want Dialect
		ok   bool
	}{
		{in: "egyptian", want: DialectEgyptian, ok: true},
		{in: "darija", want: DialectDarija, ok: true},
		{in: "msa", want: DialectMSA, ok: true},
		{in: "Egyptian", want: DialectEgyptian, ok: true},
		{in: "  gulf  ", want: DialectGulf, ok: true},
		{in: "klingon", ok: false},
		{in: "", ok: false},
	}

	for _, tc := range tests {
		got, ok := ParseDialect(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseDialect(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseDialect(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDefaultDialectsAreDistinctAndParseable(t *testing.T) {
	seen := make(map[Dialect]bool)
	for _, d := range DefaultDialects() {
		if seen[d] {
			t.Fatalf("duplicate dialect %q", d)
		}
		seen[d] = true

		if _, ok := ParseDialect(string(d)); !ok {
			t.Fatalf("default dialect %q does not parse", d)
		}
	}
	if len(seen) < 2 {
		t.Fatal("expected at least two dialects to pair")
	}
}

func TestDialectAllowed(t *testing.T) {
	allowed := []Dialect{DialectEgyptian, DialectDarija}

	if !dialectAllowed(DialectEgyptian, allowed) {
		t.Fatal("expected egyptian to be allowed")
	}
	if dialectAllowed(DialectGulf, allowed) {
		t.Fatal("expected gulf to be rejected by the restricted list")
	}
	if dialectAllowed("", allowed) {
		t.Fatal("expected empty dialect to be rejected")
	}
}
