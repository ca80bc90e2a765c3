package insight

import (
	"testing"
)

func TestGenerate_GuardsAndOrder(t *testing.T) {
	got := Generate(5,
		When(true, "first %d", 1),
		When(false, "never"),
		Either(false, When(false, "renewals"), When(false, "no renewals")),
		When(true, "last"),
	)

	want := []string{"first 1", "no renewals", "last"}
	if len(got) != len(want) {
		t.Fatalf("Generate() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGenerate_TruncatesByPosition(t *testing.T) {
	rules := make([]Rule, 0, 10)
	for i := 0; i < 10; i++ {
		rules = append(rules, When(true, "s%d", i))
	}

	got := Generate(3, rules...)
	if len(got) != 3 || got[0] != "s0" || got[2] != "s2" {
		t.Errorf("Generate(3) = %v", got)
	}
	if got := Generate(0, rules...); len(got) != DefaultLimit {
		t.Errorf("Generate(0) returned %d sentences, want %d", len(got), DefaultLimit)
	}
}

func TestGenerate_LazyRender(t *testing.T) {
	called := false
	r := Rule{Guard: false, Render: func() string { called = true; return "x" }}
	if got := Generate(3, r); len(got) != 0 {
		t.Errorf("Generate() = %v", got)
	}
	if called {
		t.Error("Render should not run when the guard fails")
	}
	if got := Generate(3); got == nil {
		t.Error("Generate() should return an empty, non-nil slice")
	}
}

func TestFormatters(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"MoneyWhole", Money(1234567), "$1,234,567"},
		{"MoneyCents", Money(1500.5), "$1,500.50"},
		{"MoneySmall", Money(12), "$12"},
		{"MoneyNegative", Money(-950.25), "-$950.25"},
		{"PctWhole", Pct(25), "25%"},
		{"PctDecimal", Pct(33.333), "33.3%"},
		{"Hours", Hours(2.54), "2.5h"},
		{"PluralOne", Plural(1, "shift", "shifts"), "shift"},
		{"PluralMany", Plural(3, "shift", "shifts"), "shifts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}
