package insight

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultLimit is the sentence cap used when callers pass a non-positive limit.
const DefaultLimit = 6

// Rule is one guarded sentence template. Render is only called when Guard holds.
type Rule struct {
	Guard  bool
	Render func() string
}

// When builds a rule that formats its sentence lazily.
func When(guard bool, format string, args ...any) Rule {
	return Rule{Guard: guard, Render: func() string { return fmt.Sprintf(format, args...) }}
}

// Either fires yes when guard holds and no otherwise.
func Either(guard bool, yes, no Rule) Rule {
	if guard {
		yes.Guard = true
		return yes
	}
	no.Guard = true
	return no
}

// Generate renders the rules whose guards hold, in order, truncated to limit.
// Earlier rules always win the available slots.
func Generate(limit int, rules ...Rule) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]string, 0, min(limit, len(rules)))
	for _, r := range rules {
		if len(out) == limit {
			break
		}
		if !r.Guard || r.Render == nil {
			continue
		}
		if s := strings.TrimSpace(r.Render()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Money formats an amount as "$12,345.50", dropping zero cents.
func Money(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	neg := d.IsNegative()
	d = d.Abs()

	whole := d.Truncate(0).String()
	cents := d.Sub(d.Truncate(0)).Mul(decimal.NewFromInt(100)).IntPart()

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	s := "$" + b.String()
	if cents != 0 {
		s += fmt.Sprintf(".%02d", cents)
	}
	if neg {
		s = "-" + s
	}
	return s
}

// Pct formats a percentage with one decimal, dropping a trailing ".0".
func Pct(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(1)
	return strings.TrimSuffix(s, ".0") + "%"
}

// Hours formats a duration in hours as "2.5h".
func Hours(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(1)
	return strings.TrimSuffix(s, ".0") + "h"
}

// Plural returns singular when n == 1, otherwise plural.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
