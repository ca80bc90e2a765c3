package stats

import (
	"math"
	"strconv"
)

// Tone is the qualitative direction of a Descriptor.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneNeutral  Tone = "neutral"
)

// Descriptor contrasts a current value with its previous-period value.
type Descriptor struct {
	Label string `json:"label"`
	Tone  Tone   `json:"tone"`
}

const (
	LabelNoChange = "no change"
	LabelStable   = "stable"

	// stableThreshold is the |delta| below which a change reads as stable.
	stableThreshold = 0.5
)

// PercentChange returns (current-previous)/previous*100, or 0 when previous is 0.
func PercentChange(current, previous float64) float64 {
	current, previous = finiteOrZero(current), finiteOrZero(previous)
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// Compare describes the relative change from previous to current.
// One decimal is shown up to 99%, integers above.
func Compare(current, previous float64) Descriptor {
	current, previous = finiteOrZero(current), finiteOrZero(previous)
	if previous == 0 {
		if current != 0 {
			return Descriptor{Label: "+100%", Tone: TonePositive}
		}
		return Descriptor{Label: LabelNoChange, Tone: ToneNeutral}
	}

	pct := (current - previous) / previous * 100
	if math.Abs(pct) < stableThreshold {
		return Descriptor{Label: LabelStable, Tone: ToneNeutral}
	}

	var label string
	if math.Abs(pct) <= 99 {
		label = strconv.FormatFloat(math.Round(pct*10)/10, 'f', 1, 64)
	} else {
		label = strconv.FormatFloat(math.Round(pct), 'f', 0, 64)
	}
	return Descriptor{Label: signed(pct, label) + "%", Tone: toneOf(pct)}
}

// ComparePoints describes the absolute difference between two shares in percentage points.
func ComparePoints(currentPct, previousPct float64) Descriptor {
	diff := finiteOrZero(currentPct) - finiteOrZero(previousPct)
	if math.Abs(diff) < stableThreshold {
		return Descriptor{Label: LabelStable, Tone: ToneNeutral}
	}
	label := strconv.FormatFloat(math.Round(diff*10)/10, 'f', 1, 64)
	return Descriptor{Label: signed(diff, label) + " pts", Tone: toneOf(diff)}
}

// Invert flips the tone of d for metrics where a decrease is good (incidents, idle time).
func (d Descriptor) Invert() Descriptor {
	switch d.Tone {
	case TonePositive:
		d.Tone = ToneNegative
	case ToneNegative:
		d.Tone = TonePositive
	}
	return d
}

func signed(v float64, label string) string {
	if v > 0 {
		return "+" + label
	}
	return label
}

func toneOf(v float64) Tone {
	if v > 0 {
		return TonePositive
	}
	return ToneNegative
}

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}
