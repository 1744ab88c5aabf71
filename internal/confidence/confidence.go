// Package confidence turns evidence into a 0-100 confidence score and
// combines a node's own score with the scores of the hypotheses it depends on.
//
// Everything here is pure: no I/O, no errors. Malformed input (a strength
// outside 1..5, an unknown direction) is normalized rather than rejected.
package confidence

import (
	"fmt"
	"math"
	"strings"
)

const (
	// Base is the score of a hypothesis with no evidence at all.
	Base = 50
	// ScaleFactor converts one point of weighted strength into score points.
	ScaleFactor = 3.0

	MinStrength = 1
	MaxStrength = 5

	MinScore = 0
	MaxScore = 100
)

// ─── Direction enum ──────────────────────────────────────────────────────────

// Direction says which way a piece of evidence pushes its hypothesis.
type Direction string

const (
	Supports       Direction = "SUPPORTS"
	WeaklySupports Direction = "WEAKLY_SUPPORTS"
	Neutral        Direction = "NEUTRAL"
	WeaklyRefutes  Direction = "WEAKLY_REFUTES"
	Refutes        Direction = "REFUTES"
)

var directionWeights = map[Direction]float64{
	Supports:       1,
	WeaklySupports: 0.5,
	Neutral:        0,
	WeaklyRefutes:  -0.5,
	Refutes:        -1,
}

// Weight returns the signed multiplier for the direction. Unknown
// directions weigh nothing.
func (d Direction) Weight() float64 {
	return directionWeights[d]
}

// IsRefuting reports whether the direction counts against the hypothesis.
func (d Direction) IsRefuting() bool {
	return d == Refutes || d == WeaklyRefutes
}

// Valid reports whether d is one of the five known directions.
func (d Direction) Valid() bool {
	_, ok := directionWeights[d]
	return ok
}

// ParseDirection accepts any casing and "-" or " " separators.
func ParseDirection(s string) (Direction, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	d := Direction(norm)
	if !d.Valid() {
		return "", fmt.Errorf("invalid direction %q: must be one of: SUPPORTS, WEAKLY_SUPPORTS, NEUTRAL, WEAKLY_REFUTES, REFUTES", s)
	}
	return d, nil
}

// Item is the part of an evidence row that feeds the score.
type Item struct {
	Direction Direction
	Strength  int
}

// ClampStrength forces a strength into 1..5.
func ClampStrength(strength int) int {
	if strength < MinStrength {
		return MinStrength
	}
	if strength > MaxStrength {
		return MaxStrength
	}
	return strength
}

// Calculate scores a hypothesis from its own evidence.
func Calculate(items []Item) int {
	if len(items) == 0 {
		return Base
	}

	sum := 0.0
	for _, it := range items {
		sum += it.Direction.Weight() * float64(ClampStrength(it.Strength)) * ScaleFactor
	}
	return round(clamp(Base+sum, MinScore, MaxScore))
}

// Cascade averages a node's own score with the final scores of its children,
// every component weighing the same. With no children own is returned as is.
func Cascade(own int, children []int) int {
	if len(children) == 0 {
		return own
	}

	total := float64(own)
	for _, c := range children {
		total += float64(c)
	}
	return round(clamp(total/float64(1+len(children)), MinScore, MaxScore))
}

// ClampScore forces a user supplied score into 0..100.
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// round rounds half up: 57.5 -> 58.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
