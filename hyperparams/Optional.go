package hyperparams

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// absentTokens are the cell values that mark an optional value as
// absent
var absentTokens = map[string]bool{
	"":     true,
	"none": true,
	"null": true,
	"nan":  true,
}

// Optional is a float64 which may be absent. The zero value is absent.
type Optional struct {
	value   float64
	present bool
}

// Some returns a present Optional holding v
func Some(v float64) Optional {
	return Optional{value: v, present: true}
}

// None returns an absent Optional
func None() Optional {
	return Optional{}
}

// Get returns the value and whether it is present
func (o Optional) Get() (float64, bool) {
	return o.value, o.present
}

// Present returns whether a value is present
func (o Optional) Present() bool {
	return o.present
}

// String returns the value formatted for a CSV cell, or the empty string
// if the value is absent
func (o Optional) String() string {
	if !o.present {
		return ""
	}
	return strconv.FormatFloat(o.value, 'g', -1, 64)
}

// ParseOptional parses a CSV cell into an Optional. Empty cells and the
// tokens None, null, and NaN (in any case) are absent.
func ParseOptional(s string) (Optional, error) {
	s = strings.TrimSpace(s)
	if absentTokens[strings.ToLower(s)] {
		return None(), nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None(), fmt.Errorf("parseOptional: %w", err)
	}
	if math.IsNaN(v) {
		return None(), nil
	}
	return Some(v), nil
}
