package catalog

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/talgya/star-market/internal/entropy"
)

// Range is a [min, max] pair. Anything that is not exactly two numbers is
// malformed and callers substitute their documented default via Or.
type Range []float64

// Valid reports whether r has exactly two elements.
func (r Range) Valid() bool { return len(r) == 2 }

// Or returns r when valid, otherwise def.
func (r Range) Or(def Range) Range {
	if r.Valid() {
		return r
	}
	return def
}

// Lo is the lower bound, 0 for an empty range.
func (r Range) Lo() float64 {
	if len(r) == 0 {
		return 0
	}
	return r[0]
}

// Hi is the upper bound, Lo for a single value.
func (r Range) Hi() float64 {
	if len(r) < 2 {
		return r.Lo()
	}
	return r[1]
}

// Sample draws uniformly from the range.
func (r Range) Sample(src entropy.Source) float64 {
	return entropy.Between(src, r.Lo(), r.Hi())
}

// SampleInt draws an integer uniformly from the rounded, inclusive range.
func (r Range) SampleInt(src entropy.Source) int {
	return entropy.IntBetweenF(src, r.Lo(), r.Hi())
}

// UnmarshalYAML never fails: non-numeric data leaves the range empty (malformed).
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	nums, ok := decodeNumbers(node)
	if !ok || node.Kind != yaml.SequenceNode {
		*r = nil
		return nil
	}
	*r = nums
	return nil
}

// Value is either a fixed number or a [min, max] range sampled at use time.
// A YAML boolean decodes as the fixed value 0.
type Value struct {
	nums []float64
}

// Fixed returns a degenerate value.
func Fixed(v float64) Value { return Value{nums: []float64{v}} }

// Span returns a ranged value.
func Span(lo, hi float64) Value { return Value{nums: []float64{lo, hi}} }

// Valid reports whether the value is a scalar or a two-element range.
func (v Value) Valid() bool { return len(v.nums) == 1 || len(v.nums) == 2 }

// Bounds returns the inclusive bounds of the value.
func (v Value) Bounds() (lo, hi float64, ok bool) {
	switch len(v.nums) {
	case 1:
		return v.nums[0], v.nums[0], true
	case 2:
		return v.nums[0], v.nums[1], true
	}
	return 0, 0, false
}

// Sample draws from the value. Malformed values sample from def.
func (v Value) Sample(src entropy.Source, def Range) float64 {
	lo, hi, ok := v.Bounds()
	if !ok {
		return def.Sample(src)
	}
	return entropy.Between(src, lo, hi)
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!bool" {
		v.nums = []float64{0}
		return nil
	}
	nums, ok := decodeNumbers(node)
	if !ok {
		v.nums = nil
		return nil
	}
	v.nums = nums
	return nil
}

// decodeNumbers reads a scalar or a flat sequence of numeric scalars.
func decodeNumbers(node *yaml.Node) ([]float64, bool) {
	switch node.Kind {
	case yaml.ScalarNode:
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return nil, false
		}
		return []float64{f}, true
	case yaml.SequenceNode:
		out := make([]float64, 0, len(node.Content))
		for _, c := range node.Content {
			if c.Kind != yaml.ScalarNode {
				return nil, false
			}
			f, err := strconv.ParseFloat(c.Value, 64)
			if err != nil {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}
