package animation

import (
	"fmt"
	"strings"
)

// Interpolation is the key interpolation of a curve.
type Interpolation int

const (
	Linear Interpolation = iota
	Step
)

func (i Interpolation) String() string {
	if i == Step {
		return "step"
	}
	return "linear"
}

// MarshalYAML writes the interpolation by name.
func (i Interpolation) MarshalYAML() (any, error) {
	return i.String(), nil
}

// ClipPolicy selects how glTF animations map onto clips.
type ClipPolicy int

const (
	// ClipMerged merges every animation into one clip named after the model.
	ClipMerged ClipPolicy = iota
	// ClipPerAnimation produces one clip per glTF animation.
	ClipPerAnimation
)

func (p ClipPolicy) String() string {
	if p == ClipPerAnimation {
		return "per-animation"
	}
	return "merged"
}

// ParseClipPolicy parses "merged" (or "") and "per-animation".
func ParseClipPolicy(s string) (ClipPolicy, error) {
	switch strings.ToLower(s) {
	case "", "merged":
		return ClipMerged, nil
	case "per-animation", "peranimation":
		return ClipPerAnimation, nil
	}
	return ClipMerged, fmt.Errorf("unknown clip policy %q", s)
}

// WrapLoop is the wrap mode of every imported clip.
const WrapLoop = "loop"

// Key is one (time, value) sample of a curve.
type Key struct {
	Time  float32 `yaml:"t"`
	Value float32 `yaml:"v"`
}

// Curve animates one scalar property of one node.
type Curve struct {
	// Path is the slash-separated node path relative to the model root.
	Path string `yaml:"path"`

	// Property names the animated component, e.g. localPosition.x or blendShape.Smile.
	Property string `yaml:"property"`

	Interpolation Interpolation `yaml:"interpolation"`

	// Keys are ordered by time.
	Keys []Key `yaml:"keys,flow"`
}

// Sample evaluates the curve at time t. Times outside the key range clamp to the first or last key.
//
// Parameters:
//   - t: the time in seconds
//
// Returns:
//   - float32: the curve value, 0 for a curve without keys
func (c *Curve) Sample(t float32) float32 {
	n := len(c.Keys)
	if n == 0 {
		return 0
	}
	if t <= c.Keys[0].Time {
		return c.Keys[0].Value
	}
	if t >= c.Keys[n-1].Time {
		return c.Keys[n-1].Value
	}

	// last key at or before t
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if c.Keys[mid].Time <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	a, b := c.Keys[lo], c.Keys[hi]
	if c.Interpolation == Step || b.Time <= a.Time {
		return a.Value
	}
	f := (t - a.Time) / (b.Time - a.Time)
	return a.Value + (b.Value-a.Value)*f
}

// Clip is a named set of curves.
type Clip struct {
	Name     string   `yaml:"name"`
	WrapMode string   `yaml:"wrapMode"`
	Curves   []*Curve `yaml:"curves"`
}

// Duration returns the latest key time of any curve.
func (c *Clip) Duration() float32 {
	var d float32
	for _, curve := range c.Curves {
		if n := len(curve.Keys); n > 0 {
			d = max(d, curve.Keys[n-1].Time)
		}
	}
	return d
}

// Curve returns the curve animating property of the node at path, or nil.
func (c *Clip) Curve(path, property string) *Curve {
	for _, curve := range c.Curves {
		if curve.Path == path && curve.Property == property {
			return curve
		}
	}
	return nil
}
