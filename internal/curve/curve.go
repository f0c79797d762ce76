// Package curve implements piecewise-linear response curves used to tune
// encampment generation against the points budget.
package curve

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// sampleTries bounds rejection sampling in Sample.
const sampleTries = 64

// Point is a single curve control point.
type Point struct {
	X float64
	Y float64
}

// Curve is a piecewise-linear function defined by control points sorted by X.
// Outside the [first.X, last.X] interval the curve is flat.
type Curve []Point

// Rand is the subset of a random source needed to sample a curve.
type Rand interface {
	Float64() float64
}

// New creates a curve from control points (sorted by X).
func New(points ...Point) Curve {
	c := Curve(slices.Clone(points))
	c.sort()
	return c
}

// Constant returns a flat curve.
func Constant(y float64) Curve {
	return Curve{{X: 0, Y: y}}
}

func (c Curve) sort() {
	slices.SortStableFunc(c, func(a, b Point) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})
}

// Evaluate returns the curve value at x. An empty curve evaluates to 0.
func (c Curve) Evaluate(x float64) float64 {
	if len(c) == 0 {
		return 0
	}
	if x <= c[0].X {
		return c[0].Y
	}
	last := c[len(c)-1]
	if x >= last.X {
		return last.Y
	}

	for i := 1; i < len(c); i++ {
		if x > c[i].X {
			continue
		}
		a, b := c[i-1], c[i]
		if b.X == a.X {
			return b.Y
		}
		t := (x - a.X) / (b.X - a.X)
		return a.Y + t*(b.Y-a.Y)
	}
	return last.Y
}

// Sample draws an X value with probability density proportional to the curve.
// The curve is treated as an unnormalized density over [first.X, last.X].
// Sampling is bounded; on exhaustion the X of the highest point is returned.
func (c Curve) Sample(r Rand) float64 {
	if len(c) == 0 {
		return 0
	}
	if len(c) == 1 {
		return c[0].X
	}

	minX, maxX := c[0].X, c[len(c)-1].X
	peak := c[0]
	for _, p := range c[1:] {
		if p.Y > peak.Y {
			peak = p
		}
	}
	if peak.Y <= 0 {
		return minX + r.Float64()*(maxX-minX)
	}

	for range sampleTries {
		x := minX + r.Float64()*(maxX-minX)
		y := r.Float64() * peak.Y
		if y <= c.Evaluate(x) {
			return x
		}
	}
	return peak.X
}

// UnmarshalYAML decodes a curve from a sequence of [x, y] pairs.
func (c *Curve) UnmarshalYAML(value *yaml.Node) error {
	var pairs [][]float64
	if err := value.Decode(&pairs); err != nil {
		return fmt.Errorf("decoding curve: %w", err)
	}

	points := make(Curve, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return fmt.Errorf("curve point %d: want [x, y], got %d values", i, len(pair))
		}
		points = append(points, Point{X: pair[0], Y: pair[1]})
	}
	points.sort()
	*c = points
	return nil
}

// MarshalYAML encodes the curve as a sequence of [x, y] pairs.
func (c Curve) MarshalYAML() (any, error) {
	pairs := make([][]float64, 0, len(c))
	for _, p := range c {
		pairs = append(pairs, []float64{p.X, p.Y})
	}
	return pairs, nil
}
