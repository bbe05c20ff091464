package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"honnef.co/go/color"
)

func TestPremul32(t *testing.T) {
	// A color already in linear sRGB converts to itself; alpha is the
	// fourth component.
	c := &color.Color{
		Values: [4]float64{0.5, 0.25, 1, 0.5},
		Space:  color.LinearSRGB,
	}
	got := Premul32(c)
	assert.InDelta(t, 0.25, got[0], 1e-6)
	assert.InDelta(t, 0.125, got[1], 1e-6)
	assert.InDelta(t, 0.5, got[2], 1e-6)
	assert.InDelta(t, 0.5, got[3], 1e-6)
}

func TestPremulRGBA(t *testing.T) {
	assert.Equal(t, [4]float32{0.5, 0, 0, 0.5}, PremulRGBA(1, 0, 0, 0.5))
	assert.Equal(t, [4]float32{1, 1, 1, 1}, PremulRGBA(1, 1, 1, 1))
	assert.Equal(t, [4]float32{0, 0, 0, 0}, PremulRGBA(0.2, 0.4, 0.6, 0))
}
