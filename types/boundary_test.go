package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundary(t *testing.T) {
	assert.Equal(t, BND_Right, BND_Left.Opposite())
	assert.Equal(t, BND_Left, BND_Right.Opposite())
	assert.Equal(t, BND_Top, BND_Bottom.Opposite())
	assert.Equal(t, BND_Bottom, BND_Top.Opposite())
}

func TestBoundaryTypeNames(t *testing.T) {
	for name, want := range map[string]BoundaryType{
		"wall":    BC_Wall,
		"WALL":    BC_Wall,
		" Wall ":  BC_Wall,
		"outflow": BC_Outflow,
		"connect": BC_Connect,
		"passive": BC_Passive,
	} {
		bt, ok := NewBoundaryType(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, bt, name)
	}
	_, ok := NewBoundaryType("slippery")
	assert.False(t, ok)
}
