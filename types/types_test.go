package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompatibility(t *testing.T) {
	r := NewRegistry()
	point := r.RegisterClass("Point")
	other := r.RegisterClass("Other")

	tests := []struct {
		value, target Type
		want          bool
	}{
		{Int, Int, true},
		{Int, Double, true},
		{Double, Int, true}, // narrowing is permitted
		{Float, Double, true},
		{Double, Float, true},
		{Boolean, Boolean, true},
		{Boolean, Int, false},
		{Int, Boolean, false},
		{String, Int, false},
		{Int, String, false},
		{String, String, true},
		{point, point, true},
		{point, other, false},
		{NullT, point, true},
		{NullT, String, true},
		{NullT, Int, false},
		{point, NullT, false},
		{VoidT, VoidT, true},
		{VoidT, Int, false},
		{Int, VoidT, false},
		{ErrorT, Int, true},
		{Int, ErrorT, true},
		{ErrorT, VoidT, true},
		{VoidT, ErrorT, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.value.IsCompatibleWith(tt.target), "%s -> %s", tt.value, tt.target)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"int", "double", "float", "boolean", "String", "void"} {
		assert.False(t, IsError(r.Resolve(name)), name)
	}
	assert.True(t, IsError(r.Resolve("Missing")))

	c := r.RegisterClass("Point")
	require.NotNil(t, c)
	assert.Same(t, c, r.RegisterClass("Point"))
	assert.Nil(t, r.RegisterClass("int"))
	assert.Equal(t, []string{"Point", "String"}, r.Classes())
}

func TestWidest(t *testing.T) {
	assert.Equal(t, Int, Widest(Int, Int))
	assert.Equal(t, Float, Widest(Int, Float))
	assert.Equal(t, Double, Widest(Float, Double, Int))
	assert.Nil(t, Widest(Int, Boolean))
	assert.Nil(t, Widest(String, Int))
}

func TestSlotWidth(t *testing.T) {
	assert.Equal(t, 2, SlotWidth(Double))
	assert.Equal(t, 1, SlotWidth(Int))
	assert.Equal(t, 1, SlotWidth(String))
	assert.Equal(t, 0, SlotWidth(VoidT))
}
