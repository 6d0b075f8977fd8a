package dynamo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_Arithmetic(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	assert.Equal(t, Vec3{5, 7, 9}, a.Add(b))
	assert.Equal(t, Vec3{3, 3, 3}, b.Sub(a))
	assert.Equal(t, Vec3{2, 4, 6}, a.Scale(2))
	assert.Equal(t, 32.0, a.Dot(b))
	assert.Equal(t, Vec3{-3, 6, -3}, a.Cross(b))

	// value methods never touch the receiver
	assert.Equal(t, Vec3{1, 2, 3}, a)
}

func TestVec3_InPlace(t *testing.T) {
	v := Vec3{1, 1, 1}
	v.AddInPlace(Vec3{1, 2, 3})
	assert.Equal(t, Vec3{2, 3, 4}, v)

	v.SubInPlace(Vec3{1, 1, 1})
	assert.Equal(t, Vec3{1, 2, 3}, v)

	v.ScaleInPlace(3)
	assert.Equal(t, Vec3{3, 6, 9}, v)

	v.AddScaledInPlace(Vec3{1, 0, -1}, 2)
	assert.Equal(t, Vec3{5, 6, 7}, v)
}

func TestVec3_Len(t *testing.T) {
	tests := []struct {
		v    Vec3
		want float64
	}{
		{Vec3{3, 4, 0}, 5},
		{Vec3{0, 0, 0}, 0},
		{Vec3{1, 2, 2}, 3},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, tt.v.Len(), 1e-12, "Len(%v)", tt.v)
		assert.InDelta(t, tt.want*tt.want, tt.v.LenSq(), 1e-12, "LenSq(%v)", tt.v)
	}

	assert.InDelta(t, 5.0, Vec3{1, 1, 1}.Dist(Vec3{4, 5, 1}), 1e-12)
}

func TestVec3_Normalize(t *testing.T) {
	assert.InDelta(t, 1.0, Vec3{3, -7, 2}.Normalize().Len(), 1e-12)
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
}

func TestVec3_IsFinite(t *testing.T) {
	tests := []struct {
		name string
		v    Vec3
		want bool
	}{
		{"zero", Vec3{}, true},
		{"normal", Vec3{1.5e11, -3, 0}, true},
		{"nan", Vec3{math.NaN(), 0, 0}, false},
		{"+inf", Vec3{0, math.Inf(1), 0}, false},
		{"-inf", Vec3{0, 0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.IsFinite())
		})
	}
}
