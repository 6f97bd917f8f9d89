package utils

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genBox generates a random well-formed box.
func genBox() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-500, 500),
		gen.Float64Range(-500, 500),
		gen.Float64Range(0, 300),
		gen.Float64Range(0, 300),
	).Map(func(vals []interface{}) Box {
		x, y := vals[0].(float64), vals[1].(float64)
		return NewBox(x, y, x+vals[2].(float64), y+vals[3].(float64))
	})
}

func contains(outer, inner Box) bool {
	return outer.Left <= inner.Left && outer.Top <= inner.Top &&
		outer.Right >= inner.Right && outer.Bottom >= inner.Bottom
}

// TestUnion_ContainsInputs verifies the union box covers both inputs.
func TestUnion_ContainsInputs(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("union contains both boxes", prop.ForAll(
		func(a, b Box) bool {
			u := Union(a, b)
			return contains(u, a) && contains(u, b)
		},
		genBox(),
		genBox(),
	))

	properties.Property("union is commutative", prop.ForAll(
		func(a, b Box) bool {
			return Union(a, b) == Union(b, a)
		},
		genBox(),
		genBox(),
	))

	properties.TestingRun(t)
}

// TestHorizontalOverlapRatio_Bounded verifies the ratio stays in [0,1].
func TestHorizontalOverlapRatio_Bounded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("overlap ratio in [0,1]", prop.ForAll(
		func(a, b Box) bool {
			r := HorizontalOverlapRatio(a, b)
			return r >= 0 && r <= 1
		},
		genBox(),
		genBox(),
	))

	properties.Property("gap and overlap are exclusive", prop.ForAll(
		func(a, b Box) bool {
			return HorizontalGap(a, b) == 0 || HorizontalOverlapRatio(a, b) == 0
		},
		genBox(),
		genBox(),
	))

	properties.TestingRun(t)
}
