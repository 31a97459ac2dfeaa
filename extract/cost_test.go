package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/panther03/eqsatopt-go/extract"
)

func TestCostLessUnbounded(t *testing.T) {
	a := extract.Cost{Depth: 2, Area: 5}
	b := extract.Cost{Depth: 2, Area: 6}
	c := extract.Cost{Depth: 1, Area: 100}

	assert.True(t, a.Less(b, -1))
	assert.False(t, b.Less(a, -1))
	assert.True(t, c.Less(a, -1), "lower depth wins regardless of area when unbounded")
}

func TestCostLessBoundedPrefersInBoundOverLowerArea(t *testing.T) {
	inBound := extract.Cost{Depth: 2, Area: 10}
	overBound := extract.Cost{Depth: 3, Area: 1}

	assert.True(t, inBound.Less(overBound, 2), "an in-bound candidate beats an over-bound one even with more area")
	assert.False(t, overBound.Less(inBound, 2))
}

func TestCostLessBoundedTiesBrokenByArea(t *testing.T) {
	a := extract.Cost{Depth: 5, Area: 3}
	b := extract.Cost{Depth: 5, Area: 4}
	assert.True(t, a.Less(b, 2), "both exceed the bound equally, so area breaks the tie")
}
