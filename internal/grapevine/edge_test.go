package grapevine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEdgeReportsInitialValueUntilFirstPush(t *testing.T) {
	e := newEdge("a", "b", 6, -2)
	d, em := e.Weights()
	assert.Equal(t, 6.0, d)
	assert.Equal(t, -2.0, em)

	e.PushEmotion(4)
	assert.Equal(t, 4.0, e.E(), "the initial value does not occupy a slot")
	assert.Equal(t, 6.0, e.D())
}

func TestEdgeWindowEvictsOldest(t *testing.T) {
	e := newEdge("a", "b", 0, 0)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		e.PushEmotion(v)
	}
	assert.Equal(t, 3.5, e.E())
	assert.Equal(t, []float64{2, 3, 4, 5}, e.snapshot().EmotionHistory)

	e.PushStrength(10)
	e.PushStrength(0)
	assert.Equal(t, 5.0, e.D())
}

func TestMutual(t *testing.T) {
	specs := Mutual("x", "y", 4, -1)
	assert.Equal(t, []EdgeSpec{
		{From: "x", To: "y", D: 4, E: -1},
		{From: "y", To: "x", D: 4, E: -1},
	}, specs)
}

func TestEdgeString(t *testing.T) {
	assert.Equal(t, "a -> b | D,E = 1.00,2.50", newEdge("a", "b", 1, 2.5).String())
}
