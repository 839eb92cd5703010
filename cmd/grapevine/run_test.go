package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grapevine/internal/grapevine"
)

func TestParseObservation(t *testing.T) {
	name, text, err := parseObservation("Terry: the grove is north of Grimlock")
	require.NoError(t, err)
	assert.Equal(t, "Terry", name)
	assert.Equal(t, "the grove is north of Grimlock", text)

	for _, bad := range []string{"no colon", ": text", "Terry:  "} {
		_, _, err := parseObservation(bad)
		assert.Error(t, err, bad)
	}
}

func TestEdgeTable(t *testing.T) {
	out := edgeTable([]grapevine.EdgeSnapshot{{From: "Lary", To: "Gary", D: 6, E: -2.5}})
	assert.Contains(t, out, "FROM")
	assert.Contains(t, out, "Lary")
	assert.Contains(t, out, "-2.50")
}
