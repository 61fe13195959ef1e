// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package similarity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortschak/rnaclique/genegraph"
	"github.com/kortschak/rnaclique/recip"
)

func idealOf(a, b string, ga, gb int) genegraph.IdealComponent {
	return genegraph.IdealComponent{Vertices: map[string]int{a: ga, b: gb}}
}

func TestSimilarityExactRational(t *testing.T) {
	e := NewEngine([]genegraph.IdealComponent{idealOf("s1", "s2", 1, 1)})
	table := recip.GeneMatchTable{
		QuerySample: "s1", SubjectSample: "s2",
		Hits: []recip.Hit{
			{QGene: 1, SGene: 1, Nident: 90, Length: 100, Gaps: 0},
		},
	}
	sim, ok := e.Similarity(table)
	require.True(t, ok)
	assert.Equal(t, big.NewRat(90, 100), sim)
}

func TestSimilarityRestrictsToValidVertices(t *testing.T) {
	e := NewEngine([]genegraph.IdealComponent{idealOf("s1", "s2", 1, 1)})
	table := recip.GeneMatchTable{
		QuerySample: "s1", SubjectSample: "s2",
		Hits: []recip.Hit{
			{QGene: 1, SGene: 1, Nident: 90, Length: 100, Gaps: 0},
			{QGene: 2, SGene: 2, Nident: 1000, Length: 1, Gaps: 0}, // not in any ideal component
		},
	}
	sim, ok := e.Similarity(table)
	require.True(t, ok)
	assert.Equal(t, big.NewRat(90, 100), sim)
}

func TestSimilarityUndefinedWhenNoAlignedBases(t *testing.T) {
	e := NewEngine(nil)
	sim, ok := e.Similarity(recip.GeneMatchTable{QuerySample: "s1", SubjectSample: "s2"})
	assert.False(t, ok)
	assert.Nil(t, sim)
}

func TestBuildMatricesDiagonalIsOne(t *testing.T) {
	e := NewEngine([]genegraph.IdealComponent{idealOf("s1", "s2", 1, 1)})
	table := recip.GeneMatchTable{
		QuerySample: "s1", SubjectSample: "s2",
		Hits: []recip.Hit{{QGene: 1, SGene: 1, Nident: 50, Length: 100, Gaps: 0}},
	}
	sim, dissim := e.BuildMatrices([]string{"s1", "s2"}, []recip.GeneMatchTable{table})

	assert.Equal(t, big.NewRat(1, 1), sim.At("s1", "s1"))
	assert.Equal(t, big.NewRat(0, 1), dissim.At("s1", "s1"))
	assert.Equal(t, big.NewRat(1, 2), sim.At("s1", "s2"))
	assert.Equal(t, big.NewRat(1, 2), dissim.At("s1", "s2"))
	// Symmetric.
	assert.Equal(t, sim.At("s1", "s2"), sim.At("s2", "s1"))
}

func TestBuildMatricesUndefinedEntryIsNil(t *testing.T) {
	e := NewEngine(nil)
	sim, _ := e.BuildMatrices([]string{"s1", "s2"}, nil)
	assert.Nil(t, sim.At("s1", "s2"))
}

func TestFloat64NaNForUndefined(t *testing.T) {
	e := NewEngine(nil)
	sim, _ := e.BuildMatrices([]string{"s1", "s2"}, nil)
	f := sim.Float64()
	assert.True(t, f[0][1] != f[0][1]) // NaN != NaN
}
