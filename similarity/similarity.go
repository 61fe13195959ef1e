// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package similarity computes exact rational pairwise similarity and
// dissimilarity, restricted to the vertices of ideal components, and
// materializes them as symmetric matrices over the sorted sample list
// (§4.G).
package similarity

import (
	"math/big"
	"sort"

	"github.com/kortschak/rnaclique/genegraph"
	"github.com/kortschak/rnaclique/recip"
)

// Engine computes exact similarity for a fixed set of ideal-component
// vertices.
type Engine struct {
	valid map[genegraph.Vertex]bool
}

// NewEngine returns an Engine restricted to the vertices that lie in
// components.
func NewEngine(components []genegraph.IdealComponent) *Engine {
	return &Engine{valid: genegraph.ValidVertices(components)}
}

// Similarity computes the exact pairwise similarity of t, restricted to
// valid vertices (§4.G steps 1-3). ok is false if no aligned bases
// survive restriction, in which case the similarity is undefined.
func (e *Engine) Similarity(t recip.GeneMatchTable) (sim *big.Rat, ok bool) {
	var n, l, g int64
	for _, h := range t.Hits {
		qv := genegraph.Vertex{Sample: t.QuerySample, Gene: h.QGene}
		sv := genegraph.Vertex{Sample: t.SubjectSample, Gene: h.SGene}
		if !e.valid[qv] || !e.valid[sv] {
			continue
		}
		n += int64(h.Nident)
		l += int64(h.Length)
		g += int64(h.Gaps)
	}
	denom := l - g
	if denom == 0 {
		return nil, false
	}
	return big.NewRat(n, denom), true
}

// Matrix is a symmetric similarity (or dissimilarity) matrix indexed by
// Samples, in the same order as the slice.
type Matrix struct {
	Samples []string
	// Values[i][j] is nil when the pair's similarity is undefined
	// (§7 item 3: "insufficient-ideal-components" / no aligned bases).
	Values [][]*big.Rat
}

// At returns the value for samples a and b, or nil if undefined or the
// samples are unknown.
func (m *Matrix) At(a, b string) *big.Rat {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return nil
	}
	return m.Values[i][j]
}

func (m *Matrix) index(sample string) int {
	for i, s := range m.Samples {
		if s == sample {
			return i
		}
	}
	return -1
}

// Float64 converts m to a plain float64 matrix, using NaN for
// undefined entries. Conversion to floating point happens only here,
// at materialization time (§4.G "Materialization").
func (m *Matrix) Float64() [][]float64 {
	out := make([][]float64, len(m.Samples))
	for i := range out {
		out[i] = make([]float64, len(m.Samples))
		for j, v := range m.Values[i] {
			if v == nil {
				out[i][j] = nan()
				continue
			}
			f, _ := v.Float64()
			out[i][j] = f
		}
	}
	return out
}

func nan() float64 {
	var zero float64
	return zero / zero
}

// BuildMatrices computes the similarity and dissimilarity matrices for
// every table in tables, over the full sample list samples (sorted
// lexicographically; §4.G "Determinism"). A sample with no defined
// pairwise similarity to any other sample still appears as a row/column
// with undefined (nil) off-diagonal entries.
func (e *Engine) BuildMatrices(samples []string, tables []recip.GeneMatchTable) (similarityM, dissimilarityM *Matrix) {
	sorted := append([]string(nil), samples...)
	sort.Strings(sorted)

	n := len(sorted)
	simVals := make([][]*big.Rat, n)
	dissimVals := make([][]*big.Rat, n)
	for i := range simVals {
		simVals[i] = make([]*big.Rat, n)
		dissimVals[i] = make([]*big.Rat, n)
	}
	for i := range sorted {
		simVals[i][i] = big.NewRat(1, 1)
		dissimVals[i][i] = big.NewRat(0, 1)
	}

	index := make(map[string]int, n)
	for i, s := range sorted {
		index[s] = i
	}

	for _, t := range tables {
		i, iok := index[t.QuerySample]
		j, jok := index[t.SubjectSample]
		if !iok || !jok || i == j {
			continue
		}
		sim, ok := e.Similarity(t)
		if !ok {
			continue
		}
		dissim := new(big.Rat).Sub(big.NewRat(1, 1), sim)
		simVals[i][j], simVals[j][i] = sim, sim
		dissimVals[i][j], dissimVals[j][i] = dissim, dissim
	}

	return &Matrix{Samples: sorted, Values: simVals}, &Matrix{Samples: sorted, Values: dissimVals}
}
