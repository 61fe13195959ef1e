// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hit(qgene, sgene int, score float64) Hit {
	return Hit{QGene: qgene, SGene: sgene, BitScore: score, Length: 100, Nident: 90}
}

func TestTopNSubjectGenes(t *testing.T) {
	group := []Hit{
		hit(1, 10, 50),
		hit(1, 11, 80),
		hit(1, 12, 80),
		hit(1, 13, 20),
	}
	got := topNSubjectGenes(group, 2)
	// Genes 11 and 12 are tied for best and are the two top genes, so
	// both are kept; genes 10 and 13 are dropped.
	var genes []int
	for _, h := range got {
		genes = append(genes, h.SGene)
	}
	assert.ElementsMatch(t, []int{11, 12}, genes)
}

func TestTopNSubjectGenesZero(t *testing.T) {
	group := []Hit{hit(1, 10, 50)}
	assert.Empty(t, topNSubjectGenes(group, 0))
}

func TestIntersect(t *testing.T) {
	a := []Hit{hit(1, 10, 50), hit(2, 20, 40)}
	b := []Hit{hit(1, 10, 55)}
	got := intersect(a, b)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, got[0].QGene)
	assert.Equal(t, 10, got[0].SGene)
}

func TestBestPerGenePair(t *testing.T) {
	hits := []Hit{
		hit(1, 10, 50),
		hit(1, 10, 90),
		hit(2, 20, 30),
	}
	got := bestPerGenePair(hits)
	assert.Len(t, got, 2)
	for _, h := range got {
		if h.QGene == 1 {
			assert.Equal(t, 90.0, h.BitScore)
		}
	}
}

func TestBestPerQueryGeneKeepAll(t *testing.T) {
	hits := []Hit{hit(1, 10, 90), hit(1, 11, 90), hit(1, 12, 40)}
	got := bestPerQueryGene(hits, true)
	assert.Len(t, got, 2)
}

func TestBestPerQueryGeneTieBreak(t *testing.T) {
	hits := []Hit{hit(1, 10, 90), hit(1, 11, 90), hit(1, 12, 40)}
	got := bestPerQueryGene(hits, false)
	assert.Len(t, got, 1)
	assert.Equal(t, 10, got[0].SGene)
}

func TestDedupExact(t *testing.T) {
	h := hit(1, 10, 90)
	got := dedupExact([]Hit{h, h, h})
	assert.Len(t, got, 1)
}

func TestMergeStepsNoHitsIsEmpty(t *testing.T) {
	merged := bestPerQueryGene(bestPerGenePair(dedupExact(intersect(nil, nil))), true)
	assert.Empty(t, merged)
}
