// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gene_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortschak/rnaclique/gene"
)

func TestParseDefaultPattern(t *testing.T) {
	id, err := gene.Parse(gene.DefaultPattern, "NODE_1_length_500_cov_12.5_g4_i1")
	require.NoError(t, err)
	assert.Equal(t, gene.ID{Coverage: 12.5, Gene: 4, Isoform: 1}, id)
}

func TestParseNamedGroups(t *testing.T) {
	p := regexp.MustCompile(`g(?P<gene>[0-9]+)_i(?P<isoform>[0-9]+)_cov(?P<coverage>[0-9.]+)`)
	id, err := gene.Parse(p, "g7_i2_cov3.25")
	require.NoError(t, err)
	assert.Equal(t, gene.ID{Coverage: 3.25, Gene: 7, Isoform: 2}, id)
}

func TestParsePositionalFallback(t *testing.T) {
	// No names at all: groups map in declared order coverage, gene, isoform.
	p := regexp.MustCompile(`([0-9.]+)_([0-9]+)_([0-9]+)`)
	id, err := gene.Parse(p, "3.0_9_2")
	require.NoError(t, err)
	assert.Equal(t, gene.ID{Coverage: 3.0, Gene: 9, Isoform: 2}, id)
}

func TestParseMixedNamedAndPositional(t *testing.T) {
	// gene is named; coverage and isoform fall back positionally, in
	// declared order, to the remaining (unnamed) groups.
	p := regexp.MustCompile(`([0-9.]+)_g(?P<gene>[0-9]+)_([0-9]+)`)
	id, err := gene.Parse(p, "1.5_g3_9")
	require.NoError(t, err)
	assert.Equal(t, gene.ID{Coverage: 1.5, Gene: 3, Isoform: 9}, id)
}

func TestParseNoMatch(t *testing.T) {
	_, err := gene.Parse(gene.DefaultPattern, "no_match_here")
	assert.Error(t, err)
}

func TestParseMissingGroup(t *testing.T) {
	p := regexp.MustCompile(`g(?P<gene>[0-9]+)`)
	_, err := gene.Parse(p, "g4")
	assert.Error(t, err)
}
