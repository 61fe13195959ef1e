// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topgene_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortschak/rnaclique/gene"
	"github.com/kortschak/rnaclique/topgene"
)

const fixture = `>n1_cov_5.0_g1_i1
ACGTACGTAC
>n2_cov_8.0_g1_i2
ACGTACGTAC
>n3_cov_3.0_g2_i1
ACGTACGTAC
>n4_cov_1.0_g3_i1
ACGTACGTAC
`

func TestSelectTopGenes(t *testing.T) {
	sel := topgene.Selector{Pattern: gene.DefaultPattern, Top: 2}
	var out bytes.Buffer
	err := sel.Select(&out, strings.NewReader(fixture))
	require.NoError(t, err)

	// Genes 1 (cov 8.0) and 2 (cov 3.0) should be retained; gene 3 dropped.
	assert.Contains(t, out.String(), "n1_cov_5.0_g1_i1")
	assert.Contains(t, out.String(), "n2_cov_8.0_g1_i2")
	assert.Contains(t, out.String(), "n3_cov_3.0_g2_i1")
	assert.NotContains(t, out.String(), "n4_cov_1.0_g3_i1")
}

func TestSelectTopGenesZero(t *testing.T) {
	sel := topgene.Selector{Pattern: gene.DefaultPattern, Top: 0}
	var out bytes.Buffer
	err := sel.Select(&out, strings.NewReader(fixture))
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestSelectTopGenesExceedsDistinctGenes(t *testing.T) {
	sel := topgene.Selector{Pattern: gene.DefaultPattern, Top: 100}
	var out bytes.Buffer
	err := sel.Select(&out, strings.NewReader(fixture))
	require.NoError(t, err)
	for _, want := range []string{"n1_", "n2_", "n3_", "n4_"} {
		assert.Contains(t, out.String(), want)
	}
}

func TestSelectIdempotent(t *testing.T) {
	sel := topgene.Selector{Pattern: gene.DefaultPattern, Top: 2}
	var first bytes.Buffer
	require.NoError(t, sel.Select(&first, strings.NewReader(fixture)))

	// N (2) is >= the distinct gene count (2) of the reduced file, so a
	// second pass must be a no-op (§8).
	var second bytes.Buffer
	require.NoError(t, sel.Select(&second, strings.NewReader(first.String())))

	assert.Equal(t, first.String(), second.String())
}
