// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pairs

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleNamerDefaultPattern(t *testing.T) {
	n := SampleNamer{Pattern: DefaultSampleRegex}
	assert.Equal(t, "sample1", n.Name("/tmp/sample1_reduced.fasta"))
}

func TestSampleNamerNoPatternFallsBackToStem(t *testing.T) {
	n := SampleNamer{}
	assert.Equal(t, "sample1", n.Name("/tmp/sample1.fasta"))
}

func TestSampleNamerNoMatchFallsBackToStem(t *testing.T) {
	n := SampleNamer{Pattern: regexp.MustCompile(`^nomatch$`)}
	assert.Equal(t, "sample1", n.Name("/tmp/sample1.fasta"))
}

func TestAllPairsCount(t *testing.T) {
	inputs := []Input{{Sample: "a"}, {Sample: "b"}, {Sample: "c"}, {Sample: "d"}}
	work := allPairs(inputs)
	// K*(K-1)/2 for K=4.
	assert.Len(t, work, 6)
}

func TestAllPairsNoSelfPairs(t *testing.T) {
	inputs := []Input{{Sample: "a"}, {Sample: "b"}}
	work := allPairs(inputs)
	for _, w := range work {
		assert.NotEqual(t, w.a.Sample, w.b.Sample)
	}
}
