// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortschak/rnaclique/blast"
	"github.com/kortschak/rnaclique/genegraph"
	"github.com/kortschak/rnaclique/recip"
)

func sampleTable() recip.GeneMatchTable {
	return recip.GeneMatchTable{
		QuerySample:   "s1",
		SubjectSample: "s2",
		Hits: []recip.Hit{
			{QSeqID: "q1", SSeqID: "s1", QGene: 1, SGene: 1, Length: 100, Gaps: 0, Nident: 90, BitScore: 180, Strand: blast.Plus, Origin: recip.Forward},
			{QSeqID: "q2", SSeqID: "s2", QGene: 2, SGene: 2, Length: 90, Gaps: 1, Nident: 80, BitScore: 150, Strand: blast.Minus, Origin: recip.Reverse},
		},
	}
}

func TestTableStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pair.kv")

	want := sampleTable()
	ts, err := CreateTable(path, want.QuerySample, want.SubjectSample)
	require.NoError(t, err)
	require.NoError(t, ts.Put(want.Hits))
	require.NoError(t, ts.Close())

	ts2, err := OpenTable(path)
	require.NoError(t, err)
	defer ts2.Close()

	got, err := ts2.Table()
	require.NoError(t, err)
	assert.Equal(t, want.QuerySample, got.QuerySample)
	assert.Equal(t, want.SubjectSample, got.SubjectSample)
	assert.ElementsMatch(t, want.Hits, got.Hits)
}

func TestPairPathIsOrderIndependent(t *testing.T) {
	dir := "/tmp/x"
	assert.Equal(t, PairPath(dir, "a", "b"), PairPath(dir, "b", "a"))
}

func TestCSVRoundTrip(t *testing.T) {
	want := sampleTable()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, want))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, want.QuerySample, got.QuerySample)
	assert.Equal(t, want.SubjectSample, got.SubjectSample)
	require.Len(t, got.Hits, 2)
	assert.Equal(t, want.Hits[0].QSeqID, got.Hits[0].QSeqID)
	assert.Equal(t, want.Hits[1].Strand, got.Hits[1].Strand)
	assert.Equal(t, want.Hits[1].Origin, got.Hits[1].Origin)
}

func TestLoadTableDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	want := sampleTable()

	csvPath := filepath.Join(dir, "pair.csv")
	f, err := os.Create(csvPath)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, want))
	require.NoError(t, f.Close())

	got, err := LoadTable(csvPath)
	require.NoError(t, err)
	assert.Equal(t, want.QuerySample, got.QuerySample)
	assert.Equal(t, want.SubjectSample, got.SubjectSample)
	assert.ElementsMatch(t, want.Hits, got.Hits)

	kvPath := filepath.Join(dir, "pair.kv")
	ts, err := CreateTable(kvPath, want.QuerySample, want.SubjectSample)
	require.NoError(t, err)
	require.NoError(t, ts.Put(want.Hits))
	require.NoError(t, ts.Close())

	got, err = LoadTable(kvPath)
	require.NoError(t, err)
	assert.Equal(t, want.QuerySample, got.QuerySample)
	assert.ElementsMatch(t, want.Hits, got.Hits)
}

func TestGraphSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.gob")

	g := genegraph.New()
	g.AddEdge(genegraph.Vertex{Sample: "s1", Gene: 1}, genegraph.Vertex{Sample: "s2", Gene: 1})
	g.AddEdge(genegraph.Vertex{Sample: "s1", Gene: 1}, genegraph.Vertex{Sample: "s3", Gene: 1})

	require.NoError(t, SaveGraph(path, g))
	got, err := LoadGraph(path)
	require.NoError(t, err)
	assert.Equal(t, g.NumVertices(), got.NumVertices())
	assert.ElementsMatch(t, g.Samples(), got.Samples())
}
