// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package genegraph unions pairwise gene-matches tables into a single
// undirected graph over (sample, gene) vertices, and enumerates its
// ideal components: connected components that are complete K_n graphs
// with exactly one vertex per sample (§4.E, §4.F).
package genegraph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/kortschak/rnaclique/recip"
)

// Vertex identifies one gene of one sample.
type Vertex struct {
	Sample string
	Gene   int
}

func (v Vertex) String() string { return fmt.Sprintf("%s:%d", v.Sample, v.Gene) }

// vnode is a graph.Node carrying its Vertex, so that connected
// components and DOT output can recover sample/gene identity directly
// from the node without a side table.
type vnode struct {
	id int64
	v  Vertex
}

func (n vnode) ID() int64     { return n.id }
func (n vnode) DOTID() string { return n.v.String() }

// Graph is the union of all pairwise GeneMatchTables over their
// (sample, gene) vertices. Adding the same row twice, or the same
// table's rows in any order, leaves the graph unchanged (§7 "Graph
// union is commutative and idempotent").
type Graph struct {
	g       *simple.UndirectedGraph
	idFor   map[Vertex]int64
	samples map[string]bool
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		g:       simple.NewUndirectedGraph(),
		idFor:   make(map[Vertex]int64),
		samples: make(map[string]bool),
	}
}

// Add ingests one GeneMatchTable, adding a vertex for each endpoint of
// every hit and an undirected edge between them. It is safe to call Add
// with the same table, or its rows in a different order, more than
// once.
func (g *Graph) Add(t recip.GeneMatchTable) {
	g.samples[t.QuerySample] = true
	g.samples[t.SubjectSample] = true
	for _, h := range t.Hits {
		qn := g.nodeFor(Vertex{t.QuerySample, h.QGene})
		sn := g.nodeFor(Vertex{t.SubjectSample, h.SGene})
		if qn.ID() == sn.ID() {
			continue
		}
		if !g.g.HasEdgeBetween(qn.ID(), sn.ID()) {
			g.g.SetEdge(simple.Edge{F: qn, T: sn})
		}
	}
}

// AddEdge adds an undirected edge between a and b directly, without an
// intervening GeneMatchTable. It is used to rebuild a Graph from a
// previously persisted edge list.
func (g *Graph) AddEdge(a, b Vertex) {
	g.samples[a.Sample] = true
	g.samples[b.Sample] = true
	an := g.nodeFor(a)
	bn := g.nodeFor(b)
	if an.ID() == bn.ID() {
		return
	}
	if !g.g.HasEdgeBetween(an.ID(), bn.ID()) {
		g.g.SetEdge(simple.Edge{F: an, T: bn})
	}
}

// Edges returns every edge of the graph as a pair of Vertices, in no
// particular order.
func (g *Graph) Edges() [][2]Vertex {
	var out [][2]Vertex
	edges := g.g.Edges()
	for edges.Next() {
		e := edges.Edge()
		out = append(out, [2]Vertex{e.From().(vnode).v, e.To().(vnode).v})
	}
	return out
}

func (g *Graph) nodeFor(v Vertex) graph.Node {
	if id, ok := g.idFor[v]; ok {
		return g.g.Node(id)
	}
	id := g.g.NewNode().ID()
	n := vnode{id: id, v: v}
	g.idFor[v] = id
	g.g.AddNode(n)
	return n
}

// Samples returns the distinct sample identifiers seen across every
// ingested table, sorted.
func (g *Graph) Samples() []string {
	out := make([]string, 0, len(g.samples))
	for s := range g.samples {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// NumVertices reports the number of distinct (sample, gene) vertices in
// the graph.
func (g *Graph) NumVertices() int { return g.g.Nodes().Len() }

// IdealComponent is a connected component of the gene-matches graph
// that is a complete K_n graph with exactly one vertex per sample.
type IdealComponent struct {
	// Vertices maps each sample in the component to its gene.
	Vertices map[string]int
}

// IdealComponents enumerates the ideal components of g for a sample
// set of size k (§4.F). If k <= 0, k is inferred as the number of
// distinct sample identifiers seen by Add.
func IdealComponents(g *Graph, k int) []IdealComponent {
	if k <= 0 {
		k = len(g.samples)
	}
	if k == 0 {
		return nil
	}
	wantEdges := k * (k - 1) / 2

	var out []IdealComponent
	for _, comp := range topo.ConnectedComponents(g.g) {
		if len(comp) != k {
			continue
		}
		if countEdges(g.g, comp) != wantEdges {
			continue
		}
		vertices := make(map[string]int, k)
		dup := false
		for _, n := range comp {
			v := n.(vnode).v
			if _, ok := vertices[v.Sample]; ok {
				dup = true
				break
			}
			vertices[v.Sample] = v.Gene
		}
		if dup || len(vertices) != k {
			// A size-k complete subgraph with two vertices of the same
			// sample would require an edge between them, which Add
			// never creates; guard anyway rather than misreport.
			continue
		}
		out = append(out, IdealComponent{Vertices: vertices})
	}
	return out
}

func countEdges(g *simple.UndirectedGraph, nodes []graph.Node) int {
	n := 0
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			if g.HasEdgeBetween(nodes[i].ID(), nodes[j].ID()) {
				n++
			}
		}
	}
	return n
}

// ValidVertices returns the set of (sample, gene) pairs that lie in
// some ideal component (the PairSimilarity restriction set of §3).
func ValidVertices(components []IdealComponent) map[Vertex]bool {
	valid := make(map[Vertex]bool)
	for _, c := range components {
		for sample, gene := range c.Vertices {
			valid[Vertex{sample, gene}] = true
		}
	}
	return valid
}
