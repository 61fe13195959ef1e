// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package recip finds reciprocal best gene matches between a pair of
// samples (§4.C). It runs two directional BLAST searches through a
// blast.Driver, restricts each side to its top candidate genes, keeps
// only gene pairs that are mutually best, and, unless KeepAll is set,
// resolves ties down to one row per query gene.
package recip

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"

	"github.com/kortschak/rnaclique/blast"
	"github.com/kortschak/rnaclique/gene"
)

// Origin records which directional search a Hit came from, for audit
// purposes (not part of the original distillation; see SUPPLEMENTED
// FEATURES).
type Origin uint8

const (
	Forward Origin = iota
	Reverse
)

func (o Origin) String() string {
	if o == Reverse {
		return "reverse"
	}
	return "forward"
}

// Hit is one surviving row of a reciprocal gene match, with sequence
// identifiers resolved to gene/isoform numbers (§3 Hit).
type Hit struct {
	QSeqID, SSeqID string
	QGene, QIso    int
	SGene, SIso    int

	Length int
	Gaps   int
	Nident int

	BitScore float64
	Strand   blast.Strand

	Origin Origin
}

// GeneMatchTable is the set of reciprocal gene matches found between
// QuerySample and SubjectSample (§3 GeneMatchTable). QuerySample is
// always the first sample of the pair, regardless of which directional
// search a given Hit came from.
type GeneMatchTable struct {
	QuerySample, SubjectSample string
	Hits                       []Hit
}

// Finder runs the reciprocal-best-match procedure for one pair of
// samples.
type Finder struct {
	Driver *blast.Driver
	// Pattern parses gene and isoform identifiers out of sequence
	// headers (see gene.Parse).
	Pattern *regexp.Regexp
	// Top is the number of distinct subject genes retained per query
	// gene before reciprocity is checked (§4.B Open Question: N is a
	// count of distinct subject genes, not of raw rows).
	Top int
	// KeepAll controls the tie policy at the final per-query-gene
	// selection: true retains every row tied for best bitscore, false
	// keeps exactly one, chosen deterministically by first occurrence
	// in forward-then-reverse order.
	KeepAll bool
}

// Find runs the forward search (querySample against subjectSample) and
// the reverse search (subjectSample against querySample), and returns
// the reciprocal best matches between them (§4.C).
//
// dbs, if non-nil, is used to build and reuse BLAST databases for the
// subject side of each directional search instead of searching the raw
// FASTA file directly (§5).
func (f *Finder) Find(ctx context.Context, querySample, queryPath, subjectSample, subjectPath string, dbs *blast.DBCache, logger io.Writer) (GeneMatchTable, error) {
	forwardRows, err := f.search(ctx, queryPath, subjectPath, dbs, logger)
	if err != nil {
		return GeneMatchTable{}, fmt.Errorf("recip: forward search %s x %s: %w", querySample, subjectSample, err)
	}
	forward, err := f.annotate(forwardRows)
	if err != nil {
		return GeneMatchTable{}, fmt.Errorf("recip: forward search %s x %s: %w", querySample, subjectSample, err)
	}
	for i := range forward {
		forward[i].Origin = Forward
	}
	forward = topNPerQueryGene(forward, f.Top)

	reverseRows, err := f.search(ctx, subjectPath, queryPath, dbs, logger)
	if err != nil {
		return GeneMatchTable{}, fmt.Errorf("recip: reverse search %s x %s: %w", subjectSample, querySample, err)
	}
	reverse, err := f.annotate(reverseRows)
	if err != nil {
		return GeneMatchTable{}, fmt.Errorf("recip: reverse search %s x %s: %w", subjectSample, querySample, err)
	}
	reverse = topNPerQueryGene(reverse, f.Top)
	for i := range reverse {
		// The reverse search's query is subjectSample: swap the Q/S
		// fields so that "query" always means querySample, as required
		// by §4.C step 2.
		reverse[i].QSeqID, reverse[i].SSeqID = reverse[i].SSeqID, reverse[i].QSeqID
		reverse[i].QGene, reverse[i].SGene = reverse[i].SGene, reverse[i].QGene
		reverse[i].QIso, reverse[i].SIso = reverse[i].SIso, reverse[i].QIso
		reverse[i].Origin = Reverse
	}

	// Reciprocal intersection: a (qgene, sgene) pair survives only if it
	// appears on both sides.
	merged := append(intersect(forward, reverse), intersect(reverse, forward)...)
	merged = dedupExact(merged)
	merged = bestPerGenePair(merged)
	merged = bestPerQueryGene(merged, f.KeepAll)

	return GeneMatchTable{QuerySample: querySample, SubjectSample: subjectSample, Hits: merged}, nil
}

func (f *Finder) search(ctx context.Context, queryPath, subjectPath string, dbs *blast.DBCache, logger io.Writer) ([]blast.Row, error) {
	if dbs != nil {
		db, err := dbs.Ensure(subjectPath, "", logger)
		if err != nil {
			return nil, err
		}
		return f.Driver.SearchDB(ctx, queryPath, db)
	}
	return f.Driver.SearchSubject(ctx, queryPath, subjectPath)
}

func (f *Finder) annotate(rows []blast.Row) ([]Hit, error) {
	hits := make([]Hit, len(rows))
	for i, r := range rows {
		q, err := gene.Parse(f.Pattern, r.QSeqID)
		if err != nil {
			return nil, err
		}
		s, err := gene.Parse(f.Pattern, r.SSeqID)
		if err != nil {
			return nil, err
		}
		if r.Nident < 0 || r.Gaps < 0 || r.Gaps+r.Nident > r.Length {
			return nil, fmt.Errorf("recip: implausible alignment %s x %s: length=%d gaps=%d nident=%d",
				r.QSeqID, r.SSeqID, r.Length, r.Gaps, r.Nident)
		}
		hits[i] = Hit{
			QSeqID: r.QSeqID, SSeqID: r.SSeqID,
			QGene: q.Gene, QIso: q.Isoform,
			SGene: s.Gene, SIso: s.Isoform,
			Length: r.Length, Gaps: r.Gaps, Nident: r.Nident,
			BitScore: r.BitScore,
			Strand:   r.Strand,
		}
	}
	return hits, nil
}

// topNPerQueryGene restricts hits to, for each query gene, the rows
// belonging to its n best-scoring distinct subject genes. Ties at the
// nth position are all retained ("keep all" tie policy, §4.B).
func topNPerQueryGene(hits []Hit, n int) []Hit {
	groups, order := groupByQGene(hits)
	var out []Hit
	for _, qg := range order {
		out = append(out, topNSubjectGenes(groups[qg], n)...)
	}
	return out
}

func topNSubjectGenes(group []Hit, n int) []Hit {
	if n <= 0 {
		return nil
	}
	best := make(map[int]float64)
	for _, h := range group {
		if h.BitScore > best[h.SGene] {
			best[h.SGene] = h.BitScore
		}
	}
	type scored struct {
		gene  int
		score float64
	}
	genes := make([]scored, 0, len(best))
	for g, sc := range best {
		genes = append(genes, scored{g, sc})
	}
	sort.Slice(genes, func(i, j int) bool {
		if genes[i].score != genes[j].score {
			return genes[i].score > genes[j].score
		}
		return genes[i].gene < genes[j].gene
	})
	if len(genes) == 0 {
		return nil
	}
	k := n
	if k > len(genes) {
		k = len(genes)
	}
	threshold := genes[k-1].score
	keep := make(map[int]bool)
	for _, g := range genes {
		if g.score >= threshold {
			keep[g.gene] = true
		}
	}
	var out []Hit
	for _, h := range group {
		if keep[h.SGene] {
			out = append(out, h)
		}
	}
	return out
}

// intersect returns the hits of a whose (qgene, sgene) pair also occurs
// somewhere in b.
func intersect(a, b []Hit) []Hit {
	type pair struct{ q, s int }
	present := make(map[pair]bool, len(b))
	for _, h := range b {
		present[pair{h.QGene, h.SGene}] = true
	}
	var out []Hit
	for _, h := range a {
		if present[pair{h.QGene, h.SGene}] {
			out = append(out, h)
		}
	}
	return out
}

// dedupExact drops hits that are identical in every field. Origin is one
// of those fields, so a forward row and a reverse row for the same gene
// pair are both kept; only repeats from the same directional search are
// dropped.
func dedupExact(hits []Hit) []Hit {
	seen := make(map[Hit]bool, len(hits))
	var out []Hit
	for _, h := range hits {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

// bestPerGenePair keeps, for each (qgene, sgene) pair, only the rows
// tied for the highest bitscore.
func bestPerGenePair(hits []Hit) []Hit {
	type pair struct{ q, s int }
	groups := make(map[pair][]Hit)
	var order []pair
	for _, h := range hits {
		k := pair{h.QGene, h.SGene}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], h)
	}
	var out []Hit
	for _, k := range order {
		out = append(out, bestOf(groups[k], true)...)
	}
	return out
}

// bestPerQueryGene keeps, for each query gene, the row(s) tied for the
// highest bitscore across every surviving subject gene. keepAll selects
// the tie policy (§4.C step 5).
func bestPerQueryGene(hits []Hit, keepAll bool) []Hit {
	groups, order := groupByQGene(hits)
	var out []Hit
	for _, qg := range order {
		out = append(out, bestOf(groups[qg], keepAll)...)
	}
	return out
}

func bestOf(group []Hit, keepAll bool) []Hit {
	if len(group) == 0 {
		return nil
	}
	max := group[0].BitScore
	for _, h := range group {
		if h.BitScore > max {
			max = h.BitScore
		}
	}
	var out []Hit
	for _, h := range group {
		if h.BitScore != max {
			continue
		}
		out = append(out, h)
		if !keepAll {
			break
		}
	}
	return out
}

func groupByQGene(hits []Hit) (map[int][]Hit, []int) {
	groups := make(map[int][]Hit)
	var order []int
	for _, h := range hits {
		if _, ok := groups[h.QGene]; !ok {
			order = append(order, h.QGene)
		}
		groups[h.QGene] = append(groups[h.QGene], h)
	}
	return groups, order
}
