// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package topgene reduces a sample's transcripts to the top N genes by
// maximum isoform coverage (§4.B).
package topgene

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/biogo/hts/fai"

	"github.com/kortschak/rnaclique/gene"
)

// Selector reduces transcripts to those belonging to the top Top genes by
// maximum isoform coverage, as determined by parsing each header with
// Pattern.
type Selector struct {
	Pattern *regexp.Regexp
	Top     int
}

// Select reads FASTA records from src and writes to dst every record whose
// gene is among the Top genes with the highest per-gene maximum isoform
// coverage. Record order is preserved among retained transcripts (§4.B).
func (s Selector) Select(dst io.Writer, src io.Reader) error {
	type record struct {
		seq *linear.Seq
		id  gene.ID
	}

	highest := make(map[int]float64)
	var records []record
	sc := seqio.NewScanner(fasta.NewReader(src, linear.NewSeq("", nil, alphabet.DNAredundant)))
	for sc.Next() {
		seq := sc.Seq().(*linear.Seq)
		header := seq.ID
		if seq.Desc != "" {
			header += " " + seq.Desc
		}
		id, err := gene.Parse(s.Pattern, header)
		if err != nil {
			return fmt.Errorf("topgene: %w", err)
		}
		cp := *seq
		records = append(records, record{seq: &cp, id: id})
		if cov, ok := highest[id.Gene]; !ok || id.Coverage > cov {
			highest[id.Gene] = id.Coverage
		}
	}
	if err := sc.Error(); err != nil {
		return fmt.Errorf("topgene: error during sequence read: %w", err)
	}

	top := topGenes(highest, s.Top)
	for _, r := range records {
		if _, ok := top[r.id.Gene]; ok {
			fmt.Fprintf(dst, "%60a\n", r.seq)
		}
	}
	return nil
}

// topGenes returns the set of gene IDs among the n highest by coverage.
// Ties at the nth position are broken by ascending gene ID: an unspecified
// but deterministic rule, as required by §4.B.
func topGenes(highest map[int]float64, n int) map[int]struct{} {
	if n <= 0 {
		return map[int]struct{}{}
	}
	type geneCov struct {
		gene int
		cov  float64
	}
	genes := make([]geneCov, 0, len(highest))
	for g, cov := range highest {
		genes = append(genes, geneCov{g, cov})
	}
	sort.Slice(genes, func(i, j int) bool {
		if genes[i].cov != genes[j].cov {
			return genes[i].cov > genes[j].cov
		}
		return genes[i].gene < genes[j].gene
	})
	if n > len(genes) {
		n = len(genes)
	}
	top := make(map[int]struct{}, n)
	for _, g := range genes[:n] {
		top[g.gene] = struct{}{}
	}
	return top
}

// IndexedFASTA opens the reduced FASTA at path and returns a random-access
// fai.File over it together with a close function. Building the index
// fails if the file is not well-formed FASTA.
func IndexedFASTA(path string) (*fai.File, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	idx, err := fai.NewIndex(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("topgene: indexing %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, err
	}
	return fai.NewFile(f, idx), f.Close, nil
}
