// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pairs orchestrates the reciprocal-best-match search over all
// K·(K−1)/2 unordered sample pairs on a worker pool of caller-chosen
// size, persisting each completed table to a content-addressed path
// and streaming completed tables to downstream consumers without
// holding them all in memory (§4.D).
package pairs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kortschak/rnaclique/blast"
	"github.com/kortschak/rnaclique/internal/store"
	"github.com/kortschak/rnaclique/recip"
)

// DefaultSampleRegex extracts a sample identifier as everything before
// the first underscore, mirroring the environment-overridable default
// in find_all_pairs.py.
var DefaultSampleRegex = regexp.MustCompile(`^(.*?)_.*$`)

// SampleNamer derives a sample identifier from a reduced-FASTA path,
// independent of the per-transcript gene.ID pattern (SUPPLEMENTED
// FEATURES).
type SampleNamer struct {
	Pattern *regexp.Regexp
}

// Name returns the sample identifier for path. If Pattern is nil, or
// does not match, the file's base name without extension is used.
func (n SampleNamer) Name(path string) string {
	base := filepath.Base(path)
	stem := base[:len(base)-len(filepath.Ext(base))]
	if n.Pattern == nil {
		return stem
	}
	m := n.Pattern.FindStringSubmatch(stem)
	if m == nil || len(m) < 2 {
		return stem
	}
	return m[1]
}

// Input is one sample's reduced FASTA, ready for all-pairs comparison.
type Input struct {
	Sample string
	Path   string
}

// Result is the outcome of one pair's reciprocal-match search.
type Result struct {
	Table recip.GeneMatchTable
	Err   error
}

// Orchestrator schedules the reciprocal-match search for every
// unordered pair of Inputs.
type Orchestrator struct {
	Finder    *recip.Finder
	DBCache   *blast.DBCache
	OutputDir string
	// Parallelism is the worker-pool size P (§5). A value <= 0 means
	// unbounded (errgroup.SetLimit is not called).
	Parallelism int
	Logger      func(format string, args ...interface{})
	// SubprocessLogger, if non-nil, receives the stdout and stderr of
	// every makeblastdb subprocess run on behalf of a pair. blastn's
	// stderr goes to Finder.Driver.Logger instead.
	SubprocessLogger io.Writer
}

// pairwork is one unordered pair to process.
type pairwork struct {
	a, b Input
}

// allPairs returns the K·(K-1)/2 unordered pairs of inputs, in a fixed,
// sample-sorted order so that dispatch order is reproducible even
// though completion order is not guaranteed (§4.D, §5).
func allPairs(inputs []Input) []pairwork {
	sorted := append([]Input(nil), inputs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sample < sorted[j].Sample })

	var work []pairwork
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			work = append(work, pairwork{sorted[i], sorted[j]})
		}
	}
	return work
}

// Run schedules every unordered pair of inputs over the worker pool
// and sends each completed (or failed) result to out. Run blocks until
// every pair has completed or ctx is cancelled, then closes out.
//
// Failure in one pair does not cancel the others (§4.D); Run itself
// only returns an error for setup failures (e.g. the output directory
// cannot be created). Per-pair failures are reported as Results with a
// non-nil Err.
func (o *Orchestrator) Run(ctx context.Context, inputs []Input, out chan<- Result) error {
	defer close(out)

	if err := os.MkdirAll(o.OutputDir, 0o755); err != nil {
		return fmt.Errorf("pairs: creating output directory: %w", err)
	}

	work := allPairs(inputs)
	g, ctx := errgroup.WithContext(ctx)
	if o.Parallelism > 0 {
		g.SetLimit(o.Parallelism)
	}

	for _, w := range work {
		w := w
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return nil // cooperative cancellation at a pair boundary
			}
			table, err := o.runPair(ctx, w)
			select {
			case out <- Result{Table: table, Err: err}:
			case <-ctx.Done():
			}
			return nil // per-pair errors are reported on the channel, not propagated
		})
	}

	return g.Wait()
}

func (o *Orchestrator) runPair(ctx context.Context, w pairwork) (recip.GeneMatchTable, error) {
	if o.Logger != nil {
		o.Logger("comparing %s x %s", w.a.Sample, w.b.Sample)
	}

	table, err := o.Finder.Find(ctx, w.a.Sample, w.a.Path, w.b.Sample, w.b.Path, o.DBCache, o.SubprocessLogger)
	if err != nil {
		return recip.GeneMatchTable{}, fmt.Errorf("pairs: %s x %s: %w", w.a.Sample, w.b.Sample, err)
	}

	path := store.PairPath(o.OutputDir, w.a.Sample, w.b.Sample)
	if err := persistAtomic(path, w.a.Sample, w.b.Sample, table); err != nil {
		return recip.GeneMatchTable{}, fmt.Errorf("pairs: persisting %s x %s: %w", w.a.Sample, w.b.Sample, err)
	}
	return table, nil
}

// persistAtomic writes table's kv store to a temp path and renames it
// into place, so a cancelled or failed pair leaves no partial table on
// disk (§5 "Cancellation").
func persistAtomic(path, querySample, subjectSample string, table recip.GeneMatchTable) error {
	tmp := path + ".tmp"
	os.Remove(tmp)
	os.Remove(tmp + ".meta")

	ts, err := store.CreateTable(tmp, querySample, subjectSample)
	if err != nil {
		return err
	}
	if err := ts.Put(table.Hits); err != nil {
		ts.Close()
		os.RemoveAll(tmp)
		os.Remove(tmp + ".meta")
		return err
	}
	if err := ts.Close(); err != nil {
		os.RemoveAll(tmp)
		os.Remove(tmp + ".meta")
		return err
	}
	if err := os.Rename(tmp+".meta", path+".meta"); err != nil {
		os.RemoveAll(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
