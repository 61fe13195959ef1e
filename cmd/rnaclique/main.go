// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rnaclique infers pairwise genetic distances among samples from de
// novo assembled transcriptomes. It reduces each sample's transcripts
// to its top N genes by coverage, finds reciprocal best gene matches
// between every pair of samples, unions the matches into a graph,
// extracts the components on which every sample agrees, and reports a
// similarity and distance matrix restricted to those components.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"

	"github.com/kortschak/rnaclique/blast"
	"github.com/kortschak/rnaclique/gene"
	"github.com/kortschak/rnaclique/genegraph"
	"github.com/kortschak/rnaclique/pairs"
	"github.com/kortschak/rnaclique/recip"
	"github.com/kortschak/rnaclique/similarity"
	"github.com/kortschak/rnaclique/topgene"
)

func main() {
	var inputs sliceValue
	flag.Var(&inputs, "input", "specify an input FASTA file (required - may be present more than once)")
	outDir := flag.String("output-dir", "", "directory in which to write per-pair tables and matrices (required)")
	dbDir := flag.String("db-cache-dir", "", "directory in which to build BLAST databases (default: a temp directory)")
	geneRegex := regexpValue{v: gene.DefaultPattern}
	flag.Var(&geneRegex, "gene-regex", "regex for parsing gene/isoform/coverage from transcript headers")
	sampleRegex := regexpValue{v: pairs.DefaultSampleRegex}
	flag.Var(&sampleRegex, "sample-regex", "regex for parsing a sample identifier from an input file name")
	topN := flag.Int("top-n", 1, "number of top genes by coverage to retain per sample")
	topMatches := flag.Int("top-matches", 1, "number of best-scoring subject genes retained per query gene in each directional search")
	evalue := flag.Float64("evalue", 1e-50, "e-value threshold for BLAST alignments")
	keepAll := flag.Bool("keep-all", false, "keep all gene matches tied for best in case of a tie")
	jobs := flag.Int("jobs", runtime.NumCPU()-1, "number of parallel pair comparisons")
	threads := flag.Int("threads", 1, "number of BLAST threads per comparison")
	verbose := flag.Bool("verbose", false, "log BLAST subprocess output")
	work := flag.Bool("work", false, "keep temporary reduced-FASTA files")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -input <a.fasta> -input <b.fasta> [-input ...] -output-dir <dir>

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if len(inputs) < 2 || *outDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	log.Println(os.Args)
	var logger io.WriteCloser
	if *verbose {
		logger = logCapture()
		defer logger.Close()
	}

	tmpDir, err := ioutil.TempDir("", "rnaclique-tmp-*")
	if err != nil {
		log.Fatal(err)
	}
	if *work {
		log.Printf("keeping reduced FASTAs in %s", tmpDir)
	} else {
		defer os.RemoveAll(tmpDir)
	}

	dbCacheDir := *dbDir
	if dbCacheDir == "" {
		dbCacheDir = filepath.Join(tmpDir, "dbs")
	}
	if err := os.MkdirAll(dbCacheDir, 0o755); err != nil {
		log.Fatal(err)
	}

	namer := pairs.SampleNamer{Pattern: sampleRegex.v}
	selector := topgene.Selector{Pattern: geneRegex.v, Top: *topN}

	var samples []pairs.Input
	for _, in := range inputs {
		sample := namer.Name(in)
		log.Printf("reducing %s (sample %s) to top %d genes", in, sample, *topN)
		reduced, err := reduce(selector, in, tmpDir)
		if err != nil {
			log.Fatalf("reducing %s: %v", in, err)
		}
		samples = append(samples, pairs.Input{Sample: sample, Path: reduced})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Sample < samples[j].Sample })

	orc := &pairs.Orchestrator{
		Finder: &recip.Finder{
			Driver:  &blast.Driver{EValue: *evalue, Threads: *threads, Logger: logger},
			Pattern: geneRegex.v,
			Top:     *topMatches,
			KeepAll: *keepAll,
		},
		DBCache:          blast.NewDBCache(dbCacheDir),
		OutputDir:        filepath.Join(*outDir, "pairs"),
		Parallelism:      *jobs,
		Logger:           log.Printf,
		SubprocessLogger: logger,
	}

	ctx := context.Background()
	out := make(chan pairs.Result)
	go func() {
		if err := orc.Run(ctx, samples, out); err != nil {
			log.Fatalf("orchestrator: %v", err)
		}
	}()

	g := genegraph.New()
	var tables []recip.GeneMatchTable
	var failed int
	for res := range out {
		if res.Err != nil {
			log.Printf("pair failed: %v", res.Err)
			failed++
			continue
		}
		g.Add(res.Table)
		tables = append(tables, res.Table)
	}
	if failed > 0 {
		log.Printf("%d of %d pairs failed; continuing with the rest", failed, len(tables)+failed)
	}

	components := genegraph.IdealComponents(g, len(samples))
	if len(components) == 0 {
		log.Print("WARNING: no ideal components found; similarity matrix will be undefined off the diagonal")
	} else {
		log.Printf("found %d ideal components", len(components))
	}

	sampleNames := make([]string, len(samples))
	for i, s := range samples {
		sampleNames[i] = s.Sample
	}

	eng := similarity.NewEngine(components)
	simM, dissimM := eng.BuildMatrices(sampleNames, tables)

	if err := writeMatrix(filepath.Join(*outDir, "similarity.csv"), simM); err != nil {
		log.Fatal(err)
	}
	if err := writeMatrix(filepath.Join(*outDir, "dissimilarity.csv"), dissimM); err != nil {
		log.Fatal(err)
	}
}

func reduce(s topgene.Selector, inPath, tmpDir string) (string, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	out, err := ioutil.TempFile(tmpDir, "reduced-*.fasta")
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := s.Select(out, f); err != nil {
		return "", err
	}
	return out.Name(), nil
}

func writeMatrix(path string, m *similarity.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{""}, m.Samples...)
	if err := w.Write(header); err != nil {
		return err
	}
	values := m.Float64()
	for i, sample := range m.Samples {
		row := make([]string, 0, len(m.Samples)+1)
		row = append(row, sample)
		for _, v := range values[i] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// sliceValue is a multi-value flag value.
type sliceValue []string

func (s *sliceValue) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func (s *sliceValue) String() string { return fmt.Sprintf("%q", []string(*s)) }

// regexpValue is a flag.Value wrapping a compiled regular expression.
type regexpValue struct{ v *regexp.Regexp }

func (r *regexpValue) Set(s string) error {
	v, err := regexp.Compile(s)
	if err != nil {
		return err
	}
	r.v = v
	return nil
}

func (r *regexpValue) String() string {
	if r.v == nil {
		return ""
	}
	return r.v.String()
}

// logCapture returns an io.WriteCloser that pipes writes to the
// default log logger, line by line.
func logCapture() io.WriteCloser {
	r, w := io.Pipe()
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if len(bytes.TrimSpace(sc.Bytes())) == 0 {
				continue
			}
			log.Printf("\t%s", sc.Bytes())
		}
		if err := sc.Err(); err != nil && err != io.EOF {
			w.CloseWithError(err)
		}
	}()
	return w
}
